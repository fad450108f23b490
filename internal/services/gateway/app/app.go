package app

import (
	"log"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/hydroponia/telemetry/internal/model"
)

type Config struct {
	ReaderBaseURL string
	HTTPTimeout   time.Duration

	BreakerFailures uint32
	BreakerOpenFor  time.Duration
	BreakerInterval time.Duration

	Logger *log.Logger
}

type Gateway struct {
	cfg        Config
	lastValues *Upstream
	irrigation *Upstream

	mu             sync.Mutex
	lastGoodEvents []model.StatusEvent
}

func NewGateway(cfg Config) *Gateway {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	// one breaker per upstream endpoint
	lv := NewUpstream("last-values", cfg.ReaderBaseURL, "/api/last-values", cfg.HTTPTimeout,
		mkBreaker("last-values", cfg))
	irr := NewUpstream("irrigation", cfg.ReaderBaseURL, "/api/irrigation/latest", cfg.HTTPTimeout,
		mkBreaker("irrigation", cfg))

	return &Gateway{cfg: cfg, lastValues: lv, irrigation: irr}
}

func mkBreaker(name string, cfg Config) *gobreaker.CircuitBreaker {
	fails := cfg.BreakerFailures
	if fails == 0 {
		fails = 3
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     name,
		Interval: cfg.BreakerInterval,
		Timeout:  cfg.BreakerOpenFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= fails
		},
	})
}

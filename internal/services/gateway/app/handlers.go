package app

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"sort"
	"time"

	"github.com/hydroponia/telemetry/internal/model"
)

// HandleDashboard aggregates the reader's latest snapshot and recent
// irrigation events into one payload for the UI.
func (g *Gateway) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), g.cfg.HTTPTimeout)
	defer cancel()

	type res struct {
		key string
		val any
	}
	ch := make(chan res, 2)

	// fetch in parallel
	go func() {
		var latest LatestReadings
		err := g.lastValues.GetJSON(ctx, &latest)
		if err != nil {
			g.cfg.Logger.Printf("gateway: last-values fetch: %v", err)
		}
		ch <- res{"readings", latest.Readings}
	}()
	go func() {
		var irr IrrigationEvents
		err := g.irrigation.GetJSON(ctx, &irr)
		if err != nil || len(irr.Events) == 0 {
			if err != nil {
				g.cfg.Logger.Printf("gateway: irrigation fetch: %v", err)
			}
			// fall back to the last good feed
			g.mu.Lock()
			cached := g.lastGoodEvents
			g.mu.Unlock()
			ch <- res{"irrigations", cached}
			return
		}
		g.mu.Lock()
		g.lastGoodEvents = irr.Events
		g.mu.Unlock()
		ch <- res{"irrigations", irr.Events}
	}()

	data := DashboardData{
		Readings:    []model.SensorReading{},
		Irrigations: []model.StatusEvent{},
		Stats:       map[string]float64{},
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}

	for i := 0; i < 2; i++ {
		rv := <-ch
		switch rv.key {
		case "readings":
			if s, ok := rv.val.([]model.SensorReading); ok && s != nil {
				data.Readings = s
			}
		case "irrigations":
			if ir, ok := rv.val.([]model.StatusEvent); ok && ir != nil {
				data.Irrigations = ir
			}
		}
	}

	// stable node order plus quick temperature stats for the header widgets
	sort.Slice(data.Readings, func(i, j int) bool { return data.Readings[i].NodeID < data.Readings[j].NodeID })
	var sum, minV, maxV float64
	n := 0
	minV = math.MaxFloat64
	for _, rd := range data.Readings {
		v, ok := rd.Sensors[model.SensorTemperature]
		if !ok {
			continue
		}
		sum += v
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
		n++
	}
	if n > 0 {
		data.Stats["mean"] = math.Round(sum/float64(n)*100) / 100
		data.Stats["min"] = minV
		data.Stats["max"] = maxV
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

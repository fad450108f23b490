package dedup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShouldProcessFirstSeen(t *testing.T) {
	d := New(time.Minute, 100)
	assert.True(t, d.ShouldProcess("a"))
	assert.False(t, d.ShouldProcess("a"), "redelivery within TTL is a duplicate")
	assert.True(t, d.ShouldProcess("b"))
}

func TestShouldProcessEmptyID(t *testing.T) {
	d := New(time.Minute, 100)
	assert.True(t, d.ShouldProcess(""))
	assert.True(t, d.ShouldProcess(""), "empty ids are never deduplicated")
}

func TestShouldProcessExpired(t *testing.T) {
	d := New(10*time.Millisecond, 100)
	assert.True(t, d.ShouldProcess("a"))
	time.Sleep(20 * time.Millisecond)
	assert.True(t, d.ShouldProcess("a"), "expired entry is fresh again")
}

func TestSweepKeepsMapBounded(t *testing.T) {
	d := New(time.Nanosecond, 4)
	for i := 0; i < 50; i++ {
		d.ShouldProcess(string(rune('a' + i)))
	}
	d.mu.Lock()
	size := len(d.seen)
	d.mu.Unlock()
	assert.LessOrEqual(t, size, 5, "expired entries are swept once over capacity")
}

func TestNewDefaults(t *testing.T) {
	d := New(0, 0)
	assert.True(t, d.ShouldProcess("x"))
	assert.False(t, d.ShouldProcess("x"))
}

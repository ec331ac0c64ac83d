package aggregator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const baseMinute = int64(28576080) // 2024-05-01 12:00 UTC

func sum(w *minuteWindow) int {
	total := 0
	for _, h := range w.hits {
		total += h
	}
	return total
}

func TestWindowGapZeroesSkippedSlots(t *testing.T) {
	var w minuteWindow

	w.add(baseMinute)
	w.add(baseMinute + 10)

	series := w.series(baseMinute + 10)
	assert.Equal(t, 1, series[59].Hits)
	assert.Equal(t, 1, series[49].Hits)
	for i := 50; i < 59; i++ {
		assert.Equal(t, 0, series[i].Hits, "gap minutes are empty")
	}
}

func TestWindowFullGapResets(t *testing.T) {
	var w minuteWindow

	for i := int64(0); i < 60; i++ {
		w.add(baseMinute + i)
	}
	assert.Equal(t, 60, sum(&w))

	// Quiet for more than an hour: everything in the ring is stale.
	w.add(baseMinute + 200)
	assert.Equal(t, 1, sum(&w))
}

func TestWindowIgnoresTooOldMinutes(t *testing.T) {
	var w minuteWindow

	w.add(baseMinute + 100)
	w.add(baseMinute) // far behind the head, nowhere to put it
	assert.Equal(t, 1, sum(&w))
}

func TestWindowSameMinuteAccumulates(t *testing.T) {
	var w minuteWindow

	w.add(baseMinute)
	w.add(baseMinute)
	w.add(baseMinute)

	series := w.series(baseMinute)
	assert.Equal(t, 3, series[59].Hits)
}

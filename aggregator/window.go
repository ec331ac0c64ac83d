package aggregator

import (
	"time"

	"github.com/nesohq/krakens/models"
)

const windowMinutes = 60

// minuteWindow is a fixed-capacity ring of per-minute hit counts. The head
// slot holds the newest minute; advancing overwrites the oldest slots, so
// the window never holds more than 60 buckets.
type minuteWindow struct {
	hits    [windowMinutes]int
	head    int   // index of the slot holding headMin
	headMin int64 // unix minute of the head slot, 0 until first use
}

// advance moves the head forward to the given minute, zeroing the slots it
// rolls over. Skipping a whole window's worth of minutes resets everything.
func (w *minuteWindow) advance(minute int64) {
	if w.headMin == 0 {
		w.headMin = minute
		return
	}
	if minute <= w.headMin {
		return
	}
	if minute-w.headMin >= windowMinutes {
		w.hits = [windowMinutes]int{}
		w.head = 0
		w.headMin = minute
		return
	}
	for w.headMin < minute {
		w.head = (w.head + 1) % windowMinutes
		w.hits[w.head] = 0
		w.headMin++
	}
}

func (w *minuteWindow) add(minute int64) {
	w.advance(minute)
	offset := int(w.headMin - minute)
	if offset < 0 || offset >= windowMinutes {
		return
	}
	idx := ((w.head-offset)%windowMinutes + windowMinutes) % windowMinutes
	w.hits[idx]++
}

// series returns the 60 buckets oldest to newest, ending at the given
// minute, zero-filled where nothing happened.
func (w *minuteWindow) series(minute int64) []models.MinuteHits {
	w.advance(minute)
	out := make([]models.MinuteHits, 0, windowMinutes)
	for offset := windowMinutes - 1; offset >= 0; offset-- {
		idx := ((w.head-offset)%windowMinutes + windowMinutes) % windowMinutes
		m := w.headMin - int64(offset)
		out = append(out, models.MinuteHits{
			Minute: time.Unix(m*60, 0).UTC().Format("15:04"),
			Hits:   w.hits[idx],
		})
	}
	return out
}

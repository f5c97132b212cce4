package index

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calview/internal/model"
	"calview/internal/timegrid"
)

var dec = timegrid.Span(model.NewDate(2025, time.December, 1), model.NewDate(2025, time.December, 31))

func timed(id string, day, hour, min int, dur time.Duration) model.Event {
	start := time.Date(2025, time.December, day, hour, min, 0, 0, time.UTC)
	return model.Event{ID: id, Title: id, Start: start, End: start.Add(dur), Type: model.TypeMeeting}
}

func allDay(id string, day, days int) model.Event {
	start := time.Date(2025, time.December, day, 0, 0, 0, 0, time.UTC)
	return model.Event{ID: id, Title: id, Start: start, End: start.AddDate(0, 0, days), AllDay: true, Type: model.TypeHoliday}
}

func ids(evs []model.Event) []string {
	out := make([]string, 0, len(evs))
	for _, e := range evs {
		out = append(out, e.ID)
	}
	return out
}

func TestIndex_OrderWithinBucket(t *testing.T) {
	events := []model.Event{
		timed("b", 5, 10, 0, time.Hour),
		timed("a", 5, 10, 0, time.Hour),
		timed("early", 5, 8, 0, time.Hour),
		allDay("holiday", 5, 1),
	}

	b := Index(events, dec, time.UTC)

	assert.Equal(t, []string{"holiday", "early", "a", "b"}, ids(b.Get(model.NewDate(2025, time.December, 5))))
}

func TestIndex_AllDaySpansEveryCoveredDay(t *testing.T) {
	b := Index([]model.Event{allDay("trip", 30, 3)}, dec, time.UTC)

	// Dec 30 and 31 are in range, Jan 1 is not.
	assert.Equal(t, []string{"trip"}, ids(b.Get(model.NewDate(2025, time.December, 30))))
	assert.Equal(t, []string{"trip"}, ids(b.Get(model.NewDate(2025, time.December, 31))))
	assert.Equal(t, 2, b.Len())
}

func TestIndex_DropsOutOfRange(t *testing.T) {
	outside := model.Event{
		ID:    "jan",
		Start: time.Date(2026, time.January, 1, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2026, time.January, 1, 10, 0, 0, 0, time.UTC),
	}

	b := Index([]model.Event{outside, timed("in", 31, 23, 0, 30*time.Minute)}, dec, time.UTC)

	assert.Equal(t, []model.Date{model.NewDate(2025, time.December, 31)}, b.Days())
}

func TestIndex_UsesDisplayLocation(t *testing.T) {
	// 23:30 UTC on Dec 4 is Dec 5 in Seoul.
	kst := time.FixedZone("KST", 9*3600)
	b := Index([]model.Event{timed("late", 4, 23, 30, 15*time.Minute)}, dec, kst)

	assert.Empty(t, b.Get(model.NewDate(2025, time.December, 4)))
	assert.Len(t, b.Get(model.NewDate(2025, time.December, 5)), 1)
}

func TestIndex_EmptyIsValid(t *testing.T) {
	b := Index(nil, dec, time.UTC)
	assert.NotNil(t, b)
	assert.Zero(t, b.Len())
}

// TestIndex_Idempotent re-indexes shuffled copies and expects identical buckets.
func TestIndex_Idempotent(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	var events []model.Event
	for i := 0; i < 200; i++ {
		id := string(rune('a'+i%26)) + string(rune('a'+i/26))
		if i%9 == 0 {
			events = append(events, allDay(id, 1+rnd.Intn(28), 1+rnd.Intn(3)))
			continue
		}
		events = append(events, timed(id, 1+rnd.Intn(31), rnd.Intn(24), 15*rnd.Intn(4), time.Duration(rnd.Intn(180))*time.Minute))
	}

	first := Index(events, dec, time.UTC)
	second := Index(events, dec, time.UTC)
	require.Equal(t, first, second)

	shuffled := append([]model.Event(nil), events...)
	rnd.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	assert.Equal(t, first, Index(shuffled, dec, time.UTC))
}

package facades

import (
	"context"
	"testing"
	"time"

	"github.com/moolen/magma/internal/store/storetest"
)

func TestTemporalAddAndQueryEvents(t *testing.T) {
	fake := storetest.New()
	tmp := NewTemporal(fake)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if _, err := tmp.AddEvent(ctx, "deploy v1", base, 5*time.Minute); err != nil {
		t.Fatalf("AddEvent() error = %v", err)
	}
	if _, err := tmp.AddEvent(ctx, "deploy v2", base.Add(48*time.Hour), 5*time.Minute); err != nil {
		t.Fatalf("AddEvent() error = %v", err)
	}

	events, err := tmp.EventsInRange(ctx, base.Add(-time.Hour), base.Add(time.Hour), "")
	if err != nil {
		t.Fatalf("EventsInRange() error = %v", err)
	}
	if len(events) != 1 || events[0].Description != "deploy v1" {
		t.Errorf("EventsInRange() = %+v, want exactly [deploy v1]", events)
	}
}

func TestTemporalEventsInRangeRejectsInvertedRange(t *testing.T) {
	tmp := NewTemporal(storetest.New())
	now := time.Now()
	if _, err := tmp.EventsInRange(context.Background(), now, now.Add(-time.Hour), ""); err == nil {
		t.Fatal("EventsInRange() with to before from, want error")
	}
}

func TestTemporalAddFactAndFactsAt(t *testing.T) {
	fake := storetest.New()
	tmp := NewTemporal(fake)
	ctx := context.Background()

	from := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	if _, err := tmp.AddFact(ctx, "service-a", "owned_by", "team-x", from, &to); err != nil {
		t.Fatalf("AddFact() error = %v", err)
	}

	within := from.Add(30 * 24 * time.Hour)
	facts, err := tmp.FactsAt(ctx, within)
	if err != nil {
		t.Fatalf("FactsAt() error = %v", err)
	}
	if len(facts) != 1 || facts[0].Object != "team-x" {
		t.Errorf("FactsAt() = %+v, want exactly one fact about team-x", facts)
	}

	after, err := tmp.FactsAt(ctx, to.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("FactsAt() error = %v", err)
	}
	if len(after) != 0 {
		t.Errorf("FactsAt() after validTo = %+v, want empty", after)
	}
}

func TestTemporalAddFactRejectsInvertedValidity(t *testing.T) {
	tmp := NewTemporal(storetest.New())
	from := time.Now()
	to := from.Add(-time.Hour)
	if _, err := tmp.AddFact(context.Background(), "s", "p", "o", from, &to); err == nil {
		t.Fatal("AddFact() with validTo before validFrom, want error")
	}
}

func TestParseInstantUnixSeconds(t *testing.T) {
	when, err := ParseInstant("1748736000")
	if err != nil {
		t.Fatalf("ParseInstant() error = %v", err)
	}
	if when.Unix() != 1748736000 {
		t.Errorf("ParseInstant() = %v, want unix 1748736000", when)
	}
}

func TestParseInstantRejectsEmpty(t *testing.T) {
	if _, err := ParseInstant(""); err == nil {
		t.Fatal("ParseInstant(\"\") want error")
	}
}

func TestSpecificTimeframeIsOneSecondEachSide(t *testing.T) {
	v := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	tf := SpecificTimeframe(v)
	if !tf.From.Equal(v.Add(-time.Second)) || !tf.To.Equal(v.Add(time.Second)) {
		t.Errorf("SpecificTimeframe() = %+v, want [-1s, +1s] around %v", tf, v)
	}
}

func TestRangeTimeframeDefaultsEndToNow(t *testing.T) {
	v := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	tf := RangeTimeframe(v, nil)
	if !tf.From.Equal(v) {
		t.Errorf("RangeTimeframe() From = %v, want %v", tf.From, v)
	}
	if tf.To.Before(v) {
		t.Errorf("RangeTimeframe() To = %v, want >= From", tf.To)
	}
}

func TestRelativeTimeframeRecognizesWeek(t *testing.T) {
	tf := RelativeTimeframe("last week")
	if tf.To.Sub(tf.From) < 6*24*time.Hour {
		t.Errorf("RelativeTimeframe(last week) span = %v, want >= 6 days", tf.To.Sub(tf.From))
	}
}

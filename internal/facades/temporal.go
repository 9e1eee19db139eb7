package facades

import (
	"context"
	"strconv"
	"strings"
	"time"

	dps "github.com/markusmobius/go-dateparser"

	"github.com/moolen/magma/internal/logging"
	"github.com/moolen/magma/internal/merrors"
	"github.com/moolen/magma/internal/store"
)

// Temporal is the facade over the T_Event/T_Fact labels.
type Temporal struct {
	store  store.Adapter
	logger *logging.Logger
}

// NewTemporal constructs a Temporal facade.
func NewTemporal(adapter store.Adapter) *Temporal {
	return &Temporal{store: adapter, logger: logging.GetLogger("facades.temporal")}
}

// AddEvent persists a new TemporalEvent node.
func (t *Temporal) AddEvent(ctx context.Context, description string, occurredAt time.Time, duration time.Duration) (store.TemporalEvent, error) {
	if description == "" {
		return store.TemporalEvent{}, merrors.New(merrors.KindValidation, "temporal.addEvent", "description must not be empty")
	}
	if occurredAt.IsZero() {
		return store.TemporalEvent{}, merrors.New(merrors.KindValidation, "temporal.addEvent", "occurredAt must not be zero")
	}

	now := time.Now()
	props := map[string]interface{}{
		"description": description,
		"occurredAt":  occurredAt.UnixNano(),
		"duration":    int64(duration),
		"createdAt":   now.UnixNano(),
	}

	id, err := t.store.CreateNode(ctx, store.LabelTemporalEvent, props)
	if err != nil {
		return store.TemporalEvent{}, merrors.Wrap(merrors.KindBackend, "temporal.addEvent", err)
	}

	return store.TemporalEvent{UUID: id, Description: description, OccurredAt: occurredAt, Duration: duration, CreatedAt: now}, nil
}

// AddFact persists a new TemporalFact node.
func (t *Temporal) AddFact(ctx context.Context, subject, predicate, object string, validFrom time.Time, validTo *time.Time) (store.TemporalFact, error) {
	if subject == "" || predicate == "" || object == "" {
		return store.TemporalFact{}, merrors.New(merrors.KindValidation, "temporal.addFact", "subject, predicate and object must not be empty")
	}
	if validTo != nil && validTo.Before(validFrom) {
		return store.TemporalFact{}, merrors.New(merrors.KindTemporal, "temporal.addFact", "validTo must not precede validFrom")
	}

	now := time.Now()
	props := map[string]interface{}{
		"subject":   subject,
		"predicate": predicate,
		"object":    object,
		"validFrom": validFrom.UnixNano(),
		"createdAt": now.UnixNano(),
	}
	if validTo != nil {
		props["validTo"] = validTo.UnixNano()
	}

	id, err := t.store.CreateNode(ctx, store.LabelTemporalFact, props)
	if err != nil {
		return store.TemporalFact{}, merrors.Wrap(merrors.KindBackend, "temporal.addFact", err)
	}

	return store.TemporalFact{
		UUID: id, Subject: subject, Predicate: predicate, Object: object,
		ValidFrom: validFrom, ValidTo: validTo, CreatedAt: now,
	}, nil
}

// EventsInRange returns events whose occurredAt falls in [from, to],
// optionally restricted to events linked to entityUUID via X_INVOLVES.
func (t *Temporal) EventsInRange(ctx context.Context, from, to time.Time, entityUUID string) ([]store.TemporalEvent, error) {
	if to.Before(from) {
		return nil, merrors.New(merrors.KindTemporal, "temporal.eventsInRange", "to must not precede from")
	}
	events, err := t.store.QueryEventsInRange(ctx, from, to, entityUUID)
	if err != nil {
		return nil, merrors.Wrap(merrors.KindBackend, "temporal.eventsInRange", err)
	}
	return events, nil
}

// FactsInRange returns facts whose validity interval overlaps [from, to].
func (t *Temporal) FactsInRange(ctx context.Context, from, to time.Time) ([]store.TemporalFact, error) {
	if to.Before(from) {
		return nil, merrors.New(merrors.KindTemporal, "temporal.factsInRange", "to must not precede from")
	}
	facts, err := t.store.QueryFactsInRange(ctx, from, to)
	if err != nil {
		return nil, merrors.Wrap(merrors.KindBackend, "temporal.factsInRange", err)
	}
	return facts, nil
}

// FactsAt returns facts valid at the given instant.
func (t *Temporal) FactsAt(ctx context.Context, instant time.Time) ([]store.TemporalFact, error) {
	facts, err := t.store.GetFactsAt(ctx, instant)
	if err != nil {
		return nil, merrors.Wrap(merrors.KindBackend, "temporal.factsAt", err)
	}
	return facts, nil
}

// Timeframe is a resolved [From, To] instant pair.
type Timeframe struct {
	From time.Time
	To   time.Time
}

// SpecificTimeframe resolves a single instant into the narrow window
// [v-1s, v+1s].
func SpecificTimeframe(v time.Time) Timeframe {
	return Timeframe{From: v.Add(-time.Second), To: v.Add(time.Second)}
}

// RangeTimeframe resolves an explicit [v, end] window; end defaults to
// now when nil.
func RangeTimeframe(v time.Time, end *time.Time) Timeframe {
	to := time.Now()
	if end != nil {
		to = *end
	}
	return Timeframe{From: v, To: to}
}

// RelativeTimeframe resolves a free-form phrase ("last hour", "past day",
// "yesterday", "last week", "last month", "last year") into a window
// ending now; unrecognized phrases default to last week.
func RelativeTimeframe(expr string) Timeframe {
	now := time.Now()
	lower := strings.ToLower(strings.TrimSpace(expr))

	switch {
	case strings.Contains(lower, "hour"):
		return Timeframe{From: now.Add(-time.Hour), To: now}
	case strings.Contains(lower, "yesterday"):
		return Timeframe{From: now.Add(-48 * time.Hour), To: now.Add(-24 * time.Hour)}
	case strings.Contains(lower, "day"):
		return Timeframe{From: now.Add(-24 * time.Hour), To: now}
	case strings.Contains(lower, "week"):
		return Timeframe{From: now.Add(-7 * 24 * time.Hour), To: now}
	case strings.Contains(lower, "month"):
		return Timeframe{From: now.AddDate(0, -1, 0), To: now}
	case strings.Contains(lower, "year"):
		return Timeframe{From: now.AddDate(-1, 0, 0), To: now}
	default:
		return Timeframe{From: now.Add(-7 * 24 * time.Hour), To: now}
	}
}

// Query resolves a Timeframe into the events and facts it overlaps.
func (t *Temporal) Query(ctx context.Context, tf Timeframe) ([]store.TemporalEvent, []store.TemporalFact, error) {
	events, err := t.EventsInRange(ctx, tf.From, tf.To, "")
	if err != nil {
		return nil, nil, err
	}
	facts, err := t.FactsInRange(ctx, tf.From, tf.To)
	if err != nil {
		return nil, nil, err
	}
	return events, facts, nil
}

// QueryTimelineForEntities returns, for each entity uuid, events linked
// to it via X_INVOLVES within a wide window (now ± 1 year).
func (t *Temporal) QueryTimelineForEntities(ctx context.Context, entityUUIDs []string) (map[string][]store.TemporalEvent, error) {
	now := time.Now()
	from, to := now.Add(-365*24*time.Hour), now.Add(365*24*time.Hour)

	out := make(map[string][]store.TemporalEvent, len(entityUUIDs))
	for _, id := range entityUUIDs {
		events, err := t.EventsInRange(ctx, from, to, id)
		if err != nil {
			return nil, err
		}
		out[id] = events
	}
	return out, nil
}

// LinkEventToEntity creates an X_INVOLVES cross-link from an event to an
// entity.
func (t *Temporal) LinkEventToEntity(ctx context.Context, eventUUID, entityUUID string) error {
	props := map[string]interface{}{"createdAt": time.Now().UnixNano()}
	if err := t.store.CreateRelationship(ctx, eventUUID, entityUUID, store.RelXInvolves, props); err != nil {
		return merrors.Wrap(merrors.KindRelationship, "temporal.linkEventToEntity", err)
	}
	return nil
}

// InvalidateFact sets a fact's validTo, defaulting to now when at is nil.
func (t *Temporal) InvalidateFact(ctx context.Context, uuid string, at *time.Time) error {
	when := time.Now()
	if at != nil {
		when = *at
	}
	if err := t.store.UpdateNodeProperties(ctx, store.LabelTemporalFact, uuid, map[string]interface{}{"validTo": when.UnixNano()}); err != nil {
		return merrors.Wrap(merrors.KindTemporal, "temporal.invalidateFact", err)
	}
	return nil
}

// ParseInstant parses a timestamp string, accepting either a Unix
// timestamp (seconds) or a human-readable date phrase.
func ParseInstant(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, merrors.New(merrors.KindValidation, "temporal.parseInstant", "timestamp must not be empty")
	}

	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		if secs < 0 {
			return time.Time{}, merrors.New(merrors.KindValidation, "temporal.parseInstant", "timestamp must be non-negative")
		}
		return time.Unix(secs, 0), nil
	}

	parser := dps.Parser{}
	cfg := &dps.Configuration{PreferredDateSource: dps.CurrentPeriod}
	parsed, err := parser.Parse(cfg, s)
	if err != nil {
		return time.Time{}, merrors.Wrap(merrors.KindTemporal, "temporal.parseInstant", err)
	}
	if parsed.Time.IsZero() {
		return time.Time{}, merrors.New(merrors.KindTemporal, "temporal.parseInstant", "could not parse "+s+" as a date")
	}
	return parsed.Time, nil
}

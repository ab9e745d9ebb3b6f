package delay

import (
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

type (
	// Record is the durable form of a pending Event
	Record struct {
		ID       string `json:"id"`
		Command  string `json:"command"`
		Source   string `json:"source"`
		Tick     Tick   `json:"tick"`
		Priority int    `json:"priority"`
		Silent   bool   `json:"silent"`
	}

	// RecordError describes a durable record that could not be decoded
	RecordError struct {
		Err   error
		Field string
		Index int
	}
)

const (
	fieldID       = "id"
	fieldTick     = "tick"
	fieldCommand  = "command"
	fieldPriority = "priority"
	fieldSilent   = "silent"
	fieldSource   = "source"
)

var (
	// ErrMissingField indicates a mandatory record field was absent
	ErrMissingField = errors.New("missing mandatory field")

	// ErrMalformedField indicates a record field could not be decoded
	ErrMalformedField = errors.New("malformed field")

	// ErrDuplicateRecord indicates a record's ID was already pending
	ErrDuplicateRecord = errors.New("duplicate record identifier")
)

// NewRecord returns the durable form of the Event
func NewRecord(ev Event) Record {
	return Record{
		ID:       ev.ID,
		Tick:     ev.Tick,
		Command:  ev.Command,
		Priority: ev.Priority,
		Silent:   ev.Silent,
		Source:   ev.Source.String(),
	}
}

// Export returns a Record for each pending Event, in insertion order
func (s *Scheduler) Export() []Record {
	evs := s.pending.events()
	res := make([]Record, len(evs))
	for i, ev := range evs {
		res[i] = NewRecord(ev)
	}
	return res
}

// Import decodes and schedules each raw record in order. A record with a
// missing or malformed id, tick or command is logged and skipped. Missing or
// malformed optional fields take their defaults, and an actor reference that
// no longer resolves is degraded to the host principal. Import returns the
// number of records that were scheduled
func (s *Scheduler) Import(raws []json.RawMessage) int {
	loaded := 0
	for i, raw := range raws {
		ev, err := s.decodeRecord(i, raw)
		if err != nil {
			s.log.Warn("Skipping malformed scheduled command record",
				zap.Int("index", i),
				zap.Error(err),
			)
			continue
		}
		if !s.Add(ev) {
			s.log.Warn("Skipping duplicate scheduled command record",
				zap.Int("index", i),
				zap.String("id", ev.ID),
				zap.Error(ErrDuplicateRecord),
			)
			continue
		}
		loaded++
	}
	return loaded
}

func (s *Scheduler) decodeRecord(idx int, raw json.RawMessage) (Event, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return Event{}, &RecordError{Index: idx, Err: ErrMalformedField}
	}

	var ev Event
	if err := decodeField(fields, fieldID, &ev.ID); err != nil {
		return Event{}, &RecordError{Index: idx, Field: fieldID, Err: err}
	}
	if ev.ID == "" {
		return Event{}, &RecordError{
			Index: idx, Field: fieldID, Err: ErrMalformedField,
		}
	}
	if err := decodeField(fields, fieldTick, &ev.Tick); err != nil {
		return Event{}, &RecordError{Index: idx, Field: fieldTick, Err: err}
	}
	if err := decodeField(fields, fieldCommand, &ev.Command); err != nil {
		return Event{}, &RecordError{Index: idx, Field: fieldCommand, Err: err}
	}

	ev.Priority = DefaultPriority
	if err := decodeField(fields, fieldPriority, &ev.Priority); err != nil {
		ev.Priority = DefaultPriority
		s.logDefaulted(idx, ev.ID, fieldPriority, err)
	}
	if err := decodeField(fields, fieldSilent, &ev.Silent); err != nil {
		ev.Silent = false
		s.logDefaulted(idx, ev.ID, fieldSilent, err)
	}
	ev.Source = s.decodeSource(idx, ev.ID, fields)
	return ev, nil
}

func (s *Scheduler) decodeSource(
	idx int, id string, fields map[string]json.RawMessage,
) Source {
	var tag string
	if err := decodeField(fields, fieldSource, &tag); err != nil {
		s.log.Warn("Scheduled command source unreadable, using host",
			zap.Int("index", idx),
			zap.String("id", id),
			zap.Error(err),
		)
		return Host()
	}
	src, ok := ParseSource(tag)
	if !ok {
		s.log.Warn("Scheduled command source unrecognized, using host",
			zap.Int("index", idx),
			zap.String("id", id),
			zap.String("source", tag),
		)
		return Host()
	}
	if !src.IsHost() && s.resolver != nil &&
		!s.resolver.ResolveActor(src.Actor) {
		s.log.Warn("Scheduled command actor no longer exists, using host",
			zap.Int("index", idx),
			zap.String("id", id),
			zap.String("actor", src.Actor),
		)
		return Host()
	}
	return src
}

func (s *Scheduler) logDefaulted(idx int, id, field string, err error) {
	if errors.Is(err, ErrMissingField) {
		return
	}
	s.log.Warn("Scheduled command field malformed, using default",
		zap.Int("index", idx),
		zap.String("id", id),
		zap.String("field", field),
		zap.Error(err),
	)
}

func decodeField(
	fields map[string]json.RawMessage, name string, target any,
) error {
	raw, ok := fields[name]
	if !ok || string(raw) == "null" {
		return ErrMissingField
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedField, err)
	}
	return nil
}

func (e *RecordError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("record %d: %v", e.Index, e.Err)
	}
	return fmt.Sprintf("record %d: field %q: %v", e.Index, e.Field, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// Package remote decodes the commands a phone pushes through the relay and
// encodes the status snapshots sent back.
package remote

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/coopco/deskclock/internal/schedule"
)

// Kind is the "type" discriminator of a command document.
type Kind string

const (
	KindScheduleUpdate Kind = "REMOTE_UPDATE"
	KindRequestSync    Kind = "REQUEST_SYNC"
	KindStop           Kind = "REMOTE_STOP"
)

var (
	ErrMalformed   = errors.New("malformed remote command")
	ErrUnknownType = errors.New("unknown remote command type")
)

// Command is one of ScheduleUpdate, RequestSync or Stop.
type Command interface {
	Kind() Kind
}

// ScheduleUpdate replaces the schedule with one generated from its fields.
type ScheduleUpdate struct {
	Dates      []string
	ClockIn    string
	ClockOut   string
	Randomized bool
}

func (ScheduleUpdate) Kind() Kind { return KindScheduleUpdate }

// Request converts the update into generator input.
func (u ScheduleUpdate) Request() schedule.Request {
	return schedule.Request{
		Dates:      u.Dates,
		ClockIn:    u.ClockIn,
		ClockOut:   u.ClockOut,
		Randomized: u.Randomized,
	}
}

// RequestSync asks for the current schedule to be pushed back.
type RequestSync struct{}

func (RequestSync) Kind() Kind { return KindRequestSync }

// Stop clears the schedule and deactivates.
type Stop struct{}

func (Stop) Kind() Kind { return KindStop }

// Parse decodes a command from the message field of a relay envelope.
func Parse(message string) (Command, error) {
	message = strings.TrimSpace(message)
	if !gjson.Valid(message) {
		return nil, fmt.Errorf("%w: not JSON", ErrMalformed)
	}
	root := gjson.Parse(message)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: not an object", ErrMalformed)
	}

	kind := Kind(root.Get("type").String())
	switch kind {
	case KindScheduleUpdate:
		return parseUpdate(root)
	case KindRequestSync:
		return RequestSync{}, nil
	case KindStop:
		return Stop{}, nil
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, kind)
	}
}

func parseUpdate(root gjson.Result) (Command, error) {
	u := ScheduleUpdate{
		ClockIn:    root.Get("clockIn").String(),
		ClockOut:   root.Get("clockOut").String(),
		Randomized: root.Get("isRandomized").Bool(),
	}
	dates := root.Get("dates")
	if !dates.IsArray() {
		return nil, fmt.Errorf("%w: dates must be an array", ErrMalformed)
	}
	for _, d := range dates.Array() {
		if d.Type != gjson.String {
			return nil, fmt.Errorf("%w: date %s is not a string", ErrMalformed, d.Raw)
		}
		u.Dates = append(u.Dates, d.String())
	}
	return u, nil
}

// Encode renders cmd as the JSON document Parse accepts.
func Encode(cmd Command) ([]byte, error) {
	doc, err := sjson.SetBytes([]byte(`{}`), "type", string(cmd.Kind()))
	if err != nil {
		return nil, err
	}
	u, ok := cmd.(ScheduleUpdate)
	if !ok {
		return doc, nil
	}
	dates := u.Dates
	if dates == nil {
		dates = []string{}
	}
	fields := []struct {
		path  string
		value any
	}{
		{"dates", dates},
		{"clockIn", u.ClockIn},
		{"clockOut", u.ClockOut},
		{"isRandomized", u.Randomized},
	}
	for _, f := range fields {
		if doc, err = sjson.SetBytes(doc, f.path, f.value); err != nil {
			return nil, fmt.Errorf("encode %s: %w", f.path, err)
		}
	}
	return doc, nil
}

// Package event decodes job events pushed over the realtime channel and renders them as log lines
package event

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Kind is the "type" discriminator of a wire event
type Kind string

// known event kinds
const (
	KindProgress     Kind = "progress"
	KindStatus       Kind = "status"
	KindError        Kind = "error"
	KindSnapshot     Kind = "snapshot"
	KindHeartbeat    Kind = "heartbeat"
	KindUnrecognized Kind = "unrecognized"
)

// StatusFinished is the status value marking a completed job
const StatusFinished = "finished"

// Event is a closed union of all wire events. Every variant reports its kind and the
// top-level "status" field, if the payload had one.
type Event interface {
	Kind() Kind
	status() string
}

// Progress reports download/conversion progress
type Progress struct {
	Status  string
	Percent string
	Speed   string
	ETA     string
}

// Status reports a job status change, e.g. queued, running, finished, stopped
type Status struct {
	Status string
}

// Error reports a job failure
type Error struct {
	Message string
	Status  string
}

// Snapshot is a full job state dump sent by the server right after the channel opens.
// Only the job object is kept, the accompanying events list is not used.
type Snapshot struct {
	Job    json.RawMessage
	Status string
}

// Heartbeat is a periodic liveness signal with the current job status
type Heartbeat struct {
	Status string
	Err    string
}

// Unrecognized keeps the raw payload of an event with unknown or missing type
type Unrecognized struct {
	Type   string
	Raw    json.RawMessage
	Status string
}

// Kind returns KindProgress
func (Progress) Kind() Kind { return KindProgress }

// Kind returns KindStatus
func (Status) Kind() Kind { return KindStatus }

// Kind returns KindError
func (Error) Kind() Kind { return KindError }

// Kind returns KindSnapshot
func (Snapshot) Kind() Kind { return KindSnapshot }

// Kind returns KindHeartbeat
func (Heartbeat) Kind() Kind { return KindHeartbeat }

// Kind returns KindUnrecognized
func (Unrecognized) Kind() Kind { return KindUnrecognized }

func (e Progress) status() string     { return e.Status }
func (e Status) status() string       { return e.Status }
func (e Error) status() string        { return e.Status }
func (e Snapshot) status() string     { return e.Status }
func (e Heartbeat) status() string    { return e.Status }
func (e Unrecognized) status() string { return e.Status }

// Parse decodes a single JSON frame. Fields with unexpected JSON types are rendered as text,
// null and missing fields become empty strings. Returns error only if the frame is not a JSON object.
func Parse(data []byte) (Event, error) {
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode event: %w", err)
	}

	typ := text(fields["type"])
	st := text(fields["status"])
	switch Kind(typ) {
	case KindProgress:
		return Progress{Status: st, Percent: text(fields["percent"]), Speed: text(fields["speed"]),
			ETA: text(fields["eta"])}, nil
	case KindStatus:
		return Status{Status: st}, nil
	case KindError:
		return Error{Message: text(fields["message"]), Status: st}, nil
	case KindSnapshot:
		return Snapshot{Job: fields["job"], Status: st}, nil
	case KindHeartbeat:
		return Heartbeat{Status: st, Err: text(fields["error"])}, nil
	}
	return Unrecognized{Type: typ, Raw: compact(data), Status: st}, nil
}

// Format renders an event as a single human-readable log line
func Format(ev Event) string {
	switch e := ev.(type) {
	case Progress:
		parts := nonEmpty(e.Status, e.Percent, e.Speed)
		if e.ETA != "" {
			parts = append(parts, "ETA:"+e.ETA)
		}
		return strings.Join(parts, " ")
	case Status:
		return "STATUS: " + e.Status
	case Error:
		return "ERROR: " + e.Message
	case Snapshot:
		return "SNAPSHOT: " + string(compact(e.Job))
	case Heartbeat:
		if e.Err != "" {
			return "HEARTBEAT: " + e.Status + " | " + e.Err
		}
		return "HEARTBEAT: " + e.Status
	case Unrecognized:
		return string(e.Raw)
	}
	return fmt.Sprintf("%v", ev)
}

// Summary makes the progress text shown to the user, e.g. "downloading 50% 1.2MiB/s ETA: 00:10".
// Returns empty string for anything but progress events.
func Summary(ev Event) string {
	p, ok := ev.(Progress)
	if !ok {
		return ""
	}
	parts := nonEmpty(p.Status, p.Percent, p.Speed)
	if p.ETA != "" {
		parts = append(parts, "ETA: "+p.ETA)
	}
	return strings.Join(parts, " ")
}

// Finished checks if event signals job completion. Both a status event with "finished" and
// any other event carrying top-level status "finished" are accepted.
func Finished(ev Event) bool {
	if ev == nil {
		return false
	}
	return ev.status() == StatusFinished
}

// text converts a raw JSON value to its display text. Strings are unquoted, null is empty,
// everything else is rendered as compact JSON.
func text(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	if string(bytes.TrimSpace(raw)) == "null" {
		return ""
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return string(compact(raw))
}

func compact(raw []byte) []byte {
	if len(raw) == 0 {
		return nil
	}
	buf := bytes.Buffer{}
	if err := json.Compact(&buf, raw); err != nil {
		return raw
	}
	return buf.Bytes()
}

func nonEmpty(vals ...string) []string {
	res := make([]string, 0, len(vals))
	for _, v := range vals {
		if v != "" {
			res = append(res, v)
		}
	}
	return res
}

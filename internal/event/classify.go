// Package event implements the sanitize/classify step of the Event
// Processor (C3): splitting raw stream entries into rows ready for the hot
// store and entries that must be discarded.
package event

import (
	"encoding/json"
	"time"

	"github.com/nextchamp-saqib/pulse/internal/model"
	"github.com/nextchamp-saqib/pulse/internal/streamlog"
)

// Outcome is a tagged sum type over the result of classifying one raw
// stream entry: it is either Accepted (with a row ready for the hot
// store) or Discarded (permanently unprocessable, never an Accepted and a
// Discarded at once). Using one type with a discriminant instead of three
// parallel id lists keeps the accepted/discarded/failed-to-prepare cases
// from drifting out of sync with each other.
type Outcome struct {
	kind    outcomeKind
	EntryID string
	Row     model.HotEventRow
}

type outcomeKind int

const (
	accepted outcomeKind = iota
	discarded
)

func (o Outcome) Accepted() bool  { return o.kind == accepted }
func (o Outcome) Discarded() bool { return o.kind == discarded }

// requiredFields are the Hot Event Row columns that must be present and
// non-empty for an entry to be accepted. The row's "id" is not among them:
// it is the stream entry's own id (assigned by Redis at append time), not
// a data field, so it is always present by construction.
var requiredFields = []string{"site", "name", "timestamp"}

// Sanitize classifies every raw entry, splitting recognized table fields
// out of the opaque overflow map that becomes HotEventRow.Data.
func Sanitize(entries []streamlog.Entry) []Outcome {
	outcomes := make([]Outcome, 0, len(entries))
	for _, e := range entries {
		outcomes = append(outcomes, sanitizeOne(e))
	}
	return outcomes
}

func sanitizeOne(e streamlog.Entry) Outcome {
	for _, f := range requiredFields {
		if e.Data[f] == "" {
			return Outcome{kind: discarded, EntryID: e.ID}
		}
	}

	timestamp, err := time.Parse(time.RFC3339, e.Data["timestamp"])
	if err != nil {
		return Outcome{kind: discarded, EntryID: e.ID}
	}

	overflow := make(map[string]interface{})
	for k, v := range e.Data {
		if isTableField(k) {
			continue
		}
		overflow[k] = v
	}
	dataBlob, err := json.Marshal(overflow)
	if err != nil {
		dataBlob = []byte("{}")
	}

	row := model.HotEventRow{
		ID:            e.ID,
		Site:          e.Data["site"],
		Name:          e.Data["name"],
		App:           e.Data["app"],
		AppVersion:    e.Data["app_version"],
		FrappeVersion: e.Data["frappe_version"],
		Timestamp:     timestamp,
		Data:          string(dataBlob),
	}
	return Outcome{kind: accepted, EntryID: e.ID, Row: row}
}

func isTableField(key string) bool {
	switch key {
	case "site", "name", "app", "app_version", "frappe_version", "timestamp":
		return true
	default:
		return false
	}
}

// FromIngest builds the stream fields appended at ingest time (C2) from a
// submitted Event. The row's eventual id is the stream entry id Redis
// assigns on Append, not a field carried in the payload. captured_at is
// stringified as RFC3339 in UTC so the processor's timestamp parse always
// succeeds for well-formed input.
func FromIngest(ev model.Event, receivedAt time.Time) map[string]interface{} {
	fields := map[string]interface{}{
		"site":        ev.Site,
		"name":        ev.EventName,
		"app":         ev.App,
		"app_version": ev.AppVersion,
		"timestamp":   ev.CapturedAt.UTC().Format(time.RFC3339),
		"received_at": receivedAt.UTC().Format(time.RFC3339),
	}
	if ev.FrappeVersion != "" {
		fields["frappe_version"] = ev.FrappeVersion
	}
	if ev.User != "" {
		fields["user"] = ev.User
	}
	if len(ev.Properties) > 0 {
		if blob, err := json.Marshal(ev.Properties); err == nil {
			fields["properties"] = string(blob)
		}
	}
	return fields
}

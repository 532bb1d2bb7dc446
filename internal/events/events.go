package events

import (
	"encoding/json"
	"time"
)

// Event types published by the job store.
const (
	TypeJobsChanged = "jobs_changed"
	TypeJobCreated  = "job_created"
	TypeJobDeleted  = "job_deleted"
	TypeFetchFailed = "fetch_failed"
	TypePing        = "ping"
)

type Event struct {
	Type      string          `json:"type"`
	Version   int             `json:"v"`
	At        time.Time       `json:"at"`
	RequestID string          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

func New(reqID, typ string, data any) Event {
	var raw json.RawMessage
	if data != nil {
		b, _ := json.Marshal(data)
		raw = b
	}
	return Event{
		Type:      typ,
		Version:   1,
		At:        time.Now().UTC(),
		RequestID: reqID,
		Data:      raw,
	}
}

// JSON renders e as a single line for an SSE data field.
func (e Event) JSON() string {
	b, _ := json.Marshal(e)
	return string(b)
}

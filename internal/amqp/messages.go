package amqp

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/brandonwu32/financedashboard/internal/core"
)

// EncodeEvent converts the event to its wire JSON.
func EncodeEvent(ev core.Event) ([]byte, error) {
	return json.Marshal(ev)
}

// DecodeEvent parses a delivery body. Events without an id or type are
// rejected since the audit log keys on the id.
func DecodeEvent(data []byte) (core.Event, error) {
	var ev core.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return core.Event{}, fmt.Errorf("decode event: %w", err)
	}
	if ev.ID == "" {
		return core.Event{}, errors.New("decode event: missing id")
	}
	if ev.Type == "" {
		return core.Event{}, errors.New("decode event: missing type")
	}
	return ev, nil
}

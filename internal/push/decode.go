package push

import (
	"encoding/json"
	"fmt"
	"time"
)

// RowChange is a raw row-change notification as delivered by the transport.
// It is validated into a typed Event before anything downstream sees it.
type RowChange struct {
	Table string          `json:"table"`
	Op    string          `json:"op"`
	Row   json.RawMessage `json:"row"`
}

// DecodeRowChange validates a raw row change into a typed Event.
// Unknown tables and operations are rejected so that only the closed set of
// event kinds ever enters the caches.
func DecodeRowChange(rc RowChange) (Event, error) {
	switch rc.Table {
	case "messages":
		var row MessageRow
		if err := json.Unmarshal(rc.Row, &row); err != nil {
			return Event{}, fmt.Errorf("decode message row: %w", err)
		}
		if row.ID == "" || row.ConversationID == "" {
			return Event{}, fmt.Errorf("message row missing id or conversation_id")
		}
		var kind EventKind
		switch rc.Op {
		case "insert":
			kind = MessageInserted
		case "update":
			kind = MessageUpdated
		default:
			return Event{}, fmt.Errorf("unsupported op %q for table messages", rc.Op)
		}
		return Event{
			Kind:      kind,
			Topic:     ConversationTopic(row.ConversationID),
			Timestamp: time.Now(),
			Payload:   row,
		}, nil
	case "conversations":
		var row ConversationRow
		if err := json.Unmarshal(rc.Row, &row); err != nil {
			return Event{}, fmt.Errorf("decode conversation row: %w", err)
		}
		if row.ID == "" {
			return Event{}, fmt.Errorf("conversation row missing id")
		}
		if rc.Op != "insert" && rc.Op != "update" {
			return Event{}, fmt.Errorf("unsupported op %q for table conversations", rc.Op)
		}
		return Event{
			Kind:      ConversationChanged,
			Topic:     ConversationTopic(row.ID),
			Timestamp: time.Now(),
			Payload:   row,
		}, nil
	default:
		return Event{}, fmt.Errorf("unknown table %q", rc.Table)
	}
}

// IngestRowChange decodes and publishes a raw row change. This is the single
// ingress point for row changes entering the channel.
func (c *Channel) IngestRowChange(rc RowChange) error {
	evt, err := DecodeRowChange(rc)
	if err != nil {
		return err
	}
	c.Publish(evt)
	return nil
}

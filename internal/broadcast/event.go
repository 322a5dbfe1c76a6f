package broadcast

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/angelmondragon/noticecast/pkg/db/models"
	"github.com/angelmondragon/noticecast/pkg/enums"
	"github.com/google/uuid"
)

// Event is a store mutation pushed to connected sessions.
type Event struct {
	ID           string                   `json:"id"`
	Kind         enums.BroadcastEventKind `json:"kind"`
	Notice       *models.Notice           `json:"notice,omitempty"`
	OriginUserID uuid.UUID                `json:"originUserId"`
	OccurredAt   time.Time                `json:"occurredAt"`
}

// NoticeCreated builds the event emitted after a notice is persisted.
func NoticeCreated(notice models.Notice, origin uuid.UUID, now time.Time) Event {
	return Event{
		ID:           uuid.NewString(),
		Kind:         enums.BroadcastEventNoticeCreated,
		Notice:       &notice,
		OriginUserID: origin,
		OccurredAt:   now.UTC(),
	}
}

// SystemChanged builds the event that tells sessions to re-run resolution.
func SystemChanged(origin uuid.UUID, now time.Time) Event {
	return Event{
		ID:           uuid.NewString(),
		Kind:         enums.BroadcastEventSystemChanged,
		OriginUserID: origin,
		OccurredAt:   now.UTC(),
	}
}

// Validate checks the event carries what its kind requires.
func (e Event) Validate() error {
	if !e.Kind.IsValid() {
		return fmt.Errorf("unknown event kind %q", e.Kind)
	}
	if e.Kind == enums.BroadcastEventNoticeCreated && e.Notice == nil {
		return fmt.Errorf("%s event without notice", e.Kind)
	}
	return nil
}

// Encode serializes the event for the shared transport.
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// DecodeEvent parses and validates a transport payload.
func DecodeEvent(payload []byte) (Event, error) {
	var evt Event
	if err := json.Unmarshal(payload, &evt); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if err := evt.Validate(); err != nil {
		return Event{}, err
	}
	return evt, nil
}

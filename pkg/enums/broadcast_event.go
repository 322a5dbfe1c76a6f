package enums

import "fmt"

// BroadcastEventKind identifies the events pushed to connected sessions.
type BroadcastEventKind string

const (
	BroadcastEventNoticeCreated BroadcastEventKind = "notice_created"
	BroadcastEventSystemChanged BroadcastEventKind = "system_changed"
)

var validBroadcastEventKinds = []BroadcastEventKind{
	BroadcastEventNoticeCreated,
	BroadcastEventSystemChanged,
}

// String implements fmt.Stringer.
func (k BroadcastEventKind) String() string {
	return string(k)
}

// IsValid reports whether the kind is known.
func (k BroadcastEventKind) IsValid() bool {
	for _, candidate := range validBroadcastEventKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseBroadcastEventKind converts raw input into a BroadcastEventKind.
func ParseBroadcastEventKind(value string) (BroadcastEventKind, error) {
	for _, candidate := range validBroadcastEventKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid broadcast event kind %q", value)
}

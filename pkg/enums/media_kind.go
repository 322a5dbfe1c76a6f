package enums

import (
	"fmt"
	"strings"
)

// MediaKind maps to the notice_media_kind enum in Postgres.
type MediaKind string

const (
	MediaKindImage MediaKind = "IMAGE"
	MediaKindVideo MediaKind = "VIDEO"
)

var validMediaKinds = []MediaKind{
	MediaKindImage,
	MediaKindVideo,
}

// String returns the literal string for the kind.
func (m MediaKind) String() string {
	return string(m)
}

// IsValid reports whether the kind is known.
func (m MediaKind) IsValid() bool {
	for _, candidate := range validMediaKinds {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMediaKind converts raw input into a MediaKind.
func ParseMediaKind(value string) (MediaKind, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validMediaKinds {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid media kind %q", value)
}

// MediaKindFromMIME infers the kind from an uploaded object's content type.
// Anything that is not video/* is treated as an image.
func MediaKindFromMIME(mimeType string) MediaKind {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(mimeType)), "video") {
		return MediaKindVideo
	}
	return MediaKindImage
}

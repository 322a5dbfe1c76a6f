package enums

import (
	"fmt"
	"strings"
)

// NoticeCategory maps to the notice_category enum in Postgres.
type NoticeCategory string

const (
	NoticeCategoryInfo    NoticeCategory = "INFO"
	NoticeCategorySuccess NoticeCategory = "SUCCESS"
	NoticeCategoryWarning NoticeCategory = "WARNING"
	NoticeCategoryUrgent  NoticeCategory = "URGENT"
	NoticeCategoryPromo   NoticeCategory = "PROMO"
)

var validNoticeCategories = []NoticeCategory{
	NoticeCategoryInfo,
	NoticeCategorySuccess,
	NoticeCategoryWarning,
	NoticeCategoryUrgent,
	NoticeCategoryPromo,
}

// PassiveNoticeCategories lists the categories that never force a popup on their own.
var PassiveNoticeCategories = []NoticeCategory{
	NoticeCategoryInfo,
	NoticeCategorySuccess,
	NoticeCategoryWarning,
}

// String implements fmt.Stringer.
func (c NoticeCategory) String() string {
	return string(c)
}

// IsValid reports whether the category is one of the canonical values.
func (c NoticeCategory) IsValid() bool {
	for _, candidate := range validNoticeCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ImpliesForcedPopup reports whether notices of this category are always
// force-displayed regardless of the stored flag.
func (c NoticeCategory) ImpliesForcedPopup() bool {
	return c == NoticeCategoryUrgent || c == NoticeCategoryPromo
}

// ParseNoticeCategory converts raw strings into NoticeCategory. Matching is
// case-insensitive; unknown values are rejected.
func ParseNoticeCategory(value string) (NoticeCategory, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validNoticeCategories {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notice category %q", value)
}

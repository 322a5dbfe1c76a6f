package models

import (
	"time"

	"github.com/angelmondragon/noticecast/pkg/enums"
)

// Notice is an operator-issued message broadcast to every session. CreatedAt
// is assigned by the database unless set before insert.
type Notice struct {
	ID          int64                `gorm:"primaryKey;autoIncrement" json:"id"`
	Title       string               `gorm:"type:text;not null" json:"title"`
	Body        string               `gorm:"type:text;not null" json:"body"`
	Category    enums.NoticeCategory `gorm:"type:notice_category;not null" json:"category"`
	MediaURL    *string              `gorm:"column:media_url;type:text" json:"mediaUrl,omitempty"`
	MediaKind   *enums.MediaKind     `gorm:"type:notice_media_kind" json:"mediaKind,omitempty"`
	ForcedPopup bool                 `gorm:"not null;default:false" json:"forcedPopup"`
	CreatedAt   time.Time            `gorm:"type:timestamptz;not null;autoCreateTime:false" json:"createdAt"`
}

// TableName pins the table name.
func (Notice) TableName() string { return "notices" }

// EffectiveForcedPopup reports whether the notice must be force-displayed.
// URGENT and PROMO are always forced regardless of the stored flag.
func (n Notice) EffectiveForcedPopup() bool {
	return n.ForcedPopup || n.Category.ImpliesForcedPopup()
}

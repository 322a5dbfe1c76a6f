package models

import (
	"time"

	"github.com/google/uuid"
)

// ReadMark records that a user acknowledged a notice. The (user, notice) pair
// is the primary key so duplicate inserts collapse at the store.
type ReadMark struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	NoticeID  int64     `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"type:timestamptz;default:now()"`
}

// TableName pins the table name.
func (ReadMark) TableName() string { return "notice_read_marks" }

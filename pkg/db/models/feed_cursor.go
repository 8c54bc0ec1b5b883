package models

import "time"

// FeedCursor persists the last-consumed position of an external event feed so
// a restarted poller resumes instead of replaying from scratch.
type FeedCursor struct {
	Name      string    `gorm:"column:name;primaryKey"`
	Cursor    string    `gorm:"column:cursor;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

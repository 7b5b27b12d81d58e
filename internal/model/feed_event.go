package model

import "time"

const FeedEventTypePartnership = "partnership"

// FeedEvent 动态流记录：每次状态变更每个参与者一行，写入后不可变
type FeedEvent struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID    string    `gorm:"type:varchar(36);index:idx_feed_user_created;not null" json:"user_id"`
	Type      string    `gorm:"type:varchar(32);index;not null" json:"type"`
	RefID     string    `gorm:"type:varchar(36);index;not null" json:"ref_id"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	CreatedAt time.Time `gorm:"index:idx_feed_user_created" json:"created_at"`
}

func (FeedEvent) TableName() string { return "feed_events" }

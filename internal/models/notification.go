package models

import (
	"time"
)

// Notification is materialized by the worker from like/comment/follow events.
type Notification struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	RecipientID uint      `json:"recipient_id" gorm:"not null;index"`
	ActorID     uint      `json:"actor_id" gorm:"not null"`
	Type        string    `json:"type" gorm:"size:30;not null"`
	PostID      *uint     `json:"post_id,omitempty"`
	IsRead      bool      `json:"is_read" gorm:"default:false;index"`
	CreatedAt   time.Time `json:"created_at"`

	Recipient User `json:"-" gorm:"foreignKey:RecipientID;constraint:OnDelete:CASCADE"`
	Actor     User `json:"actor" gorm:"foreignKey:ActorID;constraint:OnDelete:CASCADE"`
}

const (
	NotificationTypeLike    = "like"
	NotificationTypeComment = "comment"
	NotificationTypeFollow  = "follow"
)

func (Notification) TableName() string {
	return "notifications"
}

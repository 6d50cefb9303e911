package model

import (
	"time"

	"github.com/google/uuid"
)

type ConversationMessage struct {
	Id             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ConversationId uuid.UUID `gorm:"type:uuid;not null;index"`
	Role           string    `gorm:"type:varchar(50);not null"`
	Content        string    `gorm:"type:text;not null"`
	References     string    `gorm:"type:text"`
	SentAt         time.Time `gorm:"not null"`
	Position       int       `gorm:"not null"` // transcript order, 0-based
}

func (ConversationMessage) TableName() string {
	return "conversation_messages"
}

package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Conversation struct {
	Id               uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionId        string         `gorm:"type:varchar(100);not null;index"`
	WorkflowType     string         `gorm:"type:varchar(20);not null"`
	CompanyName      string         `gorm:"type:text;not null;index"`
	Title            string         `gorm:"type:text;not null"`
	ExecutiveSummary string         `gorm:"type:text"`
	Origin           datatypes.JSON `gorm:"type:jsonb;not null"`
	NewsArticles     datatypes.JSON `gorm:"type:jsonb"`
	StartedAt        time.Time      `gorm:"not null"`
	ArchivedAt       time.Time      `gorm:"autoCreateTime"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime"`
	DeletedAt        gorm.DeletedAt `gorm:"index"`
}

func (Conversation) TableName() string {
	return "conversations"
}

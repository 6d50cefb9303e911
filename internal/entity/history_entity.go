package entity

import (
	"time"

	"github.com/google/uuid"
)

// Conversation is an archived analysis session. It is written once when
// a live session ends and is immutable afterwards except for deletion.
type Conversation struct {
	Id               uuid.UUID
	SessionId        string
	WorkflowType     string
	CompanyName      string
	Title            string
	ExecutiveSummary string
	Origin           Selection
	NewsArticles     []Article
	Messages         []Message
	StartedAt        time.Time
	ArchivedAt       time.Time
}

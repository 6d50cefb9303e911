package dto

import (
	"time"

	"github.com/google/uuid"
)

type HistoryItemResponse struct {
	Id           uuid.UUID `json:"id"`
	SessionId    string    `json:"session_id"`
	WorkflowType string    `json:"workflow_type"`
	CompanyName  string    `json:"company_name"`
	Title        string    `json:"title"`
	StartedAt    time.Time `json:"started_at"`
	ArchivedAt   time.Time `json:"archived_at"`
}

type HistoryDetailResponse struct {
	Id               uuid.UUID         `json:"id"`
	SessionId        string            `json:"session_id"`
	WorkflowType     string            `json:"workflow_type"`
	CompanyName      string            `json:"company_name"`
	Title            string            `json:"title"`
	ExecutiveSummary string            `json:"executive_summary"`
	NewsArticles     []ArticleResponse `json:"news_articles"`
	Messages         []MessageResponse `json:"messages"`
	StartedAt        time.Time         `json:"started_at"`
	ArchivedAt       time.Time         `json:"archived_at"`
}

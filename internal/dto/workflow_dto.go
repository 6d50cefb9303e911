package dto

import (
	"time"
)

// SelectionRequest is the wire form of a workflow selection. Exactly
// one of Sec or Upload must be set, matching WorkflowType.
type SelectionRequest struct {
	WorkflowType string                  `json:"workflow_type" validate:"required,oneof=sec upload"`
	Sec          *SecSelectionRequest    `json:"sec,omitempty"`
	Upload       *UploadSelectionRequest `json:"upload,omitempty"`
}

type SecSelectionRequest struct {
	Ticker      string        `json:"ticker" validate:"required"`
	CompanyName string        `json:"company_name"`
	Filing      FilingRequest `json:"filing" validate:"required"`
}

type FilingRequest struct {
	AccessionNumber string `json:"accession_number" validate:"required"`
	FormType        string `json:"form_type"`
	FilingDate      string `json:"filing_date"`
}

// UploadSelectionRequest carries the upload metadata; the document
// itself travels as the multipart "file" part alongside it. FileName
// and FileSize identify the chosen document before it is sent, so
// status derivation can compare it against the active session.
type UploadSelectionRequest struct {
	CompanyName string `json:"company_name" validate:"required"`
	DocTitle    string `json:"doc_title"`
	DocType     string `json:"doc_type" validate:"required"`
	Year        int    `json:"year" validate:"required"`
	FileName    string `json:"file_name"`
	FileSize    int64  `json:"file_size"`
}

type StatusResponse struct {
	Status       string           `json:"status"`
	CallToAction string           `json:"call_to_action"`
	Session      *SessionResponse `json:"session,omitempty"`
}

type SessionResponse struct {
	SessionId        string            `json:"session_id"`
	WorkflowType     string            `json:"workflow_type"`
	CompanyName      string            `json:"company_name"`
	ExecutiveSummary string            `json:"executive_summary"`
	NewsArticles     []ArticleResponse `json:"news_articles"`
	Messages         []MessageResponse `json:"messages"`
	CreatedAt        time.Time         `json:"created_at"`
}

type ArticleResponse struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	PublishedAt string `json:"published_at"`
	Source      string `json:"source,omitempty"`
}

type MessageResponse struct {
	Role       string    `json:"role"`
	Content    string    `json:"content"`
	References string    `json:"references,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// UploadDraftRequest preserves half-filled upload form state across
// reloads. It is advisory only and never validated as a selection.
type UploadDraftRequest struct {
	CompanyName string `json:"company_name"`
	DocTitle    string `json:"doc_title"`
	DocType     string `json:"doc_type"`
	Year        int    `json:"year"`
}

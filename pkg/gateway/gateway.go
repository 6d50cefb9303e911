package gateway

import (
	"context"
	"fmt"
	"io"

	"finscope-be/internal/entity"
)

// Gateway is the boundary to the analysis backend that owns the real
// session resources: temp files, vector indexes, chat state. Every
// failure is reported, never swallowed, so the orchestrator can keep
// its sequencing guarantees (end-before-replace, no silent orphans).
type Gateway interface {
	StartAnalysis(ctx context.Context, req *StartAnalysisRequest) (*StartAnalysisResult, error)
	FetchSession(ctx context.Context, sessionId string) (*SessionSnapshot, error)
	SendChat(ctx context.Context, sessionId, message string) (*ChatReply, error)
	EndSession(ctx context.Context, sessionId string) error
	Health(ctx context.Context) error
}

// StartAnalysisRequest carries the selection fields. For uploads, File
// and FileName describe the document sent as a multipart part.
type StartAnalysisRequest struct {
	WorkflowType string
	Selection    entity.Selection
	File         io.Reader
	FileName     string
}

type StartAnalysisResult struct {
	SessionId        string           `json:"session_id"`
	ExecutiveSummary string           `json:"executive_summary"`
	NewsArticles     []entity.Article `json:"news_articles"`
}

// SessionSnapshot is the backend's view of an existing session, used
// for resume-time refresh and cold-start recovery.
type SessionSnapshot struct {
	SessionId    string           `json:"session_id"`
	WorkflowType string           `json:"workflow_type"`
	Messages     []entity.Message `json:"messages"`
}

type ChatReply struct {
	Answer     string `json:"assistant_response"`
	References string `json:"references,omitempty"`
}

// Error is a non-2xx or transport failure from the analysis backend.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("analysis backend: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("analysis backend: %s", e.Message)
}

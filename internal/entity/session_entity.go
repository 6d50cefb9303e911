package entity

import (
	"encoding/json"
	"time"
)

type Message struct {
	Role       string    `json:"role"`
	Content    string    `json:"content"`
	References string    `json:"references,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

type Article struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	PublishedAt string `json:"published_at"`
	Source      string `json:"source,omitempty"`
}

// Session is a backend-confirmed unit of analysis work. Origin is the
// exact selection that caused the backend to allocate the session and
// never changes; Messages are append-only. Summary and news are fixed
// at creation and only change when the session is replaced wholesale.
type Session struct {
	SessionId        string
	WorkflowType     string
	Origin           Selection
	ExecutiveSummary string
	NewsArticles     []Article
	Messages         []Message
	CreatedAt        time.Time
}

// Clone returns a deep-enough copy for handing out to readers: slices
// are copied so appends on the live session cannot race a consumer.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	cp.NewsArticles = append([]Article(nil), s.NewsArticles...)
	cp.Messages = append([]Message(nil), s.Messages...)
	return &cp
}

// storedSession is the persisted shape; Origin needs the variant
// envelope since Selection is an interface.
type storedSession struct {
	SessionId        string          `json:"session_id"`
	WorkflowType     string          `json:"workflow_type"`
	Origin           json.RawMessage `json:"origin"`
	ExecutiveSummary string          `json:"executive_summary"`
	NewsArticles     []Article       `json:"news_articles"`
	Messages         []Message       `json:"messages"`
	CreatedAt        time.Time       `json:"created_at"`
}

func (s *Session) MarshalJSON() ([]byte, error) {
	origin, err := EncodeSelection(s.Origin)
	if err != nil {
		return nil, err
	}
	return json.Marshal(storedSession{
		SessionId:        s.SessionId,
		WorkflowType:     s.WorkflowType,
		Origin:           origin,
		ExecutiveSummary: s.ExecutiveSummary,
		NewsArticles:     s.NewsArticles,
		Messages:         s.Messages,
		CreatedAt:        s.CreatedAt,
	})
}

func (s *Session) UnmarshalJSON(data []byte) error {
	var stored storedSession
	if err := json.Unmarshal(data, &stored); err != nil {
		return err
	}
	origin, err := DecodeSelection(stored.Origin)
	if err != nil {
		return err
	}
	s.SessionId = stored.SessionId
	s.WorkflowType = stored.WorkflowType
	s.Origin = origin
	s.ExecutiveSummary = stored.ExecutiveSummary
	s.NewsArticles = stored.NewsArticles
	s.Messages = stored.Messages
	s.CreatedAt = stored.CreatedAt
	return nil
}

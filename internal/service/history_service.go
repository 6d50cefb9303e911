package service

import (
	"context"
	"fmt"

	"finscope-be/internal/constant"
	"finscope-be/internal/dto"
	"finscope-be/internal/entity"
	"finscope-be/internal/pkg/logger"
	"finscope-be/internal/repository/contract"
	"finscope-be/internal/repository/specification"

	"github.com/google/uuid"
)

const recentHistoryLimit = 50

type IHistoryService interface {
	Recent(ctx context.Context, query string) ([]*dto.HistoryItemResponse, error)
	Detail(ctx context.Context, id uuid.UUID) (*dto.HistoryDetailResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// Archive implements workflow.Archiver: it snapshots an ended
	// session into the history store.
	Archive(ctx context.Context, session *entity.Session) error
}

type historyService struct {
	repository contract.HistoryRepository
	logger     logger.ILogger
}

func NewHistoryService(repository contract.HistoryRepository, log logger.ILogger) IHistoryService {
	return &historyService{
		repository: repository,
		logger:     log,
	}
}

func (s *historyService) Recent(ctx context.Context, query string) ([]*dto.HistoryItemResponse, error) {
	conversations, err := s.repository.FindAll(ctx,
		specification.ByCompanyQuery{Query: query},
		specification.OrderBy{Field: "archived_at", Desc: true},
		specification.Pagination{Limit: recentHistoryLimit},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}

	result := make([]*dto.HistoryItemResponse, len(conversations))
	for i, c := range conversations {
		result[i] = &dto.HistoryItemResponse{
			Id:           c.Id,
			SessionId:    c.SessionId,
			WorkflowType: c.WorkflowType,
			CompanyName:  c.CompanyName,
			Title:        c.Title,
			StartedAt:    c.StartedAt,
			ArchivedAt:   c.ArchivedAt,
		}
	}
	return result, nil
}

func (s *historyService) Detail(ctx context.Context, id uuid.UUID) (*dto.HistoryDetailResponse, error) {
	c, err := s.repository.FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	if c == nil {
		return nil, nil
	}

	articles := make([]dto.ArticleResponse, len(c.NewsArticles))
	for i, a := range c.NewsArticles {
		articles[i] = dto.ArticleResponse{
			Title:       a.Title,
			URL:         a.URL,
			PublishedAt: a.PublishedAt,
			Source:      a.Source,
		}
	}

	messages := make([]dto.MessageResponse, len(c.Messages))
	for i, m := range c.Messages {
		messages[i] = dto.MessageResponse{
			Role:       m.Role,
			Content:    m.Content,
			References: m.References,
			Timestamp:  m.Timestamp,
		}
	}

	return &dto.HistoryDetailResponse{
		Id:               c.Id,
		SessionId:        c.SessionId,
		WorkflowType:     c.WorkflowType,
		CompanyName:      c.CompanyName,
		Title:            c.Title,
		ExecutiveSummary: c.ExecutiveSummary,
		NewsArticles:     articles,
		Messages:         messages,
		StartedAt:        c.StartedAt,
		ArchivedAt:       c.ArchivedAt,
	}, nil
}

func (s *historyService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repository.Delete(ctx, id)
}

func (s *historyService) Archive(ctx context.Context, session *entity.Session) error {
	if session == nil {
		return nil
	}

	company := ""
	if session.Origin != nil {
		company = session.Origin.Company()
	}

	conversation := &entity.Conversation{
		SessionId:        session.SessionId,
		WorkflowType:     session.WorkflowType,
		CompanyName:      company,
		Title:            conversationTitle(session),
		ExecutiveSummary: session.ExecutiveSummary,
		Origin:           session.Origin,
		NewsArticles:     session.NewsArticles,
		Messages:         session.Messages,
		StartedAt:        session.CreatedAt,
	}

	if err := s.repository.Create(ctx, conversation); err != nil {
		return fmt.Errorf("failed to archive conversation: %w", err)
	}

	s.logger.Info("HistoryService", "Conversation archived", map[string]interface{}{
		"conversation_id": conversation.Id.String(),
		"session_id":      session.SessionId,
		"messages":        len(session.Messages),
	})
	return nil
}

func conversationTitle(session *entity.Session) string {
	switch origin := session.Origin.(type) {
	case entity.SecSelection:
		if origin.Filing.FormType != "" {
			return fmt.Sprintf("%s %s (%s)", origin.Company(), origin.Filing.FormType, origin.Filing.AccessionNumber)
		}
		return fmt.Sprintf("%s (%s)", origin.Company(), origin.Filing.AccessionNumber)
	case entity.UploadSelection:
		if origin.DocTitle != "" {
			return origin.DocTitle
		}
		return fmt.Sprintf("%s %s %d", origin.Company(), origin.DocType, origin.Year)
	default:
		if session.WorkflowType == constant.WorkflowUpload {
			return "Uploaded document analysis"
		}
		return "Filing analysis"
	}
}

package mapper

import (
	"encoding/json"
	"fmt"

	"finscope-be/internal/entity"
	"finscope-be/internal/model"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type HistoryMapper struct{}

func NewHistoryMapper() *HistoryMapper {
	return &HistoryMapper{}
}

func (m *HistoryMapper) ConversationToModel(c *entity.Conversation) (*model.Conversation, error) {
	if c == nil {
		return nil, nil
	}

	origin, err := entity.EncodeSelection(c.Origin)
	if err != nil {
		return nil, fmt.Errorf("failed to encode selection: %w", err)
	}

	var news []byte
	if len(c.NewsArticles) > 0 {
		news, err = json.Marshal(c.NewsArticles)
		if err != nil {
			return nil, fmt.Errorf("failed to encode news articles: %w", err)
		}
	}

	return &model.Conversation{
		Id:               c.Id,
		SessionId:        c.SessionId,
		WorkflowType:     c.WorkflowType,
		CompanyName:      c.CompanyName,
		Title:            c.Title,
		ExecutiveSummary: c.ExecutiveSummary,
		Origin:           datatypes.JSON(origin),
		NewsArticles:     datatypes.JSON(news),
		StartedAt:        c.StartedAt,
		ArchivedAt:       c.ArchivedAt,
	}, nil
}

// ConversationToEntity rebuilds the entity. A selection payload that no
// longer decodes, e.g. after a format change, yields a nil Origin
// rather than losing the whole record.
func (m *HistoryMapper) ConversationToEntity(c *model.Conversation) *entity.Conversation {
	if c == nil {
		return nil
	}

	origin, _ := entity.DecodeSelection(c.Origin)

	var news []entity.Article
	if len(c.NewsArticles) > 0 {
		_ = json.Unmarshal(c.NewsArticles, &news)
	}

	return &entity.Conversation{
		Id:               c.Id,
		SessionId:        c.SessionId,
		WorkflowType:     c.WorkflowType,
		CompanyName:      c.CompanyName,
		Title:            c.Title,
		ExecutiveSummary: c.ExecutiveSummary,
		Origin:           origin,
		NewsArticles:     news,
		StartedAt:        c.StartedAt,
		ArchivedAt:       c.ArchivedAt,
	}
}

func (m *HistoryMapper) MessagesToModels(conversationId uuid.UUID, msgs []entity.Message) []*model.ConversationMessage {
	models := make([]*model.ConversationMessage, len(msgs))
	for i, msg := range msgs {
		models[i] = &model.ConversationMessage{
			ConversationId: conversationId,
			Role:           msg.Role,
			Content:        msg.Content,
			References:     msg.References,
			SentAt:         msg.Timestamp,
			Position:       i,
		}
	}
	return models
}

func (m *HistoryMapper) MessagesToEntities(models []*model.ConversationMessage) []entity.Message {
	msgs := make([]entity.Message, len(models))
	for i, mm := range models {
		msgs[i] = entity.Message{
			Role:       mm.Role,
			Content:    mm.Content,
			References: mm.References,
			Timestamp:  mm.SentAt,
		}
	}
	return msgs
}

package contract

import (
	"context"

	"finscope-be/internal/entity"
	"finscope-be/internal/repository/specification"

	"github.com/google/uuid"
)

type HistoryRepository interface {
	// Create persists the conversation and its transcript atomically.
	Create(ctx context.Context, conversation *entity.Conversation) error
	// FindAll returns conversation headers without transcripts.
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Conversation, error)
	// FindOne returns a single conversation with its full transcript,
	// or nil when no record matches.
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Conversation, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}

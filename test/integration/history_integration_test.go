package integration

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"finscope-be/internal/constant"
	"finscope-be/internal/entity"
	"finscope-be/internal/model"
	"finscope-be/internal/repository/implementation"
	"finscope-be/internal/repository/specification"
	"finscope-be/pkg/database"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryArchiveRoundTrip(t *testing.T) {
	if err := godotenv.Load("../../.env"); err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	gormDB, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		t.Fatalf("Failed to connect to DB: %v", err)
	}
	require.NoError(t, gormDB.AutoMigrate(&model.Conversation{}, &model.ConversationMessage{}))

	repo := implementation.NewHistoryRepository(gormDB)
	ctx := context.Background()

	conversation := &entity.Conversation{
		SessionId:    "sess-it",
		WorkflowType: constant.WorkflowSec,
		CompanyName:  "Acme Corp",
		Title:        "Acme Corp 10-K (0001-23)",
		Origin: entity.SecSelection{
			Ticker: "ACME", CompanyName: "Acme Corp",
			Filing: entity.Filing{AccessionNumber: "0001-23", FormType: "10-K"},
		},
		Messages: []entity.Message{
			{Role: constant.ChatMessageRoleUser, Content: "q", Timestamp: time.Now()},
			{Role: constant.ChatMessageRoleAssistant, Content: "a", Timestamp: time.Now()},
		},
		StartedAt: time.Now().Add(-time.Hour),
	}
	require.NoError(t, repo.Create(ctx, conversation))
	defer func() {
		assert.NoError(t, repo.Delete(ctx, conversation.Id))
	}()

	t.Run("Recent listing matches company query", func(t *testing.T) {
		items, err := repo.FindAll(ctx,
			specification.ByCompanyQuery{Query: "acme"},
			specification.OrderBy{Field: "archived_at", Desc: true},
		)
		require.NoError(t, err)
		require.NotEmpty(t, items)
		assert.Equal(t, "Acme Corp", items[0].CompanyName)
	})

	t.Run("Detail restores transcript and selection", func(t *testing.T) {
		detail, err := repo.FindOne(ctx, specification.ByID{ID: conversation.Id})
		require.NoError(t, err)
		require.NotNil(t, detail)
		assert.Len(t, detail.Messages, 2)
		assert.Equal(t, constant.ChatMessageRoleUser, detail.Messages[0].Role)
		require.NotNil(t, detail.Origin)
		assert.True(t, entity.SameSelection(detail.Origin, conversation.Origin))
	})
}

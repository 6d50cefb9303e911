package integration

import (
	"context"
	"log"
	"os"
	"testing"

	"finscope-be/internal/constant"
	"finscope-be/internal/entity"
	"finscope-be/pkg/store"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStoreRoundTrip(t *testing.T) {
	if err := godotenv.Load("../../.env"); err != nil {
		log.Println("No .env file found, using system env")
	}

	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("Skipping integration test: REDIS_URL not set")
	}

	st, err := store.NewRedisStore(url)
	if err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}

	ctx := context.Background()
	key := "finscope:test:active_session"
	defer func() {
		assert.NoError(t, st.Clear(ctx, key))
	}()

	sess := &entity.Session{
		SessionId:    "sess-redis-it",
		WorkflowType: constant.WorkflowSec,
		Origin: entity.SecSelection{
			Ticker: "ACME", CompanyName: "Acme Corp",
			Filing: entity.Filing{AccessionNumber: "0001-23"},
		},
		Messages: []entity.Message{},
	}
	require.NoError(t, st.Save(ctx, key, sess))

	var loaded entity.Session
	found, err := st.Load(ctx, key, &loaded)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "sess-redis-it", loaded.SessionId)
	require.NotNil(t, loaded.Origin)
	assert.True(t, entity.SameSelection(loaded.Origin, sess.Origin))

	require.NoError(t, st.Clear(ctx, key))
	found, err = st.Load(ctx, key, &loaded)
	require.NoError(t, err)
	assert.False(t, found)
}

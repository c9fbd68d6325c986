package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	testutil "github.com/charlesng35/leadflow/internal/database/testutil"
	"github.com/charlesng35/leadflow/internal/models"
	apperrors "github.com/charlesng35/leadflow/pkg/errors"
)

func TestKeywordReply(t *testing.T) {
	reply, ok := KeywordReply("How much does it COST?")
	require.True(t, ok)
	require.Contains(t, reply, "Pricing")

	reply, ok = KeywordReply("Can you automate WhatsApp?")
	require.True(t, ok)
	require.Contains(t, reply, "WhatsApp")

	reply, ok = KeywordReply("zzz")
	require.False(t, ok)
	require.Equal(t, fallbackReply, reply)
}

func TestChatServiceKeywordReplyStoresTranscript(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewChatService(db)
	require.NoError(t, err)
	ctx := context.Background()

	reply, err := svc.Reply(ctx, ChatInput{SessionID: "s-1", Message: "I want to book a call"})
	require.NoError(t, err)
	require.Equal(t, ReplyOriginKeyword, reply.Origin)

	reply, err = svc.Reply(ctx, ChatInput{SessionID: "s-1", Message: "qwerty"})
	require.NoError(t, err)
	require.Equal(t, ReplyOriginFallback, reply.Origin)

	transcript, err := svc.Transcript(ctx, "s-1")
	require.NoError(t, err)
	require.Len(t, transcript, 4)
	require.Equal(t, models.ChatRoleUser, transcript[0].Role)
	require.Equal(t, models.ChatRoleBot, transcript[1].Role)
	require.Equal(t, ReplyOriginKeyword, transcript[1].Origin)

	_, err = svc.Reply(ctx, ChatInput{SessionID: "s-2", Message: "hello"})
	require.NoError(t, err)

	sessions, err := svc.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	counts := map[string]int64{}
	for _, s := range sessions {
		counts[s.SessionID] = s.MessageCount
		require.False(t, s.LastMessageAt.IsZero())
	}
	require.Equal(t, map[string]int64{"s-1": 4, "s-2": 2}, counts)

	_, err = svc.Transcript(ctx, "unknown")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestChatServiceValidation(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewChatService(db)
	require.NoError(t, err)

	_, err = svc.Reply(context.Background(), ChatInput{SessionID: "s", Message: "  "})
	require.True(t, apperrors.IsValidation(err))
	_, err = svc.Reply(context.Background(), ChatInput{Message: "hi"})
	require.True(t, apperrors.IsValidation(err))
}

func TestChatServiceUsesWebhook(t *testing.T) {
	var received map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"output":"Workflow says hi"}`))
	}))
	defer server.Close()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewChatService(db, WithChatWebhook(server.URL, 0))
	require.NoError(t, err)

	reply, err := svc.Reply(context.Background(), ChatInput{SessionID: "s-1", Message: "pricing?"})
	require.NoError(t, err)
	require.Equal(t, ReplyOriginWebhook, reply.Origin)
	require.Equal(t, "Workflow says hi", reply.Reply)
	require.Equal(t, "s-1", received["session_id"])
	require.Equal(t, "pricing?", received["message"])
}

func TestChatServiceWebhookFailureFallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewChatService(db, WithChatWebhook(server.URL, 0))
	require.NoError(t, err)

	reply, err := svc.Reply(context.Background(), ChatInput{SessionID: "s-1", Message: "pricing?"})
	require.NoError(t, err)
	require.Equal(t, ReplyOriginKeyword, reply.Origin)
}

func TestWithChatWebhookCapsTimeout(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewChatService(db, WithChatWebhook("http://example.invalid", 5*DefaultWebhookTimeout))
	require.NoError(t, err)
	require.Equal(t, DefaultWebhookTimeout, svc.client.Timeout)
}

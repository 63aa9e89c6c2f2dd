package history

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VinayJayadev/GraphRAG-powered-ChatBot/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:", nil)
	require.NoError(t, err)
	return s
}

func TestConversationLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	conv, err := s.CreateConversation(ctx, "my chat")
	require.NoError(t, err)
	assert.NotEmpty(t, conv.ID)
	assert.Equal(t, "my chat", conv.Title)

	got, err := s.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, got.ID)

	list, err := s.ListConversations(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, s.DeleteConversation(ctx, conv.ID))
	_, err = s.GetConversation(ctx, conv.ID)
	assert.Equal(t, types.ErrNotFound, types.CodeOf(err))
}

func TestGetConversationNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetConversation(context.Background(), "nope")
	assert.Equal(t, types.ErrNotFound, types.CodeOf(err))
}

func TestDeleteConversationNotFound(t *testing.T) {
	s := newTestStore(t)
	err := s.DeleteConversation(context.Background(), "nope")
	assert.Equal(t, types.ErrNotFound, types.CodeOf(err))
}

func TestAppendTurnAndMessages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	conv, err := s.CreateConversation(ctx, "chat")
	require.NoError(t, err)

	require.NoError(t, s.AppendTurn(ctx, conv.ID, "hi", "hello", `{"sources":[]}`))
	require.NoError(t, s.AppendTurn(ctx, conv.ID, "more", "sure", ""))

	msgs, err := s.Messages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	assert.Equal(t, []string{"user", "assistant", "user", "assistant"},
		[]string{msgs[0].Role, msgs[1].Role, msgs[2].Role, msgs[3].Role})
	assert.Equal(t, `{"sources":[]}`, msgs[1].Metadata)
}

func TestAppendTurnUnknownConversation(t *testing.T) {
	s := newTestStore(t)
	err := s.AppendTurn(context.Background(), "nope", "q", "a", "")
	assert.Equal(t, types.ErrNotFound, types.CodeOf(err))
}

func TestRecentTurnsLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	conv, err := s.CreateConversation(ctx, "chat")
	require.NoError(t, err)

	require.NoError(t, s.AppendTurn(ctx, conv.ID, "q1", "a1", ""))
	require.NoError(t, s.AppendTurn(ctx, conv.ID, "q2", "a2", ""))
	require.NoError(t, s.AppendTurn(ctx, conv.ID, "q3", "a3", ""))

	turns, err := s.RecentTurns(ctx, conv.ID, 4)
	require.NoError(t, err)
	require.Len(t, turns, 4)
	// 取最近 4 条并按时间升序返回
	assert.Equal(t, "q2", turns[0].Content)
	assert.Equal(t, "a2", turns[1].Content)
	assert.Equal(t, "q3", turns[2].Content)
	assert.Equal(t, "a3", turns[3].Content)

	none, err := s.RecentTurns(ctx, conv.ID, 0)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestDeleteConversationRemovesMessages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	conv, err := s.CreateConversation(ctx, "chat")
	require.NoError(t, err)
	require.NoError(t, s.AppendTurn(ctx, conv.ID, "q", "a", ""))

	require.NoError(t, s.DeleteConversation(ctx, conv.ID))

	msgs, err := s.Messages(ctx, conv.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

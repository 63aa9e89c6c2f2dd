package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kbCandidate(filename, topic string, score float64) Candidate {
	return Candidate{
		Chunk:         Chunk{ID: filename + topic, Filename: filename, Topic: topic, Text: "text of " + topic},
		CombinedScore: score,
	}
}

func TestRankDedupesByFilenameTopic(t *testing.T) {
	r := NewReranker(8, nil)

	kb := []Candidate{
		kbCandidate("a.txt", "Alpha", 0.5),
		kbCandidate("a.txt", "Alpha", 0.9), // 同 (filename, topic)，保留更高分
		kbCandidate("b.txt", "Beta", 0.7),
	}

	got := r.Rank(kb, nil)
	require.Len(t, got, 2)

	first, ok := got[0].(KnowledgeBaseSource)
	require.True(t, ok)
	assert.Equal(t, "a.txt", first.Filename)
	assert.InDelta(t, 0.9, first.Score, 1e-9)
	assert.True(t, first.Primary)

	second := got[1].(KnowledgeBaseSource)
	assert.Equal(t, "b.txt", second.Filename)
	assert.False(t, second.Primary)
}

func TestRankStableOnTies(t *testing.T) {
	r := NewReranker(8, nil)

	kb := []Candidate{
		kbCandidate("first.txt", "First", 0.5),
		kbCandidate("second.txt", "Second", 0.5),
	}

	got := r.Rank(kb, nil)
	require.Len(t, got, 2)
	assert.Equal(t, "first.txt", got[0].(KnowledgeBaseSource).Filename)
	assert.Equal(t, "second.txt", got[1].(KnowledgeBaseSource).Filename)
}

func TestRankAppendsWebAfterKB(t *testing.T) {
	r := NewReranker(8, nil)

	kb := []Candidate{kbCandidate("a.txt", "Alpha", 0.2)}
	web := []WebSearchSource{
		{Provider: "brave", Query: "q", Note: "web one"},
		{Provider: "brave", Query: "q", Note: "web two"},
	}

	got := r.Rank(kb, web)
	require.Len(t, got, 3)
	assert.Equal(t, SourceKindKnowledgeBase, got[0].Kind())
	assert.Equal(t, SourceKindWebSearch, got[1].Kind())
	assert.Equal(t, "web one", got[1].(WebSearchSource).Note)
	assert.Equal(t, "web two", got[2].(WebSearchSource).Note)
}

func TestRankTruncationKeepsKBPriority(t *testing.T) {
	r := NewReranker(2, nil)

	kb := []Candidate{
		kbCandidate("a.txt", "Alpha", 0.9),
		kbCandidate("b.txt", "Beta", 0.8),
	}
	web := []WebSearchSource{{Provider: "brave", Query: "q", Note: "web"}}

	got := r.Rank(kb, web)
	require.Len(t, got, 2)
	for _, s := range got {
		assert.Equal(t, SourceKindKnowledgeBase, s.Kind())
	}
}

func TestRankEmptyInput(t *testing.T) {
	r := NewReranker(8, nil)
	assert.Empty(t, r.Rank(nil, nil))
}

func TestTruncatePreview(t *testing.T) {
	short := "short text"
	assert.Equal(t, short, truncatePreview(short))

	long := strings.Repeat("x", 300)
	got := truncatePreview(long)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.LessOrEqual(t, len(got), previewLimit+3)
}

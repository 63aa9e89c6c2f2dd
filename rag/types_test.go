package rag

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bogusSource struct{}

func (bogusSource) Kind() SourceKind { return "bogus" }

func TestMarshalSourceDiscriminator(t *testing.T) {
	kb, err := MarshalSource(KnowledgeBaseSource{Topic: "T", Filename: "t.txt", Score: 0.9, Primary: true})
	require.NoError(t, err)

	var kbMap map[string]any
	require.NoError(t, json.Unmarshal(kb, &kbMap))
	assert.Equal(t, "knowledge_base", kbMap["type"])
	assert.Equal(t, "T", kbMap["topic"])
	assert.Equal(t, true, kbMap["primary"])

	web, err := MarshalSource(WebSearchSource{Provider: "brave", Query: "q", Note: "n"})
	require.NoError(t, err)

	var webMap map[string]any
	require.NoError(t, json.Unmarshal(web, &webMap))
	assert.Equal(t, "web_search", webMap["type"])
	assert.Equal(t, "brave", webMap["provider"])
}

func TestMarshalSourceRejectsUnknownKind(t *testing.T) {
	_, err := MarshalSource(bogusSource{})
	assert.Error(t, err)
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.Equal(t, 2, cfg.Retrieval.ExpandDepth)
	assert.Equal(t, 0.7, cfg.Retrieval.VectorWeight)
	assert.Equal(t, 0.3, cfg.Retrieval.GraphWeight)
	assert.Equal(t, "documents", cfg.Qdrant.Collection)
	assert.Equal(t, "brave", cfg.WebSearch.Provider)
}

func TestLoad_YAMLOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: 9001
retrieval:
  top_k: 8
  expand_depth: 3
web_search:
  provider: serper
  timeout: 3s
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 9001, cfg.Server.Port)
	assert.Equal(t, 8, cfg.Retrieval.TopK)
	assert.Equal(t, 3, cfg.Retrieval.ExpandDepth)
	assert.Equal(t, "serper", cfg.WebSearch.Provider)
	assert.Equal(t, 3*time.Second, cfg.WebSearch.Timeout)
	// 未覆盖的字段保留默认值
	assert.Equal(t, 0.7, cfg.Retrieval.VectorWeight)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("CHATBOT_SERVER_PORT", "9100")
	t.Setenv("CHATBOT_LLM_MODEL", "openai/gpt-4o")
	t.Setenv("CHATBOT_LLM_TIMEOUT", "90s")
	t.Setenv("CHATBOT_RETRIEVAL_GRAPH_WEIGHT", "0.2")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "openai/gpt-4o", cfg.LLM.Model)
	assert.Equal(t, 90*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 0.2, cfg.Retrieval.GraphWeight)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath("/nonexistent/config.yaml").Load()
	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.Server.Port)
}

func TestLoad_ValidationRejectsBadWeights(t *testing.T) {
	t.Setenv("CHATBOT_RETRIEVAL_VECTOR_WEIGHT", "0.2")
	t.Setenv("CHATBOT_RETRIEVAL_GRAPH_WEIGHT", "0.8")

	_, err := NewLoader().Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vector_weight")
}

func TestLoad_ValidationRejectsZeroTopK(t *testing.T) {
	t.Setenv("CHATBOT_RETRIEVAL_TOP_K", "0")

	_, err := NewLoader().Load()
	require.Error(t, err)
}

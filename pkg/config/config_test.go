package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)

	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, "text-embedding-3-small", cfg.LLM.EmbeddingModel)
	assert.Equal(t, 1536, cfg.Milvus.VectorDim)

	assert.True(t, cfg.Chat.Streaming)
	assert.Equal(t, 500, cfg.Chat.MaxMessageLen)
	assert.Equal(t, 30, cfg.Chat.TimeoutSec)

	assert.Equal(t, 10, cfg.Selection.MaxDocuments)

	assert.Equal(t, 800, cfg.Ingestion.ChunkWords)
	assert.Equal(t, 200, cfg.Ingestion.StrideWords)
	assert.Equal(t, 100, cfg.Ingestion.EmbedBatch)

	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadEnvironmentOverride(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("GOVSCAN_SERVER_PORT", "9090")
	t.Setenv("GOVSCAN_CHAT_STREAMING", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.False(t, cfg.Chat.Streaming)
}

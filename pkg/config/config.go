package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	SQLite    SQLiteConfig
	Milvus    MilvusConfig
	Redis     RedisConfig
	LLM       LLMConfig
	Auth      AuthConfig
	Chat      ChatConfig
	Selection SelectionConfig
	Ingestion IngestionConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

type SQLiteConfig struct {
	Path string
}

type MilvusConfig struct {
	Endpoint       string
	APIKey         string
	CollectionName string
	VectorDim      int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	// EmbeddingTTL is in seconds.
	EmbeddingTTL int
}

type LLMConfig struct {
	APIKey         string
	Model          string
	EmbeddingModel string
	Temperature    float32
	MaxTokens      int
	TimeoutSec     int
}

type AuthConfig struct {
	RefreshURL string
	APIKey     string
	// ExpirySkewSec refreshes tokens this many seconds before they expire.
	ExpirySkewSec int
}

type ChatConfig struct {
	// Streaming selects token-streamed delivery for chat turns by default;
	// individual requests can still override it.
	Streaming     bool
	MaxMessageLen int
	TimeoutSec    int
}

type SelectionConfig struct {
	MaxDocuments int
	StorePath    string
}

type IngestionConfig struct {
	ChunkWords  int
	StrideWords int
	EmbedBatch  int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/govscan")

	viper.SetEnvPrefix("GOVSCAN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 30)
	viper.SetDefault("server.bodyLimit", 10485760)

	viper.SetDefault("sqlite.path", "./data/govscan.db")

	viper.SetDefault("milvus.endpoint", "localhost:19530")
	viper.SetDefault("milvus.collectionName", "gov_passages")
	viper.SetDefault("milvus.vectorDim", 1536)

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.embeddingTTL", 86400)

	viper.SetDefault("llm.model", "gpt-4o")
	viper.SetDefault("llm.embeddingModel", "text-embedding-3-small")
	viper.SetDefault("llm.temperature", 0.2)
	viper.SetDefault("llm.maxTokens", 1024)
	viper.SetDefault("llm.timeoutSec", 60)

	viper.SetDefault("auth.expirySkewSec", 30)

	viper.SetDefault("chat.streaming", true)
	viper.SetDefault("chat.maxMessageLen", 500)
	viper.SetDefault("chat.timeoutSec", 30)

	viper.SetDefault("selection.maxDocuments", 10)
	viper.SetDefault("selection.storePath", "./data/selection")

	viper.SetDefault("ingestion.chunkWords", 800)
	viper.SetDefault("ingestion.strideWords", 200)
	viper.SetDefault("ingestion.embedBatch", 100)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}

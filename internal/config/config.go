package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/cozee/docchat/internal/filestore"
	"github.com/cozee/docchat/internal/pkg/logutil"
	"github.com/cozee/docchat/internal/repo"
)

type AIConfig struct {
	Provider   string      `json:"provider"`
	Data       interface{} `json:"data"`
	EmbedModel string      `json:"embed_model"`
	ChatModel  string      `json:"chat_model"`
}

type IngestConfig struct {
	ChunkSize int `json:"chunk_size"`
	Workers   int `json:"workers"`
	Backlog   int `json:"backlog"`
}

type JobConfig struct {
	IngestStatusCleanupSpec string `json:"ingest_status_cleanup_spec"`
	IngestStatusKeepDays    int    `json:"ingest_status_keep_days"`
	FailedVectorCleanupSpec string `json:"failed_vector_cleanup_spec"`
	FailedVectorKeepHours   int    `json:"failed_vector_keep_hours"`
}

type Config struct {
	Port                 int                 `json:"port"`
	JWTSecret            string              `json:"jwt_secret"`
	JWTTTLHours          int                 `json:"jwt_ttl_hours"`
	LogConfig            logutil.Config      `json:"log_config"`
	Database             repo.DatabaseConfig `json:"database"`
	FileStore            filestore.Config    `json:"file_store"`
	AI                   AIConfig            `json:"ai"`
	Ingest               IngestConfig        `json:"ingest"`
	TopK                 int                 `json:"top_k"`
	CORSAllowlist        []string            `json:"cors_allowlist"`
	RateLimitWindowMilli int                 `json:"rate_limit_window_millis"`
	Jobs                 JobConfig           `json:"jobs"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt_secret is required")
	}
	if cfg.JWTTTLHours == 0 {
		cfg.JWTTTLHours = 72
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return nil, fmt.Errorf("database.dsn or database.host is required")
	}
	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "local"
		cfg.FileStore.Data = map[string]interface{}{"dir": "./data/files"}
	}
	if cfg.AI.Provider == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	if cfg.AI.EmbedModel == "" {
		cfg.AI.EmbedModel = "text-embedding-ada-002"
	}
	if cfg.AI.ChatModel == "" {
		cfg.AI.ChatModel = "gpt-3.5-turbo"
	}
	if cfg.Ingest.ChunkSize <= 0 {
		cfg.Ingest.ChunkSize = 1000
	}
	if cfg.Ingest.Workers <= 0 {
		cfg.Ingest.Workers = 2
	}
	if cfg.Ingest.Backlog <= 0 {
		cfg.Ingest.Backlog = 64
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 3
	}
	if cfg.RateLimitWindowMilli < 0 {
		return nil, fmt.Errorf("rate_limit_window_millis must not be negative")
	}
	if cfg.Jobs.IngestStatusCleanupSpec == "" {
		cfg.Jobs.IngestStatusCleanupSpec = "30 3 * * *"
	}
	if cfg.Jobs.FailedVectorCleanupSpec == "" {
		cfg.Jobs.FailedVectorCleanupSpec = "0 4 * * *"
	}
	return &cfg, nil
}

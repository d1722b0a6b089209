package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	DBDSN       string           `json:"db_dsn"`
	JWTSecret   string           `json:"jwt_secret"`
	Port        int              `json:"port"`
	JWTTTLHours int              `json:"jwt_ttl_hours"`
	LogConfig   logger.LogConfig `json:"log_config"`
	AI          []AIConfig       `json:"ai"`
	Sources     []SourceConfig   `json:"sources"`
	Schedule    ScheduleConfig   `json:"schedule"`
	API         APIConfig        `json:"api"`
}

// AIConfig binds one provider plus the models to use on it. Multiple entries
// form a failover chain in list order.
type AIConfig struct {
	Provider       string      `json:"provider"`
	Data           interface{} `json:"data"`
	ChatModel      string      `json:"chat_model"`
	EmbedModel     string      `json:"embed_model"`
	TimeoutSeconds int         `json:"timeout_seconds"`
}

// FileStoreConfig selects a document store backend; Data is decoded by the
// chosen backend itself.
type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// SourceConfig declares one named ingestion source. Data is decoded by the
// fetcher registered for the kind.
type SourceConfig struct {
	Name string      `json:"name"`
	Kind string      `json:"kind"`
	Data interface{} `json:"data"`
}

type ScheduleConfig struct {
	EmbeddingIndexSpec  string `json:"embedding_index_spec"`
	EmbeddingIndexBatch uint   `json:"embedding_index_batch"`
	IngestCleanupSpec   string `json:"ingest_cleanup_spec"`
	IngestMaxAgeMinutes int    `json:"ingest_max_age_minutes"`
}

type APIConfig struct {
	AskWindowSeconds int      `json:"ask_window_seconds"`
	CORSAllowlist    []string `json:"cors_allowlist"`
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
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("db_dsn is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt_secret is required")
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.JWTTTLHours == 0 {
		cfg.JWTTTLHours = 72
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if len(cfg.AI) == 0 {
		return nil, fmt.Errorf("at least one ai provider is required")
	}
	for i := range cfg.AI {
		entry := &cfg.AI[i]
		if entry.Provider == "" {
			return nil, fmt.Errorf("ai[%d].provider is required", i)
		}
		if entry.ChatModel == "" {
			return nil, fmt.Errorf("ai[%d].chat_model is required", i)
		}
		if entry.EmbedModel == "" {
			return nil, fmt.Errorf("ai[%d].embed_model is required", i)
		}
		if entry.TimeoutSeconds <= 0 {
			entry.TimeoutSeconds = 30
		}
	}
	for i, src := range cfg.Sources {
		if src.Name == "" {
			return nil, fmt.Errorf("sources[%d].name is required", i)
		}
		if src.Kind == "" {
			return nil, fmt.Errorf("sources[%d].kind is required", i)
		}
	}
	if cfg.Schedule.EmbeddingIndexSpec == "" {
		cfg.Schedule.EmbeddingIndexSpec = "*/5 * * * *"
	}
	if cfg.Schedule.EmbeddingIndexBatch == 0 {
		cfg.Schedule.EmbeddingIndexBatch = 20
	}
	if cfg.Schedule.IngestCleanupSpec == "" {
		cfg.Schedule.IngestCleanupSpec = "*/10 * * * *"
	}
	if cfg.Schedule.IngestMaxAgeMinutes <= 0 {
		cfg.Schedule.IngestMaxAgeMinutes = 60
	}
	return &cfg, nil
}

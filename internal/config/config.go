package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Model     ModelConfig     `yaml:"model"`
	Store     StoreConfig     `yaml:"store"`
	Storage   StorageConfig   `yaml:"storage"`
	Notify    NotifyConfig    `yaml:"notify"`
	Inventory InventoryConfig `yaml:"inventory"`
}

type ServerConfig struct {
	Port        string `yaml:"port"`
	MaxUploadMB int    `yaml:"max_upload_mb"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type ModelConfig struct {
	Path           string `yaml:"path"`
	MetadataPath   string `yaml:"metadata_path"`
	LabelsPath     string `yaml:"labels_path"`
	RuntimeLibrary string `yaml:"runtime_library"`
}

type StoreConfig struct {
	Driver      string `yaml:"driver"`
	DataDir     string `yaml:"data_dir"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

type StorageConfig struct {
	Path          string `yaml:"path"`
	PublicBaseURL string `yaml:"public_base_url"`
}

type NotifyConfig struct {
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

type InventoryConfig struct {
	ArticlesPath string `yaml:"articles_path"`
	StockPath    string `yaml:"stock_path"`
}

func defaults() Config {
	return Config{
		Server: ServerConfig{Port: "8080", MaxUploadMB: 10},
		Log:    LogConfig{Level: "info"},
		Model: ModelConfig{
			Path:         "./models/keras_model.onnx",
			MetadataPath: "./models/model_metadata.json",
			LabelsPath:   "./models/labels.txt",
		},
		Store:     StoreConfig{Driver: "sqlite", DataDir: "./data"},
		Storage:   StorageConfig{Path: "./data/images", PublicBaseURL: "http://localhost:8080/images"},
		Notify:    NotifyConfig{Subject: "fundgrube.matches"},
		Inventory: InventoryConfig{ArticlesPath: "./data/inventar.json", StockPath: "./data/bestand.csv"},
	}
}

// Load layers defaults, the YAML file named by FUNDGRUBE_CONFIG (if any),
// and environment variables, in that order.
func Load() (Config, error) {
	cfg := defaults()

	if path := os.Getenv("FUNDGRUBE_CONFIG"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.Server.Port = mustEnv("PORT", cfg.Server.Port)
	cfg.Server.MaxUploadMB = mustEnvInt("MAX_UPLOAD_MB", cfg.Server.MaxUploadMB)
	cfg.Log.Level = mustEnv("LOG_LEVEL", cfg.Log.Level)

	cfg.Model.Path = mustEnv("MODEL_PATH", cfg.Model.Path)
	cfg.Model.MetadataPath = mustEnv("MODEL_METADATA_PATH", cfg.Model.MetadataPath)
	cfg.Model.LabelsPath = mustEnv("LABELS_PATH", cfg.Model.LabelsPath)
	cfg.Model.RuntimeLibrary = mustEnv("ONNXRUNTIME_LIB", cfg.Model.RuntimeLibrary)

	cfg.Store.Driver = mustEnv("STORE_DRIVER", cfg.Store.Driver)
	cfg.Store.DataDir = mustEnv("DATA_DIR", cfg.Store.DataDir)
	cfg.Store.PostgresDSN = mustEnv("POSTGRES_DSN", cfg.Store.PostgresDSN)

	cfg.Storage.Path = mustEnv("STORAGE_PATH", cfg.Storage.Path)
	cfg.Storage.PublicBaseURL = mustEnv("PUBLIC_BASE_URL", cfg.Storage.PublicBaseURL)

	cfg.Notify.NATSURL = mustEnv("NATS_URL", cfg.Notify.NATSURL)
	cfg.Notify.Subject = mustEnv("NATS_SUBJECT", cfg.Notify.Subject)

	cfg.Inventory.ArticlesPath = mustEnv("INVENTORY_PATH", cfg.Inventory.ArticlesPath)
	cfg.Inventory.StockPath = mustEnv("STOCK_PATH", cfg.Inventory.StockPath)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Store.Driver {
	case "sqlite":
	case "postgres":
		if c.Store.PostgresDSN == "" {
			return fmt.Errorf("store driver postgres requires POSTGRES_DSN")
		}
	default:
		return fmt.Errorf("unknown store driver %q (want sqlite or postgres)", c.Store.Driver)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("max upload size must be positive, got %d", c.Server.MaxUploadMB)
	}
	return nil
}

// MaxUploadBytes is the multipart form limit.
func (c Config) MaxUploadBytes() int64 {
	return int64(c.Server.MaxUploadMB) << 20
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

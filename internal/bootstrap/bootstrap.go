// Package bootstrap turns a Config into the running pieces shared by the
// server and the CLI.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Brownie44l1/fundgrube-api/internal/config"
	"github.com/Brownie44l1/fundgrube-api/internal/items"
	"github.com/Brownie44l1/fundgrube-api/internal/labels"
	"github.com/Brownie44l1/fundgrube-api/internal/model"
	"github.com/Brownie44l1/fundgrube-api/internal/notify"
)

// Model is the loaded classifier. Close releases the ONNX session.
type Model struct {
	Predictor *model.Predictor
	Catalog   *labels.Catalog
	session   *model.Session
}

func (m *Model) Close() {
	if m.session != nil {
		m.session.Close()
	}
}

// LoadModel reads labels and metadata, checks them against each other and
// binds the ONNX session once. Missing labels only degrade the output.
func LoadModel(cfg config.ModelConfig, logger *slog.Logger) (*Model, error) {
	catalog, err := labels.Load(cfg.LabelsPath)
	if err != nil {
		return nil, err
	}
	if catalog == nil {
		logger.Warn("labels_missing", "path", cfg.LabelsPath, "fallback", "Class N")
	}

	meta, err := model.LoadMetadata(cfg.MetadataPath, catalog)
	if err != nil {
		return nil, err
	}
	if err := meta.Check(catalog); err != nil {
		return nil, err
	}

	session, err := model.NewSession(cfg.Path, cfg.RuntimeLibrary, meta)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", cfg.Path, err)
	}
	logger.Info("model_loaded",
		"path", cfg.Path,
		"classes", meta.OutputWidth(),
		"labels", catalog.Len(),
	)

	return &Model{
		Predictor: model.NewPredictor(session, catalog),
		Catalog:   catalog,
		session:   session,
	}, nil
}

// OpenStore opens the configured item store and applies its schema.
func OpenStore(ctx context.Context, cfg config.StoreConfig) (items.Store, error) {
	switch cfg.Driver {
	case "postgres":
		db, err := items.OpenPostgres(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		store := items.NewPostgresStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil
	default:
		store, err := items.OpenSQLite(cfg.DataDir)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
}

// Publisher is the NATS match publisher, or a no-op when no URL is set.
// The returned close func is always safe to call.
func Publisher(cfg config.NotifyConfig, logger *slog.Logger) (notify.Publisher, func(), error) {
	if cfg.NATSURL == "" {
		return notify.Nop{}, func() {}, nil
	}
	pub, err := notify.NewNATS(cfg.NATSURL, cfg.Subject, logger)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("nats_connected", "url", cfg.NATSURL, "subject", cfg.Subject)
	return pub, pub.Close, nil
}

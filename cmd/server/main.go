package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Brownie44l1/fundgrube-api/internal/bootstrap"
	"github.com/Brownie44l1/fundgrube-api/internal/config"
	"github.com/Brownie44l1/fundgrube-api/internal/fundgrube"
	"github.com/Brownie44l1/fundgrube-api/internal/handlers"
	"github.com/Brownie44l1/fundgrube-api/internal/inventory"
	"github.com/Brownie44l1/fundgrube-api/internal/logging"
	"github.com/Brownie44l1/fundgrube-api/internal/metrics"
	"github.com/Brownie44l1/fundgrube-api/internal/objectstore"
)

const serviceName = "fundgrube-api"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := logging.NewJSONLogger(serviceName, cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mdl, err := bootstrap.LoadModel(cfg.Model, logger)
	if err != nil {
		return err
	}
	defer mdl.Close()

	store, err := bootstrap.OpenStore(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open item store: %w", err)
	}
	defer store.Close()

	objects, err := objectstore.New(cfg.Storage.Path, cfg.Storage.PublicBaseURL)
	if err != nil {
		return fmt.Errorf("open object storage: %w", err)
	}

	publisher, closePublisher, err := bootstrap.Publisher(cfg.Notify, logger)
	if err != nil {
		return err
	}
	defer closePublisher()

	stock, err := inventory.NewStockStore(cfg.Inventory.StockPath)
	if err != nil {
		return err
	}

	m := metrics.New(serviceName)
	svc := fundgrube.NewService(fundgrube.Deps{
		Predictor: mdl.Predictor,
		Store:     store,
		Objects:   objects,
		Publisher: publisher,
		Metrics:   m,
		Logger:    logger,
	})
	h := handlers.NewHandler(handlers.Deps{
		Pipeline:       svc,
		Articles:       inventory.NewArticleStore(cfg.Inventory.ArticlesPath),
		Stock:          stock,
		Images:         objects.Handler(),
		Metrics:        m,
		Logger:         logger,
		Labels:         mdl.Catalog.Labels(),
		MaxUploadBytes: cfg.MaxUploadBytes(),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           h.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server_starting",
			"addr", srv.Addr,
			"store", cfg.Store.Driver,
			"classes", mdl.Catalog.Len(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("server_stopping")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/raykavin/paramwalk/internal/config"
	"github.com/raykavin/paramwalk/internal/telemetry"
	"github.com/raykavin/paramwalk/pkg/dataset"
	"github.com/raykavin/paramwalk/pkg/logger"
	"github.com/raykavin/paramwalk/pkg/logger/logrus"
	"github.com/raykavin/paramwalk/pkg/logger/zerolog"
	"github.com/raykavin/paramwalk/pkg/optimizer"
	"github.com/raykavin/paramwalk/pkg/storage"
	"github.com/raykavin/paramwalk/pkg/walkforward"
	"github.com/spf13/cobra"
)

const memoryCache = ":memory:"

// app holds what every command needs once the configuration is loaded.
type app struct {
	cfg      *config.Config
	log      logger.Logger
	recorder *telemetry.Recorder
	server   *http.Server
	cache    *storage.ScoreCache

	data  walkforward.Dataset
	dates []time.Time
	space optimizer.ParameterSpace
}

func setup(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	log, err := newLogger(cfg.Log)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log, recorder: telemetry.NewRecorder()}

	if a.space, err = cfg.Space(); err != nil {
		return nil, err
	}

	a.data, a.dates, err = dataset.Load(dataset.Options{
		Timeframe: cfg.Data.Timeframe,
		Limit:     cfg.Data.Limit,
	}, cfg.Feeds()...)
	if err != nil {
		return nil, fmt.Errorf("load data: %w", err)
	}

	log.WithFields(map[string]any{
		"pairs":  len(a.data),
		"points": len(a.dates),
	}).Info("Data loaded")

	if cfg.Metrics.Listen != "" {
		a.serveMetrics(cfg.Metrics.Listen)
	}
	return a, nil
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v, err := config.New(configFile)
	if err != nil {
		return nil, err
	}

	bindings := map[string]string{
		"log.level":         "log-level",
		"optimizer.workers": "workers",
		"optimizer.method":  "method",
	}
	for key, name := range bindings {
		flag := cmd.Flags().Lookup(name)
		if flag == nil || !flag.Changed {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return nil, err
		}
	}

	return config.FromViper(v)
}

func newLogger(cfg config.LogConfig) (logger.Logger, error) {
	if cfg.Backend == "logrus" {
		return logrus.New(cfg.Level, cfg.JSON, os.Stderr), nil
	}
	return zerolog.New(zerolog.Options{
		Level:   cfg.Level,
		Colored: cfg.Colored,
		JSON:    cfg.JSON,
	})
}

func (a *app) serveMetrics(addr string) {
	mux := http.NewServeMux()
	a.recorder.RegisterHandlers(mux)
	a.server = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.WithError(err).Error("Metrics server stopped")
		}
	}()
	a.log.Infof("Serving metrics on %s", addr)
}

// objective builds the objective over the whole dataset, memoized when a
// score cache is configured.
func (a *app) objective(factory walkforward.ObjectiveFactory) (optimizer.Objective, error) {
	objective, err := factory(a.data)
	if err != nil {
		return nil, err
	}
	if a.cfg.Optimizer.Cache == "" {
		return objective, nil
	}

	namespace := a.cfg.CacheNamespace(a.dates[0], a.dates[len(a.dates)-1])
	if a.cfg.Optimizer.Cache == memoryCache {
		a.cache, err = storage.FromMemory(namespace)
	} else {
		a.cache, err = storage.FromFile(a.cfg.Optimizer.Cache, namespace)
	}
	if err != nil {
		return nil, fmt.Errorf("open score cache: %w", err)
	}
	return optimizer.Memoize(objective, a.cache, a.log), nil
}

func (a *app) optimizerConfig() (*optimizer.Config, error) {
	return a.cfg.OptimizerConfig(a.log, a.recorder)
}

func (a *app) Close() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.log.WithError(err).Warn("Failed to close score cache")
		}
	}
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.server.Shutdown(ctx); err != nil {
			a.log.WithError(err).Warn("Failed to stop metrics server")
		}
	}
}

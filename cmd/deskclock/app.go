package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/afero"

	"github.com/coopco/deskclock/internal/config"
	"github.com/coopco/deskclock/internal/schedule"
	"github.com/coopco/deskclock/internal/store"
)

type app struct {
	cfg   *config.Config
	store *store.Store
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	fsys := afero.NewOsFs()
	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFromFile(fsys, o.configPath)
	} else {
		cfg, err = config.Load(fsys)
	}
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel()})))
	return cfg, nil
}

// open loads the config and opens the state database.
func (o *rootOptions) open() (*app, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	path := o.dbPath
	if path == "" {
		path = cfg.Store.Path
	}
	if path == "" {
		if path, err = store.DefaultDBPath(); err != nil {
			return nil, err
		}
	}
	st, err := store.New(path)
	if err != nil {
		return nil, fmt.Errorf("open state database %s: %w", path, err)
	}
	return &app{cfg: cfg, store: st}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// topic returns the saved ntfy topic, falling back to the configured one.
func (a *app) topic() (string, error) {
	topic, err := schedule.Topic(a.store)
	if err != nil {
		return "", err
	}
	if topic = strings.TrimSpace(topic); topic != "" {
		return topic, nil
	}
	return strings.TrimSpace(a.cfg.Relay.Topic), nil
}

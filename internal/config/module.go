package config

import (
	"context"
	"log/slog"

	"go.uber.org/fx"
)

// Path is the fx-injectable config file path, supplied via fx.Supply at
// the composition root (empty means env/flags/defaults only).
type Path string

// Module provides a *Holder, starting its file watcher on OnStart and
// closing it on OnStop.
var Module = fx.Module("config",
	fx.Provide(func(lc fx.Lifecycle, path Path, logger *slog.Logger) (*Holder, error) {
		loader := NewLoader(nil, string(path))
		h, err := NewHolder(loader, logger)
		if err != nil {
			return nil, err
		}

		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				return h.WatchFile(ctx, string(path))
			},
			OnStop: func(context.Context) error {
				return h.Close()
			},
		})
		return h, nil
	}),
)

package otelsetup

import (
	"context"

	"go.uber.org/fx"
)

// FxConfig is supplied via fx.Supply at the composition root.
type FxConfig = Config

// Module provides a *Provider, shutting it down on OnStop.
var Module = fx.Module("otelsetup",
	fx.Provide(func(lc fx.Lifecycle, cfg FxConfig) (*Provider, error) {
		p, err := New(context.Background(), cfg)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return p.Shutdown(ctx)
			},
		})
		return p, nil
	}),
)

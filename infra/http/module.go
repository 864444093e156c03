package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"

	"go.uber.org/fx"

	"github.com/corridors/server/infra/ws"
	"github.com/corridors/server/internal/config"
)

// Module provides the HealthManager, the *http.Server, and starts it
// listening on OnStart, shutting it down gracefully on OnStop. The listen
// address comes from the ambient configuration's http_addr (spec.md §6.5),
// so an operator edits the hot-reloadable config file to move the port —
// restarting the process is still required, since net.Listen only runs once.
var Module = fx.Module("httpapi",
	fx.Provide(NewHealthManager),
	fx.Provide(ws.New),
	fx.Provide(func(lc fx.Lifecycle, holder *config.Holder, wsHandler *ws.Handler, health *HealthManager, logger *slog.Logger) *http.Server {
		srv := &http.Server{
			Addr:    holder.Get().HTTPAddr,
			Handler: NewRouter(wsHandler, health),
		}

		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				ln, err := net.Listen("tcp", srv.Addr)
				if err != nil {
					return err
				}
				go func() {
					if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
						logger.Error("http server stopped", "err", err)
					}
				}()
				logger.Info("http listening", "addr", ln.Addr().String())
				return nil
			},
			OnStop: func(ctx context.Context) error {
				return srv.Shutdown(ctx)
			},
		})
		return srv
	}),
)

package cmd

import (
	"log/slog"
	"net/http"
	"os"

	"go.uber.org/fx"

	httpapi "github.com/corridors/server/infra/http"
	"github.com/corridors/server/infra/otelsetup"
	"github.com/corridors/server/internal/aischeduler"
	"github.com/corridors/server/internal/config"
	"github.com/corridors/server/internal/fanout"
	"github.com/corridors/server/internal/matchmaker"
	"github.com/corridors/server/internal/reaper"
	"github.com/corridors/server/internal/registry"
	"github.com/corridors/server/internal/searchadapter"
	"github.com/corridors/server/internal/turnrouter"
)

// NewApp wires every module of the Corridors core into one fx.App, the way
// the teacher's cmd/fx.go composes its own service/handler/store modules.
// configPath may be empty (env/flags/defaults only, spec.md §6.5).
func NewApp(configPath string) *fx.App {
	return fx.New(
		fx.Supply(config.Path(configPath)),
		fx.Supply(otelsetup.FxConfig{Enabled: false}),
		fx.Provide(ProvideLogger),

		config.Module,
		otelsetup.Module,
		registry.Module,
		fanout.Module,
		searchadapter.Module,
		turnrouter.Module,
		aischeduler.Module,
		matchmaker.Module,
		reaper.Module,
		httpapi.Module,

		// Force the Reaper, the AI Scheduler and the HTTP listener to
		// exist even though nothing in the graph consumes them as
		// dependencies — they are driven entirely by their own
		// fx.Lifecycle hooks (spec.md §9's teardown order runs through
		// OnStop, not through any return value).
		fx.Invoke(func(*reaper.Reaper, *aischeduler.Scheduler, *http.Server) {}),
	)
}

// ProvideLogger builds the process-wide structured logger every module
// takes as *slog.Logger, following the teacher's ProvideLogger shape
// (cmd/fx.go) generalized from the teacher's chosen library to the
// standard library's slog, which the rest of this codebase already
// standardizes on throughout (config, reaper, aischeduler, fanout).
func ProvideLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

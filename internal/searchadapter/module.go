package searchadapter

import (
	"github.com/corridors/server/infra/otelsetup"
	"github.com/corridors/server/internal/kernel"
	"github.com/corridors/server/internal/kernel/boardkernel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
)

// Module provides a searchadapter.Factory wired to the reference
// boardkernel engine and the process-wide tracer provider, following the
// teacher's fx.Module + fx.Provide + fx.Annotate shape (registry/module.go).
var Module = fx.Module("searchadapter",
	fx.Provide(
		func() kernel.Factory { return boardkernel.New },
		func(p *otelsetup.Provider) trace.Tracer { return p.Tracer("corridors/searchadapter") },
		NewFactory,
	),
)

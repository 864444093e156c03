package registry

import "go.uber.org/fx"

// Module provides the process-wide SessionRegistry, mirroring the teacher's
// registry/module.go fx.Module shape.
var Module = fx.Module("registry",
	fx.Provide(NewSessionRegistry),
)

package journal

import "go.uber.org/fx"

var Module = fx.Module("journal",
	fx.Provide(NewRecorder),
)

package providers

import (
	"go.uber.org/fx"
)

// Module provides the configured identity provider client. Building it does no network I/O.
var Module = fx.Module("providers",
	fx.Provide(New),
)

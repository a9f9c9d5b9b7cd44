package transport

import (
	"go.uber.org/fx"
)

// Module provides the client transport layer.
var Module = fx.Module("transport",
	fx.Provide(NewDialer),
)

package bridge

import (
	"context"

	"go.uber.org/fx"
)

// Module provides the bridge server and ties it to the application
// lifecycle.
var Module = fx.Module("bridge",
	fx.Provide(NewServer),
	fx.Invoke(registerServer),
)

func registerServer(lc fx.Lifecycle, server *Server) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return server.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return server.Stop(ctx)
		},
	})
}

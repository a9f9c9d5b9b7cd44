package voice

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Module("voice",
	fx.Provide(
		NewRecorder,
		NewSpeaker,
		NewService,
	),
	fx.Invoke(registerService),
)

func registerService(lc fx.Lifecycle, service *Service) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return service.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			service.Stop()
			return nil
		},
	})
}

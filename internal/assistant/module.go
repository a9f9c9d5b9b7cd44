package assistant

import (
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Raikerian/go-voicelive/internal/config"
	pkgopenai "github.com/Raikerian/go-voicelive/pkg/openai"
)

// Module provides the assistant backends and their tool registry.
var Module = fx.Module("assistant",
	fx.Provide(
		NewToolRegistry,
		NewPricingService,
		NewProvider,
	),
)

// NewPricingService creates the usage cost estimator backed by the repo's
// models.json.
func NewPricingService(logger *zap.Logger) pkgopenai.PricingService {
	service := pkgopenai.NewPricingService("models.json")
	logger.Info("OpenAI pricing service created")
	return service
}

// NewProvider selects the configured assistant backend.
func NewProvider(logger *zap.Logger, cfg *config.Config, tools *ToolRegistry, pricing pkgopenai.PricingService) (Provider, error) {
	switch cfg.Bridge.Provider {
	case config.ProviderOpenAI:
		return NewOpenAIProvider(logger, cfg, tools, pricing), nil
	case config.ProviderMock:
		return NewMockProvider(logger), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Bridge.Provider)
	}
}

// Package openai provides OpenAI-related infrastructure and pricing data.
package openai

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// TokenPricing represents the cost per million tokens. Audio rates are nil
// for models without an audio modality.
type TokenPricing struct {
	InputPerMillion       float64  `json:"input_per_million"`
	CachedPerMillion      *float64 `json:"cached_per_million"`
	OutputPerMillion      *float64 `json:"output_per_million"`
	AudioInputPerMillion  *float64 `json:"audio_input_per_million"`
	AudioOutputPerMillion *float64 `json:"audio_output_per_million"`
}

// ModelInfo contains pricing information about an OpenAI model.
type ModelInfo struct {
	Name        string       `json:"name"`
	DisplayName string       `json:"display_name"`
	Pricing     TokenPricing `json:"pricing"`
}

// PricingData contains all known model pricing information.
type PricingData struct {
	Models      map[string]ModelInfo `json:"models"`
	LastUpdated time.Time            `json:"last_updated"`
	Currency    string               `json:"currency"`
	Note        string               `json:"note"`
}

// PricingService estimates API usage cost from published token prices.
type PricingService interface {
	// GetPricingData returns the current pricing data.
	GetPricingData() *PricingData

	// GetModelPricing returns pricing information for a specific model.
	GetModelPricing(modelName string) (*ModelInfo, error)

	// CalculateTokenCost calculates the cost for text input and output tokens.
	CalculateTokenCost(modelName string, inputTokens, outputTokens int) (float64, error)

	// CalculateAudioTokenCost calculates the cost for audio input and output tokens.
	CalculateAudioTokenCost(modelName string, inputAudioTokens, outputAudioTokens int) (float64, error)
}

type pricingService struct {
	modelsFilePath string
	cachedData     *PricingData
}

// NewPricingService creates a new PricingService instance.
// modelsFilePath should be the path to the models.json file.
func NewPricingService(modelsFilePath string) PricingService {
	return &pricingService{
		modelsFilePath: modelsFilePath,
	}
}

func (p *pricingService) loadPricingData() (*PricingData, error) {
	jsonData, err := os.ReadFile(p.modelsFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read models.json file: %w", err)
	}

	var pricingData PricingData
	if err := json.Unmarshal(jsonData, &pricingData); err != nil {
		return nil, fmt.Errorf("failed to parse models.json: %w", err)
	}

	return &pricingData, nil
}

// GetPricingData returns the current pricing data. A missing or unreadable
// models.json yields empty data, so callers can treat cost estimation as
// best effort.
func (p *pricingService) GetPricingData() *PricingData {
	if p.cachedData != nil {
		return p.cachedData
	}

	data, err := p.loadPricingData()
	if err != nil {
		return &PricingData{
			Models:      make(map[string]ModelInfo),
			LastUpdated: time.Now(),
			Currency:    "USD",
			Note:        fmt.Sprintf("Error loading pricing data: %v", err),
		}
	}

	p.cachedData = data

	return p.cachedData
}

// GetModelPricing returns pricing information for a specific model.
func (p *pricingService) GetModelPricing(modelName string) (*ModelInfo, error) {
	pricingData := p.GetPricingData()

	if model, exists := pricingData.Models[modelName]; exists {
		return &model, nil
	}

	return nil, fmt.Errorf("pricing data not found for model: %s", modelName)
}

// CalculateTokenCost calculates the cost for text input and output tokens.
func (p *pricingService) CalculateTokenCost(modelName string, inputTokens, outputTokens int) (float64, error) {
	model, err := p.GetModelPricing(modelName)
	if err != nil {
		return 0, err
	}

	totalCost := (float64(inputTokens) / 1_000_000) * model.Pricing.InputPerMillion

	if model.Pricing.OutputPerMillion != nil {
		totalCost += (float64(outputTokens) / 1_000_000) * *model.Pricing.OutputPerMillion
	}

	return totalCost, nil
}

// CalculateAudioTokenCost calculates the cost for audio input and output
// tokens. Models without audio pricing cost nothing here.
func (p *pricingService) CalculateAudioTokenCost(modelName string, inputAudioTokens, outputAudioTokens int) (float64, error) {
	model, err := p.GetModelPricing(modelName)
	if err != nil {
		return 0, err
	}

	var totalCost float64

	if model.Pricing.AudioInputPerMillion != nil {
		totalCost += (float64(inputAudioTokens) / 1_000_000) * *model.Pricing.AudioInputPerMillion
	}

	if model.Pricing.AudioOutputPerMillion != nil {
		totalCost += (float64(outputAudioTokens) / 1_000_000) * *model.Pricing.AudioOutputPerMillion
	}

	return totalCost, nil
}

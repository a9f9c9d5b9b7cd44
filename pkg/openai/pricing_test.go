package openai

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// createTempModelsFile creates a temporary models.json file for testing.
func createTempModelsFile(t *testing.T, data *PricingData) string {
	t.Helper()

	tempFile := filepath.Join(t.TempDir(), "models.json")

	jsonData, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("Failed to marshal test data: %v", err)
	}

	if err := os.WriteFile(tempFile, jsonData, 0644); err != nil {
		t.Fatalf("Failed to write temp file: %v", err)
	}

	return tempFile
}

// getTestPricingData returns test pricing data for use in tests.
func getTestPricingData() *PricingData {
	return &PricingData{
		Models: map[string]ModelInfo{
			"gpt-4o-mini": {
				Name:        "gpt-4o-mini",
				DisplayName: "GPT-4o mini",
				Pricing: TokenPricing{
					InputPerMillion:  0.15,
					CachedPerMillion: &[]float64{0.075}[0],
					OutputPerMillion: &[]float64{0.6}[0],
				},
			},
			"gpt-4o-realtime-preview": {
				Name:        "gpt-4o-realtime-preview",
				DisplayName: "GPT-4o Realtime",
				Pricing: TokenPricing{
					InputPerMillion:       5.0,
					OutputPerMillion:      &[]float64{20.0}[0],
					AudioInputPerMillion:  &[]float64{40.0}[0],
					AudioOutputPerMillion: &[]float64{80.0}[0],
				},
			},
		},
		LastUpdated: time.Now(),
		Currency:    "USD",
		Note:        "Test pricing data",
	}
}

func TestGetModelPricing(t *testing.T) {
	service := NewPricingService(createTempModelsFile(t, getTestPricingData()))

	model, err := service.GetModelPricing("gpt-4o-mini")
	if err != nil {
		t.Fatalf("GetModelPricing failed: %v", err)
	}
	if model.DisplayName != "GPT-4o mini" {
		t.Errorf("Expected display name GPT-4o mini, got %s", model.DisplayName)
	}
	if model.Pricing.InputPerMillion != 0.15 {
		t.Errorf("Expected input price 0.15, got %f", model.Pricing.InputPerMillion)
	}

	if _, err := service.GetModelPricing("gpt-unknown"); err == nil {
		t.Error("Expected an error for an unknown model")
	}
}

func TestCalculateTokenCost(t *testing.T) {
	service := NewPricingService(createTempModelsFile(t, getTestPricingData()))

	// One million input tokens at $0.15 plus half a million output at $0.60.
	cost, err := service.CalculateTokenCost("gpt-4o-mini", 1_000_000, 500_000)
	if err != nil {
		t.Fatalf("CalculateTokenCost failed: %v", err)
	}
	if math.Abs(cost-0.45) > 1e-9 {
		t.Errorf("Expected cost 0.45, got %f", cost)
	}

	if _, err := service.CalculateTokenCost("gpt-unknown", 100, 100); err == nil {
		t.Error("Expected an error for an unknown model")
	}
}

func TestCalculateAudioTokenCost(t *testing.T) {
	service := NewPricingService(createTempModelsFile(t, getTestPricingData()))

	// 100k audio input tokens at $40 plus 50k output at $80.
	cost, err := service.CalculateAudioTokenCost("gpt-4o-realtime-preview", 100_000, 50_000)
	if err != nil {
		t.Fatalf("CalculateAudioTokenCost failed: %v", err)
	}
	if math.Abs(cost-8.0) > 1e-9 {
		t.Errorf("Expected cost 8.0, got %f", cost)
	}

	// Text-only models carry no audio rates.
	cost, err = service.CalculateAudioTokenCost("gpt-4o-mini", 100_000, 50_000)
	if err != nil {
		t.Fatalf("CalculateAudioTokenCost failed: %v", err)
	}
	if cost != 0 {
		t.Errorf("Expected zero audio cost for a text model, got %f", cost)
	}
}

func TestMissingModelsFileFallsBack(t *testing.T) {
	service := NewPricingService(filepath.Join(t.TempDir(), "missing.json"))

	data := service.GetPricingData()
	if len(data.Models) != 0 {
		t.Errorf("Expected empty models, got %d", len(data.Models))
	}
	if data.Note == "" {
		t.Error("Expected the note to carry the load error")
	}

	if _, err := service.GetModelPricing("gpt-4o-mini"); err == nil {
		t.Error("Expected an error when no pricing data is available")
	}
}

func TestPricingDataIsCached(t *testing.T) {
	path := createTempModelsFile(t, getTestPricingData())
	service := NewPricingService(path)

	first := service.GetPricingData()
	if err := os.Remove(path); err != nil {
		t.Fatalf("Failed to remove models file: %v", err)
	}
	second := service.GetPricingData()
	if first != second {
		t.Error("Expected the loaded pricing data to be cached")
	}
}

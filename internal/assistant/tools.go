package assistant

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ToolDefinition describes one callable function in JSON-schema form, the
// shape realtime backends advertise to the model.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ToolFunc executes one call. It receives the raw JSON arguments and returns
// the result object handed back to the model.
type ToolFunc func(arguments string) map[string]any

type registeredTool struct {
	def ToolDefinition
	fn  ToolFunc
}

// ToolRegistry holds the function tools available to the assistant.
type ToolRegistry struct {
	logger *zap.Logger

	mu    sync.RWMutex
	order []string
	tools map[string]registeredTool
}

// NewToolRegistry creates a registry preloaded with the built-in tools.
func NewToolRegistry(logger *zap.Logger) *ToolRegistry {
	r := &ToolRegistry{
		logger: logger,
		tools:  make(map[string]registeredTool),
	}
	r.Register(timeToolDefinition(), currentTime)
	r.Register(weatherToolDefinition(), currentWeather)
	return r
}

// Register adds or replaces a tool.
func (r *ToolRegistry) Register(def ToolDefinition, fn ToolFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[def.Name]; !exists {
		r.order = append(r.order, def.Name)
	}
	r.tools[def.Name] = registeredTool{def: def, fn: fn}
}

// Definitions returns the registered tools in registration order.
func (r *ToolRegistry) Definitions() []ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].def)
	}
	return defs
}

// Dispatch runs the named tool against its JSON-encoded arguments and
// returns the JSON-encoded result. Failures come back as error objects, so
// the model always receives a function output.
func (r *ToolRegistry) Dispatch(name, arguments string) string {
	r.mu.RLock()
	tool, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		r.logger.Warn("Unknown function requested", zap.String("function", name))
		return marshalToolResult(map[string]any{"error": "Unknown function " + name})
	}

	result := tool.fn(arguments)
	r.logger.Info("Function dispatched",
		zap.String("function", name), zap.Int("resultFields", len(result)))
	return marshalToolResult(result)
}

func marshalToolResult(result map[string]any) string {
	data, err := json.Marshal(result)
	if err != nil {
		return `{"error":"result serialization failed"}`
	}
	return string(data)
}

func timeToolDefinition() ToolDefinition {
	return ToolDefinition{
		Name:        "get_current_time",
		Description: "Get the current time",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"timezone": map[string]any{
					"type":        "string",
					"description": "The timezone to get the current time for, e.g., 'UTC', 'local'",
				},
			},
			"required": []string{},
		},
	}
}

func currentTime(arguments string) map[string]any {
	args := decodeArguments(arguments)

	timezone, _ := args["timezone"].(string)
	now := time.Now()
	timezoneName := "local"
	if strings.EqualFold(timezone, "utc") {
		now = now.UTC()
		timezoneName = "UTC"
	}

	return map[string]any{
		"time":     now.Format("03:04:05 PM"),
		"date":     now.Format("Monday, January 02, 2006"),
		"timezone": timezoneName,
	}
}

func weatherToolDefinition() ToolDefinition {
	return ToolDefinition{
		Name:        "get_current_weather",
		Description: "Get the current weather in a given location",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"location": map[string]any{
					"type":        "string",
					"description": "The city and state, e.g., 'San Francisco, CA'",
				},
				"unit": map[string]any{
					"type":        "string",
					"enum":        []string{"celsius", "fahrenheit"},
					"description": "The unit of temperature to use",
				},
			},
			"required": []string{"location"},
		},
	}
}

func currentWeather(arguments string) map[string]any {
	if arguments == "" {
		return map[string]any{"error": "No arguments provided"}
	}
	args := map[string]any{}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return map[string]any{"error": "Invalid arguments"}
	}

	location, _ := args["location"].(string)
	if location == "" {
		location = "Unknown"
	}
	unit, _ := args["unit"].(string)
	if unit == "" {
		unit = "celsius"
	}

	temperature := 22
	if unit != "celsius" {
		temperature = 72
	}

	return map[string]any{
		"location":    location,
		"temperature": temperature,
		"unit":        unit,
		"condition":   "Partly Cloudy",
		"humidity":    65,
		"wind_speed":  10,
	}
}

func decodeArguments(arguments string) map[string]any {
	args := map[string]any{}
	if arguments == "" {
		return args
	}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return map[string]any{}
	}
	return args
}

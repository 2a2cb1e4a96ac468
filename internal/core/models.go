package core

import "slices"

const (
	DefaultTemperature = 0.7
	MinTemperature     = 0.0
	MaxTemperature     = 2.0
	TemperatureStep    = 0.1
)

// AvailableModels is the fixed list offered in the sidebar; the first entry
// is preselected.
var AvailableModels = []string{
	"anthropic/claude-3.5-sonnet",
	"openai/gpt-4-turbo",
	"openai/gpt-3.5-turbo",
	"google/gemini-2.5-flash",
	"google/gemini-2.5-pro",
	"meta-llama/llama-3.1-70b-instruct",
	"anthropic/claude-3-opus",
	"z-ai/glm-4.6",
}

func DefaultModel() string {
	return AvailableModels[0]
}

func IsKnownModel(model string) bool {
	return slices.Contains(AvailableModels, model)
}

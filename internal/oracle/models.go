package oracle

import (
	"fmt"
	"sort"
)

// ModelInfo describes one selectable generation model.
type ModelInfo struct {
	Key           string
	ID            string
	Name          string
	Provider      string
	Description   string
	ContextLength int
	Recommended   bool
}

const defaultModelKey = "claude-sonnet-4.5"

var availableModels = map[string]ModelInfo{
	"claude-sonnet-4.5": {
		Key:           "claude-sonnet-4.5",
		ID:            "anthropic/claude-sonnet-4.5",
		Name:          "Claude Sonnet 4.5",
		Provider:      "Anthropic",
		Description:   "Best model for complex data analysis and code generation",
		ContextLength: 200000,
		Recommended:   true,
	},
	"gpt-4o": {
		Key:           "gpt-4o",
		ID:            "openai/gpt-4o",
		Name:          "GPT-4o",
		Provider:      "OpenAI",
		Description:   "Strong general model with good data understanding",
		ContextLength: 128000,
		Recommended:   true,
	},
	"deepseek-chat": {
		Key:           "deepseek-chat",
		ID:            "deepseek/deepseek-chat",
		Name:          "DeepSeek Chat",
		Provider:      "DeepSeek",
		Description:   "Fast and efficient model for data analysis",
		ContextLength: 64000,
		Recommended:   false,
	},
	"qwen-2.5-72b": {
		Key:           "qwen-2.5-72b",
		ID:            "qwen/qwen-2.5-72b-instruct",
		Name:          "Qwen 2.5 72B",
		Provider:      "Alibaba",
		Description:   "Open-weight model with solid quality",
		ContextLength: 32000,
		Recommended:   false,
	},
	"llama-3.3-70b": {
		Key:           "llama-3.3-70b",
		ID:            "meta-llama/llama-3.3-70b-instruct",
		Name:          "Llama 3.3 70B",
		Provider:      "Meta",
		Description:   "Open-weight model with good analytical ability",
		ContextLength: 128000,
		Recommended:   false,
	},
}

// DefaultModel returns the model used when no explicit choice is made.
func DefaultModel() ModelInfo {
	return availableModels[defaultModelKey]
}

// LookupModel resolves a short model key or a full provider ID.
func LookupModel(key string) (ModelInfo, error) {
	if m, ok := availableModels[key]; ok {
		return m, nil
	}
	for _, m := range availableModels {
		if m.ID == key {
			return m, nil
		}
	}
	return ModelInfo{}, fmt.Errorf("model %q is not supported, available: %v", key, ModelKeys())
}

// Models returns all selectable models, recommended first, then by key.
func Models() []ModelInfo {
	out := make([]ModelInfo, 0, len(availableModels))
	for _, m := range availableModels {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Recommended != out[j].Recommended {
			return out[i].Recommended
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// ModelKeys returns the short names in sorted order.
func ModelKeys() []string {
	keys := make([]string, 0, len(availableModels))
	for k := range availableModels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

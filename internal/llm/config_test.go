package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, ProviderGemini, config.Provider)
	assert.Equal(t, "gemini-2.5-flash-lite", config.GetModel(TierLite))
	assert.Equal(t, "gemini-2.5-flash", config.GetModel(TierStandard))
	assert.Equal(t, "gemini-2.5-pro", config.GetModel(TierAdvanced))
	assert.InDelta(t, 0.7, config.Temperature, 1e-6)
	assert.NoError(t, config.Validate())
}

func TestGetModel_Fallback(t *testing.T) {
	config := &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite: "fallback-model",
		},
	}

	// Unknown tier should fallback to TierStandard, then TierLite
	assert.Equal(t, "fallback-model", config.GetModel("unknown"))
	assert.Equal(t, "fallback-model", config.GetModel(TierAdvanced))
}

func TestGetModel_EmptyConfig(t *testing.T) {
	config := &Config{Provider: ProviderGemini, Models: map[ModelTier]string{}}

	assert.Equal(t, "", config.GetModel(TierAdvanced))
	assert.Error(t, config.Validate())
}

func TestWithModel(t *testing.T) {
	config := DefaultConfig()
	newConfig := config.WithModel(TierAdvanced, "custom-model")

	// Original should be unchanged
	assert.Equal(t, "gemini-2.5-pro", config.GetModel(TierAdvanced))
	assert.Equal(t, "custom-model", newConfig.GetModel(TierAdvanced))
	assert.Equal(t, "gemini-2.5-flash-lite", newConfig.GetModel(TierLite))
	assert.Equal(t, config.MaxRetries, newConfig.MaxRetries)
}

func TestValidate_RejectsUnknownProvider(t *testing.T) {
	config := DefaultConfig()
	config.Provider = "openai"
	assert.Error(t, config.Validate())

	config = DefaultConfig()
	config.MaxRetries = -1
	assert.Error(t, config.Validate())
}

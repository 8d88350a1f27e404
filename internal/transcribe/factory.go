package transcribe

import (
	"fmt"
	"time"
)

// ProviderConfig selects and configures a transcription backend.
type ProviderConfig struct {
	Provider string // "whisper" (default) or "deepinfra"
	URL      string // whisper endpoint URL
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// NewProvider creates the configured transcription provider.
func NewProvider(cfg ProviderConfig) (Provider, error) {
	switch cfg.Provider {
	case "", "whisper":
		if cfg.URL == "" {
			return nil, fmt.Errorf("whisper provider requires an endpoint URL")
		}
		return NewWhisperClient(cfg.URL, cfg.APIKey, cfg.Model, cfg.Timeout), nil
	case "deepinfra":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("deepinfra provider requires an API key")
		}
		return NewDeepInfraClient(cfg.APIKey, cfg.Model, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown transcription provider %q (supported: whisper, deepinfra)", cfg.Provider)
	}
}

package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/pairwave/mediaflow/internal/flagx"
	"github.com/pairwave/mediaflow/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify intervals either as strings like "5s"
// or as integer nanoseconds. After parsing, values are copied into the
// runtime Config.
type JsonConfig struct {
	BackendBaseURL     string         `json:"backend_base_url"`
	RequestTimeout     timex.Duration `json:"request_timeout"`
	PollInterval       timex.Duration `json:"poll_interval"`
	MaxPollAttempts    *int           `json:"max_poll_attempts"`
	NegotiationRetries *int           `json:"negotiation_retries"`
}

// parseJson overlays Config with values loaded from a JSON file resolved via
// the -c/-config flags. Missing file path means no JSON is loaded. Read or
// unmarshal errors panic (caller should recover if desired).
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.BackendBaseURL != "" {
		cfg.BackendBaseURL = jc.BackendBaseURL
	}
	if jc.RequestTimeout.Duration != 0 {
		cfg.RequestTimeout = time.Duration(jc.RequestTimeout.Duration)
	}
	if jc.PollInterval.Duration != 0 {
		cfg.PollInterval = time.Duration(jc.PollInterval.Duration)
	}
	if jc.MaxPollAttempts != nil {
		cfg.MaxPollAttempts = *jc.MaxPollAttempts
	}
	if jc.NegotiationRetries != nil {
		cfg.NegotiationRetries = *jc.NegotiationRetries
	}
}

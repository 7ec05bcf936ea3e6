package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	App       AppSettings       `mapstructure:"app"`
	Storage   StorageSettings   `mapstructure:"storage"`
	Gemini    GeminiSettings    `mapstructure:"gemini"`
	Device    DeviceSettings    `mapstructure:"device"`
	Flow      FlowSettings      `mapstructure:"flow"`
	Security  SecuritySettings  `mapstructure:"security"`
	Telemetry TelemetrySettings `mapstructure:"telemetry"`
}

type AppSettings struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// StorageSettings configures the client-resident file store.
type StorageSettings struct {
	Dir string `mapstructure:"dir"`
}

// GeminiSettings configures the analysis and assistant oracles.
type GeminiSettings struct {
	APIKey         string `mapstructure:"api_key"`
	AnalysisModel  string `mapstructure:"analysis_model"`
	AssistantModel string `mapstructure:"assistant_model"`
}

// DeviceSettings configures the device intelligence collector.
type DeviceSettings struct {
	IPLookupURL     string        `mapstructure:"ip_lookup_url"`
	IPLookupTimeout time.Duration `mapstructure:"ip_lookup_timeout"`
}

// FlowSettings configures the verification state machine.
type FlowSettings struct {
	ScanDelay       time.Duration `mapstructure:"scan_delay"`
	AnalysisTimeout time.Duration `mapstructure:"analysis_timeout"`
}

// SecuritySettings configures credential digesting and the password policy.
type SecuritySettings struct {
	// DigestAlgo selects the hasher for new accounts: "argon2id" (default)
	// or "legacy" for compatibility with tables written by the original
	// client. Existing records verify against whatever algo they recorded.
	DigestAlgo          string `mapstructure:"digest_algo"`
	PasswordPolicy      bool   `mapstructure:"password_policy"`
	PasswordPolicyScore int    `mapstructure:"password_policy_score"`
}

type TelemetrySettings struct {
	MetricsEnabled bool   `mapstructure:"metrics_enabled"`
	Namespace      string `mapstructure:"namespace"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("SENTINEL")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"storage.dir",
		"gemini.api_key",
		"gemini.analysis_model",
		"gemini.assistant_model",
		"device.ip_lookup_url",
		"device.ip_lookup_timeout",
		"flow.scan_delay",
		"flow.analysis_timeout",
		"security.digest_algo",
		"security.password_policy",
		"security.password_policy_score",
		"telemetry.metrics_enabled",
		"telemetry.namespace",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "sentinel-identity")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)

	v.SetDefault("storage.dir", "./data")

	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.analysis_model", "gemini-3-pro-preview")
	v.SetDefault("gemini.assistant_model", "gemini-3-flash-preview")

	v.SetDefault("device.ip_lookup_url", "https://api.ipify.org?format=json")
	v.SetDefault("device.ip_lookup_timeout", "5s")

	// The scan delay mirrors the capture UI's short feedback pause before
	// the selfie step; the analysis timeout is the hardening boundary around
	// the otherwise unbounded oracle call.
	v.SetDefault("flow.scan_delay", "800ms")
	v.SetDefault("flow.analysis_timeout", "90s")

	v.SetDefault("security.digest_algo", "argon2id")
	v.SetDefault("security.password_policy", true)
	v.SetDefault("security.password_policy_score", 2)

	v.SetDefault("telemetry.metrics_enabled", true)
	v.SetDefault("telemetry.namespace", "sentinel")
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "SENTINEL_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}

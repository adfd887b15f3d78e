package server

import (
	"fmt"
	"os"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/xordon/callflow/callback"
	"github.com/xordon/callflow/flow"
	"github.com/xordon/callflow/notify"
	"github.com/xordon/callflow/queue"
)

var validate = validator.New()

// Config is the top-level service configuration, loaded from YAML with
// defaults and validation applied from struct tags.
type Config struct {
	ListenAddr string `yaml:"listen_addr" default:":8080" validate:"required"`

	// PublicBaseURL is prepended to every continuation URL the engine
	// emits, and is the URL the provider signs requests against. Empty
	// means provider-relative URLs and host-derived signature checks.
	PublicBaseURL string `yaml:"public_base_url" validate:"omitempty,url"`

	// DefaultProvider picks the markup dialect for tenants with no
	// provider configured, and for endpoints that serve before the tenant
	// is known.
	DefaultProvider string `yaml:"default_provider" default:"signalwire" validate:"oneof=signalwire twilio"`

	// AuthToken enables provider signature validation on webhook routes.
	// Empty disables the check.
	AuthToken string `yaml:"auth_token"`

	// HoldMusicURL is played on queue wait loops with no authored music.
	HoldMusicURL string `yaml:"hold_music_url" default:"https://example.com/hold-music.mp3" validate:"url"`

	// FlowsDir loads flow definitions from YAML files instead of the
	// database. Either FlowsDir or Database must be set.
	FlowsDir string `yaml:"flows_dir"`

	Database *flow.PGConfig     `yaml:"database"`
	Redis    *queue.RedisConfig `yaml:"redis"`
	Notify   notify.Config      `yaml:"notify"`

	// Callbacks runs the background sweeper that returns calls to callers
	// who requested one. Nil disables it.
	Callbacks *CallbackConfig `yaml:"callbacks"`
}

// CallbackConfig configures the callback sweeper and its outbound dialer.
type CallbackConfig struct {
	Sweep    callback.Config         `yaml:"sweep"`
	Provider callback.ProviderConfig `yaml:"provider"`
}

// LoadConfig reads, defaults, and validates the YAML config file.
func LoadConfig(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("error reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("error unmarshalling config: %w", err)
	}
	return prepareConfig(cfg)
}

func prepareConfig(cfg Config) (Config, error) {
	if err := defaults.Set(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to apply default values: %w", err)
	}

	if cfg.FlowsDir == "" && cfg.Database == nil {
		return Config{}, fmt.Errorf("config needs flows_dir or database")
	}

	if err := validate.Struct(cfg); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			var msgs []string
			for _, fieldErr := range validationErrors {
				msgs = append(msgs, fmt.Sprintf("field '%s' failed rule '%s'", fieldErr.Field(), fieldErr.Tag()))
			}
			return Config{}, fmt.Errorf("config validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
		}
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

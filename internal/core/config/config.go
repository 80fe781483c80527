package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// AppConfig holds the configuration for the application.
// Tags used:
// - mapstructure: used by viper to unmarshal
// - default: default value to set if missing
// - required: if "true", error if missing
// - oneof: space separated list of accepted values
type AppConfig struct {
	// Environment specifies the runtime environment (e.g., development, production).
	Environment string `mapstructure:"APP_ENV" default:"development"`
	// LogLevel defines the logging verbosity (e.g., debug, info, error).
	LogLevel string `mapstructure:"LOG_LEVEL" default:"info"`
	// Debug runs the browser headed and logs verbose diagnostics.
	Debug bool `mapstructure:"DEBUG" default:"false"`
	// OutputFormat selects the report rendering.
	OutputFormat string `mapstructure:"OUTPUT_FORMAT" default:"text" oneof:"text json"`

	// Tracking holds what to look up and where.
	Tracking TrackingConfig `mapstructure:",squash"`

	// Retry holds the orchestrator policy.
	Retry RetryConfig `mapstructure:",squash"`

	// Browser holds the browser strategy settings.
	Browser BrowserConfig `mapstructure:",squash"`

	// HTTP holds the direct-HTTP strategy settings.
	HTTP HTTPConfig `mapstructure:",squash"`

	// Proxy holds the optional upstream proxy.
	Proxy ProxyConfig `mapstructure:",squash"`
}

// TrackingConfig identifies the shipment and the page to read it from.
type TrackingConfig struct {
	// Number is the tracking number to look up.
	Number string `mapstructure:"TRACKING_NUMBER" default:"347720741487" required:"true"`
	// URLTemplate is the page URL; %s is replaced by the tracking number.
	URLTemplate string `mapstructure:"TRACKING_URL_TEMPLATE" default:"https://www.icarry.in/track-shipment?a=%s" required:"true"`
	// ValidationMarker must appear in any page accepted as real content.
	ValidationMarker string `mapstructure:"VALIDATION_MARKER" default:"Shipment Tracking" required:"true"`
}

// RetryConfig is the orchestrator's attempt budget.
type RetryConfig struct {
	// Mode is retry_same (one strategy, bounded attempts) or fan_out (each strategy once).
	Mode string `mapstructure:"RETRY_MODE" default:"retry_same" oneof:"retry_same fan_out"`
	// MaxAttempts bounds retry_same.
	MaxAttempts int `mapstructure:"RETRY_MAX_ATTEMPTS" default:"3" required:"true"`
	// Backoff is the fixed delay between attempts.
	Backoff time.Duration `mapstructure:"RETRY_BACKOFF" default:"5s"`
	// Strategies lists the acquisition methods in order of preference.
	Strategies []string `mapstructure:"STRATEGIES" default:"browser,direct_http" required:"true"`
}

// BrowserConfig configures the browser session and its waits.
type BrowserConfig struct {
	// Bin is an explicit Chromium binary; empty lets the launcher find or download one.
	Bin string `mapstructure:"BROWSER_BIN"`
	// UserAgent is the spoofed client identification string.
	UserAgent string `mapstructure:"BROWSER_USER_AGENT" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"`
	// WindowWidth and WindowHeight fix the viewport.
	WindowWidth  int `mapstructure:"BROWSER_WINDOW_WIDTH" default:"1920"`
	WindowHeight int `mapstructure:"BROWSER_WINDOW_HEIGHT" default:"1080"`
	// PollInterval is the pause between two challenge checks.
	PollInterval time.Duration `mapstructure:"CHALLENGE_POLL_INTERVAL" default:"1s"`
	// PollCeiling bounds the whole challenge wait.
	PollCeiling time.Duration `mapstructure:"CHALLENGE_POLL_CEILING" default:"30s"`
	// SettleDelay lets asynchronous rendering finish once the challenge cleared.
	SettleDelay time.Duration `mapstructure:"SETTLE_DELAY" default:"3s"`
	// AnchorTimeout bounds the wait for the status label.
	AnchorTimeout time.Duration `mapstructure:"ANCHOR_TIMEOUT" default:"20s"`
}

// HTTPConfig configures the direct-HTTP strategy.
type HTTPConfig struct {
	// Client is cycletls (TLS fingerprinted) or standard (net/http).
	Client string `mapstructure:"HTTP_CLIENT" default:"cycletls" oneof:"cycletls standard"`
	// Timeout bounds one request.
	Timeout time.Duration `mapstructure:"HTTP_TIMEOUT" default:"30s"`
}

// ProxyConfig holds the upstream proxy connection details.
type ProxyConfig struct {
	Enabled  bool   `mapstructure:"PROXY_ENABLED" default:"false"`
	Host     string `mapstructure:"PROXY_HOST"`
	Port     int    `mapstructure:"PROXY_PORT"`
	Username string `mapstructure:"PROXY_USER"`
	Password string `mapstructure:"PROXY_PASS"`
}

// flagKeys maps command-line flags onto configuration keys.
var flagKeys = map[string]string{
	"debug":           "DEBUG",
	"tracking-number": "TRACKING_NUMBER",
	"strategy-mode":   "RETRY_MODE",
	"output":          "OUTPUT_FORMAT",
}

// RegisterFlags declares the command-line flags that Load understands.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.Bool("debug", false, "run the browser headed and log verbose diagnostics")
	fs.String("tracking-number", "", "tracking number to look up (overrides TRACKING_NUMBER)")
	fs.String("strategy-mode", "", "retry policy: retry_same or fan_out")
	fs.String("output", "", "report format: text or json")
}

// Load loads configuration from .env files, environment variables and, when
// fs is not nil, the command-line flags declared by RegisterFlags.
// Precedence: flag > environment > .env > default.
func Load(path string, fs *pflag.FlagSet) (*AppConfig, error) {
	v := viper.New()

	v.AutomaticEnv()

	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config AppConfig

	if err := processTags(v, &config); err != nil {
		return nil, err
	}

	if fs != nil {
		if err := bindFlags(v, fs); err != nil {
			return nil, err
		}
	}

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := validateRequired(&config); err != nil {
		return nil, err
	}

	if err := validateOneOf(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// bindFlags binds only the flags the user actually set, so an unset flag never
// shadows the environment.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		flag := fs.Lookup(name)
		if flag == nil || !flag.Changed {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("unable to bind flag %s: %w", name, err)
		}
	}
	return nil
}

// processTags iterates over the struct fields and sets default values in Viper.
func processTags(v *viper.Viper, config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := processTags(v, val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		key := field.Tag.Get("mapstructure")
		defaultValue := field.Tag.Get("default")

		if key != "" {
			if err := v.BindEnv(key); err != nil {
				return fmt.Errorf("unable to bind %s: %w", key, err)
			}
		}

		if key != "" && defaultValue != "" {
			v.SetDefault(key, defaultValue)
		}
	}
	return nil
}

// validateRequired checks if fields marked as required have non-zero values.
func validateRequired(config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := validateRequired(val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		required := field.Tag.Get("required")
		if required == "true" {
			value := val.Field(i)
			if isZero(value) {
				key := field.Tag.Get("mapstructure")
				return fmt.Errorf("missing required configuration: %s", key)
			}
		}
	}
	return nil
}

// validateOneOf checks enumerated string fields against their oneof tag.
func validateOneOf(config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := validateOneOf(val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		allowed := field.Tag.Get("oneof")
		if allowed == "" || field.Type.Kind() != reflect.String {
			continue
		}

		value := val.Field(i).String()
		options := strings.Fields(allowed)
		valid := false
		for _, option := range options {
			if value == option {
				valid = true
				break
			}
		}
		if !valid {
			key := field.Tag.Get("mapstructure")
			return fmt.Errorf("invalid configuration %s=%q: must be one of %s", key, value, strings.Join(options, ", "))
		}
	}
	return nil
}

// isZero checks if a reflect.Value is the zero value for its type.
func isZero(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return strings.TrimSpace(v.String()) == ""
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	default:
		return v.IsZero()
	}
}

// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// PoolDecimals describes token precision for one pool: Base is the asset
// being bought and sold (token1), Quote is what it is priced in (token0).
type PoolDecimals struct {
	Base  int `mapstructure:"base"`
	Quote int `mapstructure:"quote"`
}

type Config struct {
	ProviderURL         string                  `mapstructure:"provider_url"`
	AuthToken           string                  `mapstructure:"auth_token"`
	Pools               []string                `mapstructure:"pools"`
	PoolDecimals        map[string]PoolDecimals `mapstructure:"pool_decimals"`
	WatchSet            []string                `mapstructure:"watch_set"`
	MinTradeSize        float64                 `mapstructure:"min_trade_size"`
	HoldDuration        time.Duration           `mapstructure:"hold_duration"`
	StartBlocksBack     uint64                  `mapstructure:"start_blocks_back"`
	InitialBalance      float64                 `mapstructure:"initial_balance"`
	DemoShowThreshold   float64                 `mapstructure:"demo_show_threshold"`
	DemoFollowThreshold float64                 `mapstructure:"demo_follow_threshold"`
	DemoMode            bool                    `mapstructure:"demo_mode"`
	FallbackDecimals    PoolDecimals            `mapstructure:"fallback_decimals"`

	// Loop pacing
	IdleInterval   time.Duration `mapstructure:"idle_interval"`
	LiveInterval   time.Duration `mapstructure:"live_interval"`
	ReplayInterval time.Duration `mapstructure:"replay_interval"`
	ErrorBackoff   time.Duration `mapstructure:"error_backoff"`
	LiveTolerance  uint64        `mapstructure:"live_tolerance"`

	StatePath    string `mapstructure:"state_path"`
	LogFile      string `mapstructure:"log_file"`
	DebugLogging bool   `mapstructure:"debug_logging"`
	Headless     bool   `mapstructure:"headless"`
}

const (
	DefaultHoldDuration    = 10 * time.Minute
	DefaultStartBlocksBack = 100
	DefaultInitialBalance  = 10000.0
	DefaultMinTradeSize    = 0.1
	DefaultIdleInterval    = 3 * time.Second
	DefaultLiveInterval    = 12 * time.Second // ~one mainnet block
	DefaultReplayInterval  = 200 * time.Millisecond
	DefaultErrorBackoff    = 5 * time.Second
	DefaultLiveTolerance   = 2
	DefaultStatePath       = "account.json"
	DefaultLogFile         = "copybot.log"
)

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"hold_duration":         DefaultHoldDuration,
		"start_blocks_back":     DefaultStartBlocksBack,
		"initial_balance":       DefaultInitialBalance,
		"min_trade_size":        DefaultMinTradeSize,
		"idle_interval":         DefaultIdleInterval,
		"live_interval":         DefaultLiveInterval,
		"replay_interval":       DefaultReplayInterval,
		"error_backoff":         DefaultErrorBackoff,
		"live_tolerance":        DefaultLiveTolerance,
		"state_path":            DefaultStatePath,
		"log_file":              DefaultLogFile,
		"fallback_decimals":     map[string]interface{}{"base": 18, "quote": 6},
		"demo_show_threshold":   0.1,
		"demo_follow_threshold": 1.0,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := loadEnvironmentVariables(v, &cfg); err != nil {
		return nil, err
	}

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	if cfg.AuthToken == "" {
		return errors.New("missing auth_token in configuration")
	}
	if cfg.ProviderURL == "" {
		return errors.New("missing provider_url in configuration")
	}
	if err := validateURL(cfg.ProviderURL, "http"); err != nil {
		return errors.New("invalid provider URL protocol")
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.HoldDuration <= 0 {
		return errors.New("invalid hold_duration")
	}
	if cfg.InitialBalance <= 0 {
		return errors.New("invalid initial_balance")
	}
	if cfg.MinTradeSize < 0 {
		return errors.New("invalid min_trade_size")
	}
	if cfg.DemoShowThreshold < 0 || cfg.DemoFollowThreshold < 0 {
		return errors.New("invalid demo thresholds")
	}
	if cfg.IdleInterval <= 0 || cfg.LiveInterval <= 0 || cfg.ReplayInterval <= 0 {
		return errors.New("invalid loop intervals")
	}
	if cfg.ErrorBackoff <= 0 {
		return errors.New("invalid error_backoff")
	}
	if cfg.FallbackDecimals.Base <= 0 || cfg.FallbackDecimals.Quote <= 0 {
		return errors.New("invalid fallback_decimals")
	}
	return nil
}

func validateURL(rawURL string, protocol string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	return nil
}

func loadEnvironmentVariables(v *viper.Viper, cfg *Config) error {
	v.AutomaticEnv()
	v.SetEnvPrefix("COPYBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	envToken := v.GetString("AUTH_TOKEN")
	if envToken != "" {
		cfg.AuthToken = envToken
	}

	envURL := v.GetString("PROVIDER_URL")
	if envURL != "" {
		cfg.ProviderURL = envURL
	}

	envWatch := v.GetString("WATCH_SET")
	if envWatch != "" {
		addrs := strings.Split(envWatch, ",")
		var clean []string
		for _, a := range addrs {
			if t := strings.TrimSpace(a); t != "" {
				clean = append(clean, t)
			}
		}
		if len(clean) > 0 {
			cfg.WatchSet = clean
		}
	}
	return nil
}

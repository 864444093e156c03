// Package config loads the ambient tunables of the Corridors core —
// reaper sweep interval/stale threshold, AI scheduler worker count and
// timeouts, fan-out heartbeat period/miss multiplier, default search
// configuration, and the test-mode flag (spec.md §6.5 "Environment") —
// layered from flags, environment variables and an optional file via
// spf13/viper, with fsnotify-driven hot reload. It never touches the
// per-session model.Configuration snapshot, which is immutable for the
// life of a session once create_session has stamped it (spec.md §3).
//
// Grounded on kadirpekel-hector's pkg/config/provider/file.go for the
// slog-based fsnotify watch-and-debounce loop, generalized from "signal a
// channel on change" to "reload and atomically swap a config snapshot" in
// the shape of ManuGH-xg2g's internal/config/reload.go ConfigHolder.
package config

import (
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/corridors/server/internal/domain/model"
)

// DefaultSearchConfig mirrors model.Configuration's fields with viper
// mapstructure tags — kept separate from model.Configuration so the core
// domain type stays free of any config-library awareness.
type DefaultSearchConfig struct {
	ExplorationConstant float64 `mapstructure:"exploration_constant"`
	MinSimulations       int     `mapstructure:"min_simulations"`
	MaxSimulations       int     `mapstructure:"max_simulations"`
	UseEvaluator         bool    `mapstructure:"use_evaluator"`
	VisitBasedDecision   bool    `mapstructure:"visit_based_decision"`
}

// ToModelConfiguration builds the immutable per-session snapshot a
// create_session call with no explicit override should use. seed is
// supplied by the caller (spec.md's RandomSeed is per-session, never a
// static ambient value).
func (d DefaultSearchConfig) ToModelConfiguration(seed int64) model.Configuration {
	return model.Configuration{
		ExplorationConstant: d.ExplorationConstant,
		RandomSeed:          seed,
		MinSimulations:      d.MinSimulations,
		MaxSimulations:      d.MaxSimulations,
		UseEvaluator:         d.UseEvaluator,
		VisitBasedDecision:   d.VisitBasedDecision,
	}
}

// AmbientConfig is every hot-reloadable tunable of the running process
// (spec.md §6.5). Production defaults below; test-mode overrides
// (S=10s/T=60s) are applied by applyTestMode when TestMode is set.
type AmbientConfig struct {
	ReaperSweepInterval     time.Duration       `mapstructure:"reaper_sweep_interval"`
	ReaperStaleThreshold    time.Duration       `mapstructure:"reaper_stale_threshold"`
	AIWorkers               int                 `mapstructure:"ai_workers"`
	AIEnqueueTimeout        time.Duration       `mapstructure:"ai_enqueue_timeout"`
	AITurnTimeout           time.Duration       `mapstructure:"ai_turn_timeout"`
	FanoutMailboxSize       int                 `mapstructure:"fanout_mailbox_size"`
	HeartbeatPeriod         time.Duration       `mapstructure:"heartbeat_period"`
	HeartbeatMissMultiplier int                 `mapstructure:"heartbeat_miss_multiplier"`
	TurnTimeout             time.Duration       `mapstructure:"turn_timeout"`
	DefaultSearch           DefaultSearchConfig `mapstructure:"default_search"`
	TestMode                bool                `mapstructure:"test_mode"`
	HTTPAddr                string              `mapstructure:"http_addr"`
}

// Defaults returns the production configuration spec.md §6.5 names.
func Defaults() AmbientConfig {
	return AmbientConfig{
		ReaperSweepInterval:     60 * time.Second,
		ReaperStaleThreshold:    time.Hour,
		AIWorkers:               4,
		AIEnqueueTimeout:        2 * time.Second,
		AITurnTimeout:           10 * time.Second,
		FanoutMailboxSize:       256,
		HeartbeatPeriod:         20 * time.Second,
		HeartbeatMissMultiplier: 3,
		TurnTimeout:             5 * time.Second,
		DefaultSearch: DefaultSearchConfig{
			ExplorationConstant: 1.41421356,
			MinSimulations:      200,
			MaxSimulations:      20000,
			UseEvaluator:        false,
			VisitBasedDecision:  true,
		},
		TestMode: false,
		HTTPAddr: ":8080",
	}
}

// applyTestMode shortens the Reaper's cadence the way spec.md §4.4's
// test-mode flag describes, once TestMode has been read from the layered
// sources.
func applyTestMode(cfg *AmbientConfig) {
	if !cfg.TestMode {
		return
	}
	cfg.ReaperSweepInterval = 10 * time.Second
	cfg.ReaperStaleThreshold = 60 * time.Second
}

// Loader builds an AmbientConfig by layering, highest precedence first:
// explicit flags, environment variables (CORRIDORS_ prefixed), an optional
// config file, then Defaults().
type Loader struct {
	v    *viper.Viper
	path string
}

// NewLoader constructs a Loader. flags may be nil (no CLI flag layer);
// path may be empty (file layer skipped, flags/env/defaults only).
func NewLoader(flags *pflag.FlagSet, path string) *Loader {
	v := viper.New()
	v.SetEnvPrefix("corridors")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		_ = v.BindPFlags(flags)
	}
	if path != "" {
		v.SetConfigFile(path)
	}

	def := Defaults()
	v.SetDefault("reaper_sweep_interval", def.ReaperSweepInterval)
	v.SetDefault("reaper_stale_threshold", def.ReaperStaleThreshold)
	v.SetDefault("ai_workers", def.AIWorkers)
	v.SetDefault("ai_enqueue_timeout", def.AIEnqueueTimeout)
	v.SetDefault("ai_turn_timeout", def.AITurnTimeout)
	v.SetDefault("fanout_mailbox_size", def.FanoutMailboxSize)
	v.SetDefault("heartbeat_period", def.HeartbeatPeriod)
	v.SetDefault("heartbeat_miss_multiplier", def.HeartbeatMissMultiplier)
	v.SetDefault("turn_timeout", def.TurnTimeout)
	v.SetDefault("default_search.exploration_constant", def.DefaultSearch.ExplorationConstant)
	v.SetDefault("default_search.min_simulations", def.DefaultSearch.MinSimulations)
	v.SetDefault("default_search.max_simulations", def.DefaultSearch.MaxSimulations)
	v.SetDefault("default_search.use_evaluator", def.DefaultSearch.UseEvaluator)
	v.SetDefault("default_search.visit_based_decision", def.DefaultSearch.VisitBasedDecision)
	v.SetDefault("test_mode", def.TestMode)
	v.SetDefault("http_addr", def.HTTPAddr)

	return &Loader{v: v, path: path}
}

// Load reads the file layer (if configured), merges it under env/flags,
// and unmarshals the result. A missing file is not an error — file
// configuration is optional by design.
func (l *Loader) Load() (AmbientConfig, error) {
	if l.path != "" {
		if err := l.v.ReadInConfig(); err != nil {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
				return AmbientConfig{}, err
			}
		}
	}

	var cfg AmbientConfig
	if err := l.v.Unmarshal(&cfg); err != nil {
		return AmbientConfig{}, err
	}
	applyTestMode(&cfg)
	return cfg, nil
}

package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	sim "github.com/institute-of-production-systems/shopsim/sim"
	"github.com/institute-of-production-systems/shopsim/sim/dispatch"
)

// RunConfig holds everything a run needs besides the plant definition itself.
//
// Values are merged with the usual priority: command-line flags, SHOPSIM_* environment variables
// (a .env file in the working directory is loaded first), the config file, then defaults.
type RunConfig struct {
	Plant      string           `mapstructure:"plant" validate:"required"`
	Seed       int64            `mapstructure:"seed"`
	Start      int64            `mapstructure:"start" validate:"gte=0"`
	End        int64            `mapstructure:"end" validate:"gtfield=Start"`
	Heuristics HeuristicsConfig `mapstructure:"heuristics"`
	Rules      RulesConfig      `mapstructure:"rules"`
	History    string           `mapstructure:"history"`
	Metrics    bool             `mapstructure:"metrics"`
	Log        string           `mapstructure:"log" validate:"oneof=trace debug info warn error fatal panic"`
}

// HeuristicsConfig names the heuristic of each decision category. An empty name leaves the category
// to the caller.
type HeuristicsConfig struct {
	WorkstationSequencing string `mapstructure:"ws_seq"`
	WorkstationRouting    string `mapstructure:"ws_route"`
	TransportRouting      string `mapstructure:"tr_route"`
	TransportSequencing   string `mapstructure:"tr_seq"`
}

// RulesConfig holds the expressions of categories configured with EXPR.
type RulesConfig struct {
	WorkstationSequencing string `mapstructure:"ws_seq"`
	WorkstationRouting    string `mapstructure:"ws_route"`
	TransportRouting      string `mapstructure:"tr_route"`
	TransportSequencing   string `mapstructure:"tr_seq"`
}

// flagKeys maps command-line flags to config keys.
var flagKeys = map[string]string{
	"plant":    "plant",
	"seed":     "seed",
	"start":    "start",
	"end":      "end",
	"ws-seq":   "heuristics.ws_seq",
	"ws-route": "heuristics.ws_route",
	"tr-route": "heuristics.tr_route",
	"tr-seq":   "heuristics.tr_seq",
	"history":  "history",
	"metrics":  "metrics",
	"log":      "log",
}

// DefaultHeuristics resolves the categories a run leaves unconfigured.
var DefaultHeuristics = map[dispatch.Category]string{
	dispatch.WorkstationSequencing: "FIFO",
	dispatch.WorkstationRouting:    "LQO",
	dispatch.TransportRouting:      "CT",
	dispatch.TransportSequencing:   "FIFO",
}

var configValidator = validator.New()

// SetDefaults registers the default of every key. Registering a key also lets AutomaticEnv pick up
// its environment variable during Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("plant", "")
	v.SetDefault("seed", 42)
	v.SetDefault("start", 0)
	v.SetDefault("end", 86400)
	v.SetDefault("heuristics.ws_seq", "")
	v.SetDefault("heuristics.ws_route", "")
	v.SetDefault("heuristics.tr_route", "")
	v.SetDefault("heuristics.tr_seq", "")
	v.SetDefault("rules.ws_seq", "")
	v.SetDefault("rules.ws_route", "")
	v.SetDefault("rules.tr_route", "")
	v.SetDefault("rules.tr_seq", "")
	v.SetDefault("history", "")
	v.SetDefault("metrics", false)
	v.SetDefault("log", "error")
}

// LoadRunConfig merges the run configuration. configPath may be empty, in which case shopsim.yaml is
// looked up in . and ./config; a missing file is not an error. flags may be nil.
func LoadRunConfig(configPath string, flags *pflag.FlagSet) (*RunConfig, error) {
	_ = godotenv.Load()

	v := viper.New()
	SetDefaults(v)
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("shopsim")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	v.SetEnvPrefix("SHOPSIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading run config: %w", err)
		}
	}
	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding flag --%s: %w", name, err)
				}
			}
		}
	}

	var cfg RunConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding run config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and that every heuristic name is known for its category.
func (c *RunConfig) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("invalid run config: %w", err)
		}
		msgs := make([]string, 0, len(verrs))
		for _, e := range verrs {
			msgs = append(msgs, fmt.Sprintf("field '%s' failed validation: %s (value: '%v')", e.Namespace(), e.Tag(), e.Value()))
		}
		return fmt.Errorf("invalid run config:\n  %s", strings.Join(msgs, "\n  "))
	}
	heuristics, rules := c.Heuristics.byCategory(), c.Rules.byCategory()
	for _, cat := range dispatch.Categories {
		name := heuristics[cat]
		if !dispatch.IsValid(cat, name) {
			return fmt.Errorf("invalid run config: %s: unknown heuristic %q; valid: %s",
				cat, name, strings.Join(dispatch.ValidNames(cat), ", "))
		}
		if strings.EqualFold(name, dispatch.Expr.String()) && rules[cat] == "" {
			return fmt.Errorf("invalid run config: %s: heuristic EXPR needs a rule", cat)
		}
	}
	return nil
}

// SimConfig converts the run configuration into simulator parameters. Categories without a heuristic
// are left out so they surface as decision points.
func (c *RunConfig) SimConfig() sim.Config {
	cfg := sim.Config{
		Seed:       c.Seed,
		Start:      c.Start,
		End:        c.End,
		Heuristics: make(map[dispatch.Category]string),
		Rules:      make(map[dispatch.Category]string),
	}
	for cat, name := range c.Heuristics.byCategory() {
		if name != "" {
			cfg.Heuristics[cat] = name
		}
	}
	for cat, rule := range c.Rules.byCategory() {
		if rule != "" {
			cfg.Rules[cat] = rule
		}
	}
	return cfg
}

// heuristic returns the configured heuristic of cat, or its default.
func (c *RunConfig) heuristic(cat dispatch.Category) string {
	if name := c.Heuristics.byCategory()[cat]; name != "" {
		return name
	}
	return DefaultHeuristics[cat]
}

func (h HeuristicsConfig) byCategory() map[dispatch.Category]string {
	return map[dispatch.Category]string{
		dispatch.WorkstationSequencing: h.WorkstationSequencing,
		dispatch.WorkstationRouting:    h.WorkstationRouting,
		dispatch.TransportRouting:      h.TransportRouting,
		dispatch.TransportSequencing:   h.TransportSequencing,
	}
}

func (r RulesConfig) byCategory() map[dispatch.Category]string {
	return HeuristicsConfig(r).byCategory()
}

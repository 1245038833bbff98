package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/institute-of-production-systems/shopsim/sim/dispatch"
)

func TestLoadRunConfig_Defaults(t *testing.T) {
	// GIVEN no config file and only the plant in the environment
	t.Setenv("SHOPSIM_PLANT", "plant.yaml")

	// WHEN the run config is loaded
	cfg, err := LoadRunConfig("", nil)

	// THEN every other field carries its default
	require.NoError(t, err)
	assert.Equal(t, "plant.yaml", cfg.Plant)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, int64(0), cfg.Start)
	assert.Equal(t, int64(86400), cfg.End)
	assert.Equal(t, "error", cfg.Log)
	assert.False(t, cfg.Metrics)
	assert.Equal(t, HeuristicsConfig{}, cfg.Heuristics)
}

func TestLoadRunConfig_EnvironmentOverridesNestedKeys(t *testing.T) {
	t.Setenv("SHOPSIM_PLANT", "plant.yaml")
	t.Setenv("SHOPSIM_SEED", "7")
	t.Setenv("SHOPSIM_HEURISTICS_WS_SEQ", "spt")
	t.Setenv("SHOPSIM_METRICS", "true")

	cfg, err := LoadRunConfig("", nil)

	require.NoError(t, err)
	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, "spt", cfg.Heuristics.WorkstationSequencing)
	assert.True(t, cfg.Metrics)
}

func TestLoadRunConfig_ConfigFile(t *testing.T) {
	// GIVEN a run config file with heuristics and an expression rule
	path := filepath.Join(t.TempDir(), "run.yaml")
	content := `
plant: plants/line.yaml
seed: 3
end: 7200
heuristics:
  ws_route: LQT
  tr_seq: EXPR
rules:
  tr_seq: "-Distance"
log: info
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	// WHEN it is loaded
	cfg, err := LoadRunConfig(path, nil)

	// THEN file values override the defaults
	require.NoError(t, err)
	assert.Equal(t, "plants/line.yaml", cfg.Plant)
	assert.Equal(t, int64(3), cfg.Seed)
	assert.Equal(t, int64(7200), cfg.End)
	assert.Equal(t, "LQT", cfg.Heuristics.WorkstationRouting)
	assert.Equal(t, "EXPR", cfg.Heuristics.TransportSequencing)
	assert.Equal(t, "-Distance", cfg.Rules.TransportSequencing)
	assert.Equal(t, "info", cfg.Log)
}

func TestLoadRunConfig_FlagsWinOverEnvironment(t *testing.T) {
	// GIVEN a seed in the environment and on the command line
	t.Setenv("SHOPSIM_SEED", "5")
	c := &cobra.Command{Use: "test"}
	registerRunFlags(c)
	require.NoError(t, c.Flags().Parse([]string{"--plant", "p.yaml", "--seed", "9", "--ws-seq", "LPT"}))

	// WHEN the config is loaded with the parsed flags
	cfg, err := LoadRunConfig("", c.Flags())

	// THEN changed flags take priority
	require.NoError(t, err)
	assert.Equal(t, "p.yaml", cfg.Plant)
	assert.Equal(t, int64(9), cfg.Seed)
	assert.Equal(t, "LPT", cfg.Heuristics.WorkstationSequencing)
	// unchanged flags do not shadow the defaults
	assert.Equal(t, int64(86400), cfg.End)
}

func TestRunConfig_Validate(t *testing.T) {
	valid := func() RunConfig {
		return RunConfig{Plant: "p.yaml", End: 100, Log: "error"}
	}
	tests := []struct {
		name    string
		mutate  func(*RunConfig)
		wantErr string
	}{
		{name: "valid", mutate: func(*RunConfig) {}},
		{name: "lower-case heuristic", mutate: func(c *RunConfig) { c.Heuristics.WorkstationRouting = "lqo" }},
		{name: "missing plant", mutate: func(c *RunConfig) { c.Plant = "" }, wantErr: "required"},
		{name: "end before start", mutate: func(c *RunConfig) { c.Start = 100 }, wantErr: "gtfield"},
		{name: "negative start", mutate: func(c *RunConfig) { c.Start, c.End = -1, 10 }, wantErr: "gte"},
		{name: "unknown log level", mutate: func(c *RunConfig) { c.Log = "loud" }, wantErr: "oneof"},
		{name: "heuristic of another category", mutate: func(c *RunConfig) { c.Heuristics.WorkstationSequencing = "LQO" }, wantErr: "unknown heuristic \"LQO\""},
		{name: "expr without rule", mutate: func(c *RunConfig) { c.Heuristics.TransportRouting = "EXPR" }, wantErr: "needs a rule"},
		{name: "expr with rule", mutate: func(c *RunConfig) {
			c.Heuristics.TransportRouting = "EXPR"
			c.Rules.TransportRouting = "-QueuedOps"
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestRunConfig_SimConfigKeepsOnlyConfiguredCategories(t *testing.T) {
	cfg := RunConfig{
		Seed: 11, Start: 10, End: 20,
		Heuristics: HeuristicsConfig{WorkstationSequencing: "SPT", TransportRouting: "EXPR"},
		Rules:      RulesConfig{TransportRouting: "-Distance"},
	}

	got := cfg.SimConfig()

	assert.Equal(t, int64(11), got.Seed)
	assert.Equal(t, int64(10), got.Start)
	assert.Equal(t, int64(20), got.End)
	assert.Equal(t, map[dispatch.Category]string{
		dispatch.WorkstationSequencing: "SPT",
		dispatch.TransportRouting:      "EXPR",
	}, got.Heuristics)
	assert.Equal(t, map[dispatch.Category]string{dispatch.TransportRouting: "-Distance"}, got.Rules)
}

func TestRunConfig_HeuristicFallsBackToDefault(t *testing.T) {
	cfg := RunConfig{Heuristics: HeuristicsConfig{WorkstationRouting: "LQT"}}

	assert.Equal(t, "LQT", cfg.heuristic(dispatch.WorkstationRouting))
	assert.Equal(t, "FIFO", cfg.heuristic(dispatch.WorkstationSequencing))
	assert.Equal(t, "CT", cfg.heuristic(dispatch.TransportRouting))
}

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 1200.0, cfg.World.WindowWidth)
	assert.Equal(t, 80.0, cfg.World.GroundHeight)
	assert.Equal(t, 900.0, cfg.World.Gravity)
	assert.Equal(t, 500, cfg.Episode.Steps)
	assert.Equal(t, 0.02, cfg.Episode.StepDuration)
	assert.Equal(t, 5.0, cfg.Episode.WheelContactThreshold)
	assert.Equal(t, 1, cfg.Vehicle.MinBodyParts)
	assert.Equal(t, 6, cfg.Vehicle.MaxBodyParts)
	assert.Equal(t, -10, cfg.Vehicle.MinWheelSpeed)
	assert.Equal(t, 30, cfg.Vehicle.MaxWheelSpeed)
	assert.Equal(t, 10, cfg.Evolution.PopulationSize)
	assert.Equal(t, 5, cfg.Evolution.Survivors)
	assert.Equal(t, 3, cfg.Evolution.MutationSpan)
	assert.Equal(t, "memory", cfg.Storage.Kind)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "evocar.json")
	body := `{
		"evolution": { "populationSize": 4, "survivors": 2, "generations": 3, "seed": 99 },
		"episode": { "steps": 50 },
		"log": { "level": "debug" }
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Evolution.PopulationSize)
	assert.Equal(t, 2, cfg.Evolution.Survivors)
	assert.Equal(t, 3, cfg.Evolution.Generations)
	assert.Equal(t, int64(99), cfg.Evolution.Seed)
	assert.Equal(t, 50, cfg.Episode.Steps)
	assert.Equal(t, "debug", cfg.Log.Level)
	// untouched keys keep their defaults
	assert.Equal(t, 0.02, cfg.Episode.StepDuration)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("EVOCAR_EVOLUTION_GENERATIONS", "7")
	t.Setenv("EVOCAR_STORAGE_KIND", "sqlite")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Evolution.Generations)
	assert.Equal(t, "sqlite", cfg.Storage.Kind)
}

func TestDefault_IgnoresEnvironment(t *testing.T) {
	t.Setenv("EVOCAR_EVOLUTION_GENERATIONS", "7")
	t.Setenv("EVOCAR_EPISODE_STEPS", "12")

	cfg := Default()
	assert.Equal(t, 20, cfg.Evolution.Generations)
	assert.Equal(t, 500, cfg.Episode.Steps)

	loaded, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7, loaded.Evolution.Generations)
	assert.Equal(t, 12, loaded.Episode.Steps)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/evocar.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestLoad_RejectsEmptyRanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "evocar.yaml")
	body := "vehicle:\n  minBodyRadius: 30\n  maxBodyRadius: 30\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalid))
	assert.Contains(t, err.Error(), "body radius range")
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"body parts", func(c *Config) { c.Vehicle.MinBodyParts, c.Vehicle.MaxBodyParts = 4, 2 }, "body parts range"},
		{"wheel speed", func(c *Config) { c.Vehicle.MinWheelSpeed, c.Vehicle.MaxWheelSpeed = 5, 5 }, "wheel speed range"},
		{"steps", func(c *Config) { c.Episode.Steps = 0 }, "episode.steps"},
		{"survivors", func(c *Config) { c.Evolution.Survivors = 0 }, "evolution.survivors"},
		{"storage", func(c *Config) { c.Storage.Kind = "postgres" }, "storage.kind"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), tc.want)
		})
	}

	require.NoError(t, Default().Validate())
}

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const envPrefix = "EVOCAR"

// World holds the static environment every episode shares.
type World struct {
	WindowWidth    float64 `json:"windowWidth" mapstructure:"windowWidth"`
	WindowHeight   float64 `json:"windowHeight" mapstructure:"windowHeight"`
	GroundHeight   float64 `json:"groundHeight" mapstructure:"groundHeight"`
	Gravity        float64 `json:"gravity" mapstructure:"gravity"`
	GroundFriction float64 `json:"groundFriction" mapstructure:"groundFriction"`
}

// Episode holds per-rollout settings. FPS only paces an external renderer.
type Episode struct {
	Steps                 int     `json:"steps" mapstructure:"steps"`
	StepDuration          float64 `json:"stepDuration" mapstructure:"stepDuration"`
	FPS                   int     `json:"fps" mapstructure:"fps"`
	WheelContactThreshold float64 `json:"wheelContactThreshold" mapstructure:"wheelContactThreshold"`
}

// Vehicle bounds every random draw made while building a vehicle.
type Vehicle struct {
	MinBodyParts  int     `json:"minBodyParts" mapstructure:"minBodyParts"`
	MaxBodyParts  int     `json:"maxBodyParts" mapstructure:"maxBodyParts"`
	MinBodyRadius int     `json:"minBodyRadius" mapstructure:"minBodyRadius"`
	MaxBodyRadius int     `json:"maxBodyRadius" mapstructure:"maxBodyRadius"`
	InitX         float64 `json:"initX" mapstructure:"initX"`
	InitY         float64 `json:"initY" mapstructure:"initY"`
	InitJitter    int     `json:"initJitter" mapstructure:"initJitter"`
	BodyMass      float64 `json:"bodyMass" mapstructure:"bodyMass"`
	BodyMoment    float64 `json:"bodyMoment" mapstructure:"bodyMoment"`
	BodyFriction  float64 `json:"bodyFriction" mapstructure:"bodyFriction"`
	WheelFriction float64 `json:"wheelFriction" mapstructure:"wheelFriction"`
	MinWheelSpeed int     `json:"minWheelSpeed" mapstructure:"minWheelSpeed"`
	MaxWheelSpeed int     `json:"maxWheelSpeed" mapstructure:"maxWheelSpeed"`
}

type Evolution struct {
	PopulationSize int   `json:"populationSize" mapstructure:"populationSize"`
	Survivors      int   `json:"survivors" mapstructure:"survivors"`
	Generations    int   `json:"generations" mapstructure:"generations"`
	MutationSpan   int   `json:"mutationSpan" mapstructure:"mutationSpan"`
	Workers        int   `json:"workers" mapstructure:"workers"`
	Seed           int64 `json:"seed" mapstructure:"seed"`
}

type Storage struct {
	Kind          string `json:"kind" mapstructure:"kind"`
	DBPath        string `json:"dbPath" mapstructure:"dbPath"`
	BenchmarksDir string `json:"benchmarksDir" mapstructure:"benchmarksDir"`
	ExportsDir    string `json:"exportsDir" mapstructure:"exportsDir"`
}

type Log struct {
	Level  string `json:"level" mapstructure:"level"`
	Format string `json:"format" mapstructure:"format"`
}

// Config is built once at startup and passed by value afterwards.
type Config struct {
	World     World     `json:"world" mapstructure:"world"`
	Episode   Episode   `json:"episode" mapstructure:"episode"`
	Vehicle   Vehicle   `json:"vehicle" mapstructure:"vehicle"`
	Evolution Evolution `json:"evolution" mapstructure:"evolution"`
	Storage   Storage   `json:"storage" mapstructure:"storage"`
	Log       Log       `json:"log" mapstructure:"log"`
}

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

func setDefaults(v *viper.Viper) {
	v.SetDefault("world.windowWidth", 1200.0)
	v.SetDefault("world.windowHeight", 600.0)
	v.SetDefault("world.groundHeight", 80.0)
	v.SetDefault("world.gravity", 900.0)
	v.SetDefault("world.groundFriction", 0.5)

	v.SetDefault("episode.steps", 500)
	v.SetDefault("episode.stepDuration", 0.02)
	v.SetDefault("episode.fps", 50)
	v.SetDefault("episode.wheelContactThreshold", 5.0)

	v.SetDefault("vehicle.minBodyParts", 1)
	v.SetDefault("vehicle.maxBodyParts", 6)
	v.SetDefault("vehicle.minBodyRadius", 10)
	v.SetDefault("vehicle.maxBodyRadius", 30)
	v.SetDefault("vehicle.initX", 200.0)
	v.SetDefault("vehicle.initY", 200.0)
	v.SetDefault("vehicle.initJitter", 20)
	v.SetDefault("vehicle.bodyMass", 10.0)
	v.SetDefault("vehicle.bodyMoment", 2000.0)
	v.SetDefault("vehicle.bodyFriction", 0.0)
	v.SetDefault("vehicle.wheelFriction", 0.2)
	v.SetDefault("vehicle.minWheelSpeed", -10)
	v.SetDefault("vehicle.maxWheelSpeed", 30)

	v.SetDefault("evolution.populationSize", 10)
	v.SetDefault("evolution.survivors", 5)
	v.SetDefault("evolution.generations", 20)
	v.SetDefault("evolution.mutationSpan", 3)
	v.SetDefault("evolution.workers", 1)
	v.SetDefault("evolution.seed", 1)

	v.SetDefault("storage.kind", "memory")
	v.SetDefault("storage.dbPath", "evocar.db")
	v.SetDefault("storage.benchmarksDir", "benchmarks")
	v.SetDefault("storage.exportsDir", "exports")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Default returns the built-in configuration. It ignores the environment.
func Default() Config {
	cfg, err := decode(newViper())
	if err != nil {
		// Defaults are static; failing to decode them is a programming error.
		panic(fmt.Sprintf("decode default config: %v", err))
	}
	return cfg
}

// Load reads defaults, the optional config file at path and EVOCAR_*
// environment overrides, then validates the result.
func Load(path string) (Config, error) {
	v := newViper()
	bindEnv(v)
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

func decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Validate rejects configurations whose random ranges are empty or whose
// run parameters cannot produce a population.
func (c Config) Validate() error {
	var problems []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}

	check(c.World.WindowWidth > 0, "world.windowWidth must be > 0")
	check(c.World.Gravity >= 0, "world.gravity must be >= 0")

	check(c.Episode.Steps > 0, "episode.steps must be > 0")
	check(c.Episode.StepDuration > 0, "episode.stepDuration must be > 0")
	check(c.Episode.WheelContactThreshold > 0, "episode.wheelContactThreshold must be > 0")

	check(c.Vehicle.MinBodyParts >= 1, "vehicle.minBodyParts must be >= 1")
	check(c.Vehicle.MinBodyParts < c.Vehicle.MaxBodyParts,
		"vehicle body parts range [%d, %d) is empty", c.Vehicle.MinBodyParts, c.Vehicle.MaxBodyParts)
	check(c.Vehicle.MinBodyRadius > 0, "vehicle.minBodyRadius must be > 0")
	check(c.Vehicle.MinBodyRadius < c.Vehicle.MaxBodyRadius,
		"vehicle body radius range [%d, %d) is empty", c.Vehicle.MinBodyRadius, c.Vehicle.MaxBodyRadius)
	check(c.Vehicle.InitJitter > 0, "vehicle.initJitter must be > 0")
	check(c.Vehicle.BodyMass > 0, "vehicle.bodyMass must be > 0")
	check(c.Vehicle.BodyMoment > 0, "vehicle.bodyMoment must be > 0")
	check(c.Vehicle.MinWheelSpeed < c.Vehicle.MaxWheelSpeed,
		"vehicle wheel speed range [%d, %d) is empty", c.Vehicle.MinWheelSpeed, c.Vehicle.MaxWheelSpeed)

	check(c.Evolution.PopulationSize > 0, "evolution.populationSize must be > 0")
	check(c.Evolution.Survivors > 0, "evolution.survivors must be > 0")
	check(c.Evolution.Generations > 0, "evolution.generations must be > 0")
	check(c.Evolution.MutationSpan > 0, "evolution.mutationSpan must be > 0")
	check(c.Evolution.Workers >= 0, "evolution.workers must be >= 0")

	switch c.Storage.Kind {
	case "memory", "sqlite":
	default:
		problems = append(problems, fmt.Sprintf("unsupported storage.kind: %q", c.Storage.Kind))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

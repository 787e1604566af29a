package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"evocar/internal/config"
	"evocar/internal/stats"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	origWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	workdir := t.TempDir()
	if err := os.Chdir(workdir); err != nil {
		t.Fatalf("chdir tempdir: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(origWD)
	})
	return workdir
}

var smallRunArgs = []string{
	"run",
	"--pop", "4",
	"--survivors", "2",
	"--gens", "2",
	"--steps", "40",
	"--seed", "5",
	"--workers", "2",
}

func TestRunCommandWritesArtifactsAndIndex(t *testing.T) {
	chdirTemp(t)

	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), smallRunArgs, &stdout, &stderr); err != nil {
		t.Fatalf("run command: %v", err)
	}
	if !strings.HasPrefix(stdout.String(), "run_id=flatground-5-") {
		t.Fatalf("unexpected run output: %q", stdout.String())
	}
	if got := strings.Count(stderr.String(), "generation complete"); got != 2 {
		t.Fatalf("expected one log line per generation, got %d:\n%s", got, stderr.String())
	}

	entries, err := stats.ListRunIndex("benchmarks")
	if err != nil {
		t.Fatalf("list run index: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one indexed run, got %d", len(entries))
	}
	runID := entries[0].RunID
	for _, file := range []string{"config.json", "fitness_history.json", "fitness_history.csv", "top_vehicles.json", "lineage.json", "generation_diagnostics.json"} {
		path := filepath.Join("benchmarks", runID, file)
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected artifact %s: %v", path, err)
		}
	}

	stdout.Reset()
	if err := run(context.Background(), []string{"runs"}, &stdout, &stderr); err != nil {
		t.Fatalf("runs command: %v", err)
	}
	if !strings.Contains(stdout.String(), "run_id="+runID) || !strings.Contains(stdout.String(), "pop=4") {
		t.Fatalf("runs output missing run: %q", stdout.String())
	}

	stdout.Reset()
	if err := run(context.Background(), []string{"export", "--latest"}, &stdout, &stderr); err != nil {
		t.Fatalf("export command: %v", err)
	}
	if !strings.Contains(stdout.String(), "exported run_id="+runID) {
		t.Fatalf("unexpected export output: %q", stdout.String())
	}
	if _, err := os.Stat(filepath.Join("exports", runID, "fitness_history.csv")); err != nil {
		t.Fatalf("expected exported fitness csv: %v", err)
	}
}

func TestQueryCommandsReadEarlierRunWithMemoryStore(t *testing.T) {
	chdirTemp(t)

	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), smallRunArgs, &stdout, &stderr); err != nil {
		t.Fatalf("run command: %v", err)
	}

	cases := []struct {
		command string
		want    string
	}{
		{command: "fitness", want: "generation=2 best_fitness="},
		{command: "diagnostics", want: "generation=1 population=4 evaluations=4"},
		{command: "lineage", want: "op=seed"},
		{command: "top", want: "rank=1 "},
	}
	for _, tc := range cases {
		t.Run(tc.command, func(t *testing.T) {
			var out, errOut bytes.Buffer
			if err := run(context.Background(), []string{tc.command, "--latest", "--log-level", "error"}, &out, &errOut); err != nil {
				t.Fatalf("%s --latest: %v", tc.command, err)
			}
			if !strings.Contains(out.String(), tc.want) {
				t.Fatalf("%s output missing %q: %q", tc.command, tc.want, out.String())
			}
		})
	}
}

func TestRunCommandJSONSummary(t *testing.T) {
	chdirTemp(t)

	var stdout, stderr bytes.Buffer
	args := append(append([]string(nil), smallRunArgs...), "--json", "--run-id", "cli-json", "--log-level", "error")
	if err := run(context.Background(), args, &stdout, &stderr); err != nil {
		t.Fatalf("run command: %v", err)
	}
	var summary struct {
		RunID            string
		BestByGeneration []float64
		BestVehicleID    string
	}
	if err := json.Unmarshal(stdout.Bytes(), &summary); err != nil {
		t.Fatalf("decode summary: %v\n%s", err, stdout.String())
	}
	if summary.RunID != "cli-json" || len(summary.BestByGeneration) != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if !strings.HasPrefix(summary.BestVehicleID, "cli-json-g") {
		t.Fatalf("vehicle id should carry the run id: %s", summary.BestVehicleID)
	}
	if stderr.Len() != 0 {
		t.Fatalf("expected no info logs at error level, got:\n%s", stderr.String())
	}
}

func TestRunsCommandWithoutRuns(t *testing.T) {
	chdirTemp(t)

	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), []string{"runs"}, &stdout, &stderr); err != nil {
		t.Fatalf("runs command: %v", err)
	}
	if strings.TrimSpace(stdout.String()) != "no runs found" {
		t.Fatalf("unexpected output: %q", stdout.String())
	}
}

func TestConfigCommandAppliesFileAndFlags(t *testing.T) {
	workdir := chdirTemp(t)
	path := filepath.Join(workdir, "evocar.yaml")
	if err := os.WriteFile(path, []byte("evolution:\n  populationSize: 12\nstorage:\n  benchmarksDir: from-file\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	var stdout bytes.Buffer
	if err := run(context.Background(), []string{"config", "--config", path, "--benchmarks-dir", "from-flag"}, &stdout, &stdout); err != nil {
		t.Fatalf("config command: %v", err)
	}
	var cfg config.Config
	if err := json.Unmarshal(stdout.Bytes(), &cfg); err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if cfg.Evolution.PopulationSize != 12 {
		t.Fatalf("expected population from file, got %d", cfg.Evolution.PopulationSize)
	}
	if cfg.Storage.BenchmarksDir != "from-flag" {
		t.Fatalf("expected flag to override file, got %q", cfg.Storage.BenchmarksDir)
	}
	if cfg.Evolution.Survivors != config.Default().Evolution.Survivors {
		t.Fatalf("expected default survivors, got %d", cfg.Evolution.Survivors)
	}
}

func TestRunRejectsBadInvocations(t *testing.T) {
	chdirTemp(t)

	cases := []struct {
		name string
		args []string
		want string
	}{
		{name: "missing command", args: nil, want: "missing command"},
		{name: "unknown command", args: []string{"fly"}, want: "unknown command: fly"},
		{name: "fitness without selector", args: []string{"fitness"}, want: "requires --run-id or --latest"},
		{name: "lineage with both selectors", args: []string{"lineage", "--run-id", "x", "--latest"}, want: "not both"},
		{name: "export without selector", args: []string{"export"}, want: "export requires"},
		{name: "runs with bad limit", args: []string{"runs", "--limit", "0"}, want: "limit must be > 0"},
		{name: "unsupported store", args: []string{"runs", "--store", "postgres"}, want: "postgres"},
		{name: "top latest without runs", args: []string{"top", "--latest"}, want: "no runs available"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			err := run(context.Background(), tc.args, &out, &out)
			if err == nil {
				t.Fatalf("expected error containing %q", tc.want)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"evocar/pkg/evocar"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "run":
		return runRun(ctx, args[1:], stdout, stderr)
	case "runs":
		return runRuns(ctx, args[1:], stdout, stderr)
	case "fitness":
		return runFitness(ctx, args[1:], stdout, stderr)
	case "diagnostics":
		return runDiagnostics(ctx, args[1:], stdout, stderr)
	case "lineage":
		return runLineage(ctx, args[1:], stdout, stderr)
	case "top":
		return runTop(ctx, args[1:], stdout, stderr)
	case "export":
		return runExport(ctx, args[1:], stdout, stderr)
	case "config":
		return runConfig(args[1:], stdout)
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func runRun(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	common := bindCommonFlags(fs)
	runID := fs.String("run-id", "", "explicit run id (default <scape>-<seed>-<unix>)")
	pop := fs.Int("pop", 0, "initial population size (0 keeps config)")
	survivors := fs.Int("survivors", 0, "survivors kept per generation (0 keeps config)")
	gens := fs.Int("gens", 0, "generations to run (0 keeps config)")
	steps := fs.Int("steps", 0, "physics steps per episode (0 keeps config)")
	workers := fs.Int("workers", 0, "parallel episode workers (0 keeps config)")
	seed := fs.Int64("seed", 0, "random seed (0 keeps config)")
	jsonOut := fs.Bool("json", false, "emit run summary as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(fs, common, stderr)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Run(ctx, evocar.RunRequest{
		RunID:       *runID,
		Population:  *pop,
		Survivors:   *survivors,
		Generations: *gens,
		Steps:       *steps,
		Workers:     *workers,
		Seed:        *seed,
	})
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSON(stdout, summary)
	}

	fmt.Fprintf(stdout, "run_id=%s generations=%d final_best_fitness=%.6f best_vehicle=%s artifacts=%s\n",
		summary.RunID,
		len(summary.BestByGeneration),
		summary.FinalBestFitness,
		summary.BestVehicleID,
		summary.ArtifactsDir,
	)
	return nil
}

func runRuns(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	fs.SetOutput(stderr)
	common := bindCommonFlags(fs)
	limit := fs.Int("limit", 20, "max runs to list")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := newClient(fs, common, stderr)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	runs, err := client.Runs(ctx, evocar.RunsRequest{Limit: *limit})
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(stdout, "no runs found")
		return nil
	}
	if *jsonOut {
		return writeJSON(stdout, runs)
	}

	for _, r := range runs {
		fmt.Fprintf(stdout, "run_id=%s created_at=%s scape=%s seed=%d pop=%d survivors=%d gens=%d final_best_fitness=%.6f best_vehicle=%s\n",
			r.RunID,
			r.CreatedAtUTC,
			r.Scape,
			r.Seed,
			r.Population,
			r.Survivors,
			r.Generations,
			r.FinalBestFitness,
			r.BestVehicleID,
		)
	}
	return nil
}

// queryFlags binds the run selector shared by the read-only commands.
type queryFlags struct {
	common  *commonFlags
	runID   *string
	latest  *bool
	limit   *int
	jsonOut *bool
}

func bindQueryFlags(fs *flag.FlagSet, what string, defaultLimit int) queryFlags {
	return queryFlags{
		common:  bindCommonFlags(fs),
		runID:   fs.String("run-id", "", "run id"),
		latest:  fs.Bool("latest", false, fmt.Sprintf("show %s for the most recent run from run index", what)),
		limit:   fs.Int("limit", defaultLimit, "max rows to print (<=0 for all)"),
		jsonOut: fs.Bool("json", false, fmt.Sprintf("emit %s as JSON", what)),
	}
}

func (q queryFlags) request() (evocar.QueryRequest, error) {
	if *q.runID != "" && *q.latest {
		return evocar.QueryRequest{}, errors.New("use either --run-id or --latest, not both")
	}
	if *q.runID == "" && !*q.latest {
		return evocar.QueryRequest{}, errors.New("requires --run-id or --latest")
	}
	limit := *q.limit
	if limit < 0 {
		limit = 0
	}
	return evocar.QueryRequest{RunID: *q.runID, Latest: *q.latest, Limit: limit}, nil
}

func runFitness(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("fitness", flag.ContinueOnError)
	fs.SetOutput(stderr)
	q := bindQueryFlags(fs, "fitness history", 50)
	if err := fs.Parse(args); err != nil {
		return err
	}
	req, err := q.request()
	if err != nil {
		return fmt.Errorf("fitness %w", err)
	}

	client, err := newClient(fs, q.common, stderr)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	history, err := client.FitnessHistory(ctx, req)
	if err != nil {
		return err
	}
	if len(history) == 0 {
		fmt.Fprintln(stdout, "no fitness history")
		return nil
	}
	if *q.jsonOut {
		return writeJSON(stdout, history)
	}

	for i, best := range history {
		fmt.Fprintf(stdout, "generation=%d best_fitness=%.6f\n", i+1, best)
	}
	return nil
}

func runDiagnostics(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("diagnostics", flag.ContinueOnError)
	fs.SetOutput(stderr)
	q := bindQueryFlags(fs, "diagnostics", 50)
	if err := fs.Parse(args); err != nil {
		return err
	}
	req, err := q.request()
	if err != nil {
		return fmt.Errorf("diagnostics %w", err)
	}

	client, err := newClient(fs, q.common, stderr)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	diagnostics, err := client.Diagnostics(ctx, req)
	if err != nil {
		return err
	}
	if len(diagnostics) == 0 {
		fmt.Fprintln(stdout, "no diagnostics")
		return nil
	}
	if *q.jsonOut {
		return writeJSON(stdout, diagnostics)
	}

	for _, d := range diagnostics {
		fmt.Fprintf(stdout, "generation=%d population=%d evaluations=%d survivors=%d best=%.6f mean=%.6f min=%.6f best_vehicle=%s\n",
			d.Generation,
			d.PopulationSize,
			d.Evaluations,
			d.Survivors,
			d.BestFitness,
			d.MeanFitness,
			d.MinFitness,
			d.BestVehicleID,
		)
	}
	return nil
}

func runLineage(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("lineage", flag.ContinueOnError)
	fs.SetOutput(stderr)
	q := bindQueryFlags(fs, "lineage", 50)
	if err := fs.Parse(args); err != nil {
		return err
	}
	req, err := q.request()
	if err != nil {
		return fmt.Errorf("lineage %w", err)
	}

	client, err := newClient(fs, q.common, stderr)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	lineage, err := client.Lineage(ctx, req)
	if err != nil {
		return err
	}
	if len(lineage) == 0 {
		fmt.Fprintln(stdout, "no lineage records")
		return nil
	}
	if *q.jsonOut {
		return writeJSON(stdout, lineage)
	}

	for _, rec := range lineage {
		fmt.Fprintf(stdout, "gen=%d vehicle_id=%s parent_id=%s op=%s bodies=%d front_speed=%.0f rear_speed=%.0f\n",
			rec.Generation,
			rec.VehicleID,
			rec.ParentID,
			rec.Operation,
			rec.BodyCount,
			rec.FrontSpeed,
			rec.RearSpeed,
		)
	}
	return nil
}

func runTop(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("top", flag.ContinueOnError)
	fs.SetOutput(stderr)
	q := bindQueryFlags(fs, "top vehicles", 5)
	if err := fs.Parse(args); err != nil {
		return err
	}
	req, err := q.request()
	if err != nil {
		return fmt.Errorf("top %w", err)
	}

	client, err := newClient(fs, q.common, stderr)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	top, err := client.TopVehicles(ctx, req)
	if err != nil {
		return err
	}
	if len(top) == 0 {
		fmt.Fprintln(stdout, "no top vehicles")
		return nil
	}
	if *q.jsonOut {
		return writeJSON(stdout, top)
	}

	for _, item := range top {
		fmt.Fprintf(stdout, "rank=%d fitness=%.6f vehicle_id=%s bodies=%d front_speed=%.0f rear_speed=%.0f\n",
			item.Rank,
			item.Fitness,
			item.Vehicle.ID,
			len(item.Vehicle.Bodies),
			item.Vehicle.FrontSpeed,
			item.Vehicle.RearSpeed,
		)
	}
	return nil
}

func runExport(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(stderr)
	common := bindCommonFlags(fs)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "export the most recent run from run index")
	outDir := fs.String("out", "", "export output directory (default exports dir)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("export requires --run-id or --latest")
	}

	client, err := newClient(fs, common, stderr)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	exported, err := client.Export(ctx, evocar.ExportRequest{RunID: *runID, Latest: *latest, OutDir: *outDir})
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "exported run_id=%s to=%s\n", exported.RunID, exported.Directory)
	return nil
}

// runConfig prints the effective configuration after file, environment and
// flag overrides.
func runConfig(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(stdout)
	common := bindCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := loadConfig(fs, common)
	if err != nil {
		return err
	}
	return writeJSON(stdout, cfg)
}

func writeJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: evocarctl <run|runs|fitness|diagnostics|lineage|top|export|config> [flags]", msg)
}

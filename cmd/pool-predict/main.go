package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/reallyasi9/pool-margins/internal/bundle"
	"github.com/reallyasi9/pool-margins/internal/config"
	"github.com/reallyasi9/pool-margins/internal/pool"
	"github.com/reallyasi9/pool-margins/internal/sheet"
	log "github.com/sirupsen/logrus"
)

var configFile = flag.String("config", "", "YAML configuration `file` (default $POOL_CONFIG, then pool.yaml)")
var outDir = flag.String("out", "", "output `directory` (default: output_dir from the configuration)")
var probabilities = flag.Bool("probabilities", false, "add a home cover probability column for each model")
var verbose = flag.Bool("verbose", false, "print the prediction table to the terminal")

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] SEASON WEEK\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(1)
	}
	season := flag.Arg(0)
	week, err := parseWeek(flag.Arg(1))
	if err != nil {
		log.Errorf("%v", err)
		flag.Usage()
		os.Exit(1)
	}

	env, err := config.LoadEnv()
	if err != nil {
		log.Errorf("reading environment: %v", err)
		os.Exit(1)
	}
	path := env.ConfigFile
	if *configFile != "" {
		path = *configFile
	}
	conf, err := config.Load(path)
	if err != nil {
		log.Errorf("loading configuration: %v", err)
		os.Exit(1)
	}
	seasonConf, err := conf.Season(season)
	if err != nil {
		log.Errorf("%v (configured in %s)", err, path)
		os.Exit(2)
	}

	ctx := context.Background()
	store, closeStore, err := bundle.OpenStore(ctx, conf.Store, seasonConf.BundleDir, env.ProjectID)
	if err != nil {
		log.Errorf("opening bundle store: %v", err)
		os.Exit(3)
	}
	b, err := store.Load(ctx, season)
	closeStore()
	if errors.Is(err, bundle.ErrNoBundle) {
		log.Errorf("no trained models for season %s: run pool-train %s first", season, season)
		os.Exit(3)
	}
	if err != nil {
		log.Errorf("loading bundle: %v", err)
		os.Exit(3)
	}
	if err := b.Check(pool.Schema); err != nil {
		log.Errorf("%v: retrain season %s", err, season)
		os.Exit(4)
	}
	models, err := b.Predictors()
	if err != nil {
		log.Errorf("unpacking bundle: %v", err)
		os.Exit(4)
	}
	log.Printf("loaded %d models for season %s trained %s", len(models), season, b.Created.Format("2006-01-02"))

	src, err := sheet.Open(ctx, seasonConf.Sheet, env.Credentials)
	if err != nil {
		log.Errorf("opening games: %v", err)
		os.Exit(5)
	}
	rows, err := src.Rows(ctx, seasonConf.GamesRange)
	if err != nil {
		log.Errorf("reading games: %v", err)
		os.Exit(5)
	}
	games, err := pool.ParseGames(rows)
	if err != nil {
		log.Errorf("parsing games: %v", err)
		os.Exit(5)
	}
	table, err := pool.PredictWeek(games, week, models, *probabilities)
	if err != nil {
		log.Errorf("season %s: %v", season, err)
		os.Exit(5)
	}
	if skipped := len(pool.ForWeek(games, week)) - len(table.Rows); skipped > 0 {
		log.Warnf("%d games in week %d have no final spread and will not be predicted", skipped, week)
	}

	if *verbose {
		fmt.Println(table)
	}

	dir := conf.OutputDir
	if *outDir != "" {
		dir = *outDir
	}
	out := outputPath(dir, season, week)
	if err := writeTable(out, table); err != nil {
		log.Errorf("writing predictions: %v", err)
		os.Exit(6)
	}
	log.Printf("wrote %d predictions to %s", len(table.Rows), out)
}

func parseWeek(s string) (int, error) {
	week, err := strconv.Atoi(s)
	if err != nil || week < 1 {
		return 0, fmt.Errorf("week must be a positive integer, got \"%s\"", s)
	}
	return week, nil
}

// outputPath names the prediction file for a season and week. Weeks are zero-padded so files sort in order.
func outputPath(dir, season string, week int) string {
	return filepath.Join(dir, fmt.Sprintf("%s-week%02d.csv", season, week))
}

func writeTable(path string, table *pool.PredictionTable) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := table.WriteCSV(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

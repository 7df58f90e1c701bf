package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/reallyasi9/pool-margins/internal/bundle"
	"github.com/reallyasi9/pool-margins/internal/config"
	"github.com/reallyasi9/pool-margins/internal/pool"
	"github.com/reallyasi9/pool-margins/internal/sheet"
	log "github.com/sirupsen/logrus"
)

var configFile = flag.String("config", "", "YAML configuration `file` (default $POOL_CONFIG, then pool.yaml)")
var seed = flag.Int64("seed", 0, "random `seed` for the split, folds, and models (default: the configured seed)")
var workers = flag.Int("workers", 0, "`number` of candidates to cross-validate at once (0 uses the configured value)")
var retain = flag.String("retain", "", "comma-separated model `names` to keep in the bundle (default: configured list, or all)")
var dryRun = flag.Bool("dry-run", false, "train and evaluate, but do not save the bundle")
var verbose = flag.Bool("verbose", false, "log every cross-validation result")

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] SEASON\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	season := flag.Arg(0)
	if *verbose {
		log.SetLevel(log.DebugLevel)
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
	if isSet("seed") {
		conf.Training.Seed = *seed
	}
	if *workers > 0 {
		conf.Training.Workers = *workers
	}
	if *retain != "" {
		conf.Training.Retain = nil
		for _, name := range strings.Split(*retain, ",") {
			conf.Training.Retain = append(conf.Training.Retain, strings.TrimSpace(name))
		}
		if err := conf.Validate(); err != nil {
			log.Errorf("bad -retain: %v", err)
			os.Exit(1)
		}
	}

	seasonConf, err := conf.Season(season)
	if err != nil {
		log.Errorf("%v (configured in %s)", err, path)
		os.Exit(2)
	}
	log.Printf("training models for season %s with seed %d", season, conf.Training.Seed)

	ctx := context.Background()
	src, err := sheet.Open(ctx, seasonConf.Sheet, env.Credentials)
	if err != nil {
		log.Errorf("opening training data: %v", err)
		os.Exit(3)
	}
	rows, err := src.Rows(ctx, seasonConf.TrainingRange)
	if err != nil {
		log.Errorf("reading training data: %v", err)
		os.Exit(3)
	}
	games, err := pool.ParseGames(rows)
	if err != nil {
		log.Errorf("parsing training data: %v", err)
		os.Exit(3)
	}
	labeled := pool.Labeled(games)
	log.Printf("loaded %d games, %d complete (%d dropped for missing data)", len(games), len(labeled), len(games)-len(labeled))

	b, err := train(ctx, season, labeled, conf, os.Stdout)
	if err != nil {
		log.Errorf("training: %v", err)
		os.Exit(4)
	}
	log.Printf("bundle for season %s holds %v", season, b.Names())

	if *dryRun {
		log.Print("dry run: bundle not saved")
		return
	}

	store, closeStore, err := bundle.OpenStore(ctx, conf.Store, seasonConf.BundleDir, env.ProjectID)
	if err != nil {
		log.Errorf("opening bundle store: %v", err)
		os.Exit(5)
	}
	defer closeStore()
	if err := store.Save(ctx, b); err != nil {
		log.Errorf("saving bundle: %v", err)
		closeStore()
		os.Exit(5)
	}
	log.Printf("saved bundle for season %s to %s store", season, conf.Store)
}

// isSet reports whether the named flag was given on the command line.
func isSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

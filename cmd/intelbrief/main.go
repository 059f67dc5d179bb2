package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	_ "time/tzdata" // zone database for hosts without one

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"

	"github.com/draftcoreservices-svg/immigration-intel-brief/pkg/config"
	"github.com/draftcoreservices-svg/immigration-intel-brief/pkg/content"
	"github.com/draftcoreservices-svg/immigration-intel-brief/pkg/digest"
	"github.com/draftcoreservices-svg/immigration-intel-brief/pkg/gate"
	"github.com/draftcoreservices-svg/immigration-intel-brief/pkg/llm"
	"github.com/draftcoreservices-svg/immigration-intel-brief/pkg/notify"
	"github.com/draftcoreservices-svg/immigration-intel-brief/pkg/pipeline"
	"github.com/draftcoreservices-svg/immigration-intel-brief/pkg/relevance"
	"github.com/draftcoreservices-svg/immigration-intel-brief/pkg/scheduler"
	"github.com/draftcoreservices-svg/immigration-intel-brief/pkg/source"
	"github.com/draftcoreservices-svg/immigration-intel-brief/pkg/state"
	"github.com/draftcoreservices-svg/immigration-intel-brief/server"
)

// Opts with all CLI options
type Opts struct {
	Config    string `short:"c" long:"config" env:"CONFIG" default:"config/config.yml" description:"configuration file"`
	EnvFile   string `long:"env-file" env:"ENV_FILE" default:".env" description:"optional dotenv file"`
	Scheduled bool   `long:"scheduled" env:"SCHEDULED" description:"scheduled trigger, runs only inside the send window"`
	Serve     bool   `long:"serve" description:"run as a daemon with http server and periodic triggers"`
	DryRun    bool   `long:"dry-run" description:"build the digest without saving state or sending email"`

	// Common options
	Debug   bool `long:"dbg" env:"DEBUG" description:"debug mode"`
	Version bool `short:"V" long:"version" description:"show version info"`
	NoColor bool `long:"no-color" env:"NO_COLOR" description:"disable color output"`
}

var revision = "unknown"

func main() {
	var opts Opts
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if opts.Version {
		fmt.Printf("Version: %s\nGolang: %s\n", revision, runtime.Version())
		os.Exit(0)
	}

	setupLog(opts.Debug, opts.NoColor)

	log.Printf("[INFO] starting intelbrief version %s", revision)

	ctx, cancel := context.WithCancel(context.Background())

	// handle termination signals
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		log.Print("[INFO] termination signal received")
		cancel()
	}()

	err := run(ctx, opts)
	cancel()

	if err != nil {
		log.Printf("[ERROR] %v", err)
		os.Exit(1)
	}

	log.Print("[INFO] done")
}

func run(ctx context.Context, opts Opts) error {
	if err := loadEnvFile(opts.EnvFile); err != nil {
		return err
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	setupLog(opts.Debug, opts.NoColor, cfg.LLM.APIKey, cfg.SMTP.Password)

	store, err := state.New(ctx, state.Params{Backend: cfg.State.Backend, Path: cfg.State.Path, DSN: cfg.State.DSN})
	if err != nil {
		return fmt.Errorf("failed to open state: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("[WARN] failed to close state: %v", err)
		}
	}()

	svc, err := newService(cfg, store, opts.DryRun)
	if err != nil {
		return err
	}

	if opts.Serve {
		return serve(ctx, cfg, svc, opts.Debug)
	}

	trigger := pipeline.TriggerManual
	if opts.Scheduled || os.Getenv("GITHUB_EVENT_NAME") == "schedule" {
		trigger = pipeline.TriggerScheduled
	}

	res, err := svc.Run(ctx, trigger)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}
	if res.Skipped != "" {
		log.Printf("[INFO] run skipped, %s", res.Skipped)
		return nil
	}
	if res.DeliverErr != nil {
		return fmt.Errorf("failed to deliver digest: %w", res.DeliverErr)
	}
	return nil
}

// newService wires the pipeline collaborators from configuration
func newService(cfg *config.Config, store state.Store, dryRun bool) (*pipeline.Service, error) {
	g, err := gate.New(cfg.Timezone, cfg.SendHourLocal, cfg.GateWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to make run gate: %w", err)
	}

	params := pipeline.Params{
		Source: source.FromConfig(cfg.Sources, cfg.Extraction.UserAgent),
		Scorer: relevance.NewScorer(cfg.Keywords, cfg.Relevance),
		Fetcher: content.NewFetcher(content.Options{
			Timeout:   cfg.Extraction.Timeout,
			UserAgent: cfg.Extraction.UserAgent,
			MaxChars:  cfg.Extraction.MaxChars,
			GovUKBase: cfg.Sources.GovUK.BaseURL,
		}),
		Summarizer:    llm.NewSummarizer(cfg.LLM),
		Store:         store,
		Gate:          g,
		MaxCandidates: cfg.MaxCandidates,
		MaxConcurrent: cfg.Extraction.MaxConcurrent,
		AlwaysSend:    cfg.AlwaysSend,
		DryRun:        dryRun,
	}

	if cfg.SMTP.Host != "" {
		renderer, err := digest.NewRenderer(cfg.Relevance.CriticalScore)
		if err != nil {
			return nil, fmt.Errorf("failed to make digest renderer: %w", err)
		}
		params.Notifier = notify.NewMailer(cfg.SMTP, renderer, digest.Subject)
	} else {
		log.Printf("[WARN] smtp.host is not set, digests will not be emailed")
	}

	return pipeline.NewService(params), nil
}

// serve runs the http server and the trigger scheduler until ctx is canceled
func serve(ctx context.Context, cfg *config.Config, svc *pipeline.Service, debug bool) error {
	sched := scheduler.NewScheduler(svc, cfg.Server.TriggerInterval)
	sched.Start(ctx)
	defer sched.Stop()

	srv := server.New(svc, server.Params{
		Listen:  cfg.Server.Listen,
		Timeout: cfg.Server.Timeout,
		Version: revision,
		Debug:   debug,
	})
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// loadEnvFile loads variables from a dotenv file without overriding the environment.
// A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	log.Printf("[DEBUG] loaded env file %s", path)
	return nil
}

func setupLog(dbg, noColor bool, secrets ...string) {
	logOpts := []lgr.Option{lgr.Msec, lgr.LevelBraces}
	if dbg {
		logOpts = []lgr.Option{lgr.Debug, lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	}

	if !noColor {
		colorizer := lgr.Mapper{
			ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
			WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
			InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
			DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
			CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
			TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
		}
		logOpts = append(logOpts, lgr.Map(colorizer))
	}

	var secs []string
	for _, s := range secrets {
		if s != "" {
			secs = append(secs, s)
		}
	}
	if len(secs) > 0 {
		logOpts = append(logOpts, lgr.Secret(secs...))
	}
	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}

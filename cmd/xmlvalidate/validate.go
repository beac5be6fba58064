package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	xmlvalidator "github.com/agentflare-ai/go-xmlvalidator"
	"github.com/agentflare-ai/go-xmlvalidator/internal/config"
	"github.com/agentflare-ai/go-xmlvalidator/internal/logging"
	"github.com/agentflare-ai/go-xmlvalidator/internal/metrics"
	"github.com/agentflare-ai/go-xmlvalidator/report"
	"github.com/agentflare-ai/go-xmlvalidator/xsd"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/scott-cotton/cli"
)

// Exit statuses.
const (
	exitValid   = 0
	exitInvalid = 1
	exitUsage   = 2
)

type validateConfig struct {
	*cli.Command

	ConfigFile  string `cli:"name=config aliases=c desc='YAML configuration file'"`
	Schema      string `cli:"name=schema aliases=s desc='schema to validate against'"`
	Full        bool   `cli:"name=full aliases=f desc='read whole documents and report every error'"`
	ReadAhead   int    `cli:"name=read-ahead desc='bytes validated past the first node'"`
	MaxErrors   int    `cli:"name=max-errors desc='errors kept per document, 0 keeps all'"`
	Format      string `cli:"name=format aliases=o desc='output format: text, pretty, json, yaml'"`
	Color       string `cli:"name=color desc='color pretty output: auto, always, never'"`
	LogLevel    string `cli:"name=log-level desc='log level: debug, info, warn, error'"`
	MetricsFile string `cli:"name=metrics-file desc='write Prometheus metrics to this file'"`
}

// ValidateCommand returns the validate subcommand.
func ValidateCommand() *cli.Command {
	cfg := &validateConfig{}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Command, "validate").
		WithAliases("v").
		WithSynopsis("validate [opts] documents...").
		WithDescription("validate documents against a schema; exits 1 when a document is invalid").
		WithOpts(opts...).
		WithRun(cfg.run)
}

func (cfg *validateConfig) run(cc *cli.Context, args []string) error {
	args, err := cfg.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return fmt.Errorf("%w: validate requires at least one document", cli.ErrUsage)
	}
	conf, err := config.Load(cfg.ConfigFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return cli.ExitCodeErr(exitUsage)
	}
	if err := cfg.overlay(conf); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return cli.ExitCodeErr(exitUsage)
	}

	logger := logging.Init(logging.Config{
		Level:      conf.Log.Level,
		Format:     conf.Log.Format,
		TimeFormat: time.RFC3339,
		Out:        os.Stderr,
	})
	code, err := validateFiles(cc.Out, conf, args, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	if code != exitValid {
		return cli.ExitCodeErr(code)
	}
	return nil
}

// overlay applies the options given on the command line to conf.
func (cfg *validateConfig) overlay(conf *config.Config) error {
	if cfg.isSet("schema") {
		conf.Schema = cfg.Schema
	}
	if cfg.isSet("full") {
		conf.FullScan = cfg.Full
	}
	if cfg.isSet("read-ahead") {
		conf.ReadAhead = cfg.ReadAhead
	}
	if cfg.isSet("max-errors") {
		conf.MaxErrors = cfg.MaxErrors
	}
	if cfg.isSet("format") {
		conf.Output.Format = cfg.Format
	}
	if cfg.isSet("color") {
		conf.Output.Color = cfg.Color
	}
	if cfg.isSet("log-level") {
		conf.Log.Level = cfg.LogLevel
	}
	if cfg.isSet("metrics-file") {
		conf.MetricsFile = cfg.MetricsFile
	}
	return conf.Validate()
}

func (cfg *validateConfig) isSet(name string) bool {
	for _, opt := range cfg.Opts {
		if opt.Name == name {
			return opt.Value != nil
		}
	}
	return false
}

// validateFiles validates files against conf.Schema, writes the report to w
// and returns the exit status.
func validateFiles(w io.Writer, conf *config.Config, files []string, logger zerolog.Logger) (int, error) {
	if conf.Schema == "" {
		return exitUsage, errors.New("no schema given: use --schema or set schema in the configuration")
	}
	format, err := report.ParseFormat(conf.Output.Format)
	if err != nil {
		return exitUsage, err
	}

	m := metrics.New()
	cache := xsd.NewSchemaCache(conf.CacheSize)
	m.InstrumentCache(cache)
	engine := xmlvalidator.New(
		xmlvalidator.WithFullScan(conf.FullScan),
		xmlvalidator.WithReadAhead(conf.ReadAhead),
		xmlvalidator.WithMaxErrors(conf.MaxErrors),
		xmlvalidator.WithLogger(logger),
		xmlvalidator.WithMetrics(m),
		xmlvalidator.WithSchemaCache(cache),
	)
	if err := engine.SetSchema(conf.Schema); err != nil {
		return exitUsage, fmt.Errorf("%s: %w", conf.Schema, err)
	}
	results, err := engine.ValidateAll(files)
	if err != nil {
		return exitUsage, err
	}

	if err := render(w, format, results, useColor(conf.Output.Color, w)); err != nil {
		return exitUsage, fmt.Errorf("failed to write report: %w", err)
	}
	if conf.MetricsFile != "" {
		if err := m.WriteFile(conf.MetricsFile); err != nil {
			logger.Warn().Err(err).Msg("metrics not written")
		}
	}

	for _, r := range results {
		if !r.Valid {
			return exitInvalid, nil
		}
	}
	return exitValid, nil
}

func render(w io.Writer, format report.Format, results []xmlvalidator.Result, color bool) error {
	switch format {
	case report.FormatJSON:
		return report.JSON(w, results)
	case report.FormatYAML:
		return report.YAML(w, results)
	}
	pretty := report.Pretty{Color: color, ContextLines: 1}
	for _, r := range results {
		var err error
		if format == report.FormatPretty {
			source, _ := os.ReadFile(r.Document)
			err = pretty.Write(w, r.Errors, string(source))
		} else {
			err = report.Text(w, r.Errors)
		}
		if err != nil {
			return err
		}
		verdict := "validates"
		if !r.Valid {
			verdict = "fails to validate"
		}
		if _, err := fmt.Fprintf(w, "%s %s\n", r.Document, verdict); err != nil {
			return err
		}
	}
	return nil
}

func useColor(mode string, w io.Writer) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

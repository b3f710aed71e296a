package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/qoparu/qoparu/pkg/survey"
)

type report struct {
	Source  string          `json:"source"`
	Rows    int             `json:"rows"`
	Result  survey.Result   `json:"result"`
	Summary *survey.Summary `json:"summary,omitempty"`
}

// cmdReport aggregates one survey CSV without starting the server.
func cmdReport(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file (scheme, encoding, survey URL)")
	url := fs.String("url", "", "survey CSV URL (defaults to sources.survey)")
	file := fs.String("file", "", "read the CSV from a local file instead of a URL")
	summary := fs.Bool("summary", false, "include top categories and data quality")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger := newLogger("warn")
	cfg, err := loadConfig(*cfgPath, logger)
	if err != nil {
		return err
	}
	scheme, err := loadScheme(cfg)
	if err != nil {
		return err
	}

	var data *survey.ParsedCSV
	source := *file
	switch {
	case *file != "":
		raw, err := os.ReadFile(*file)
		if err != nil {
			return err
		}
		text, err := newLoader(cfg, logger).Decode(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", *file, err)
		}
		if data, err = survey.Parse(text); err != nil {
			return err
		}
	default:
		source = *url
		if source == "" {
			source = cfg.Sources.Survey
		}
		if source == "" {
			return errors.New("no survey source: pass -url, -file or set sources.survey")
		}
		ctx, cancel := context.WithTimeout(context.Background(), cfg.FetchTimeout+5*time.Second)
		defer cancel()
		if data, err = newLoader(cfg, logger).Load(ctx, source); err != nil {
			return err
		}
	}

	if err := survey.Check(data); err != nil {
		return fmt.Errorf("%s: %w", source, err)
	}

	rep := report{
		Source: source,
		Rows:   data.RowCount(),
		Result: survey.Aggregate(data, scheme),
	}
	if *summary {
		s := survey.Summarize(data, scheme)
		rep.Summary = &s
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(rep)
}

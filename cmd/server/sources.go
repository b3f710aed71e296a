package main

import (
	"flag"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/qoparu/qoparu/pkg/sources"
)

// cmdSources: "sources list" or "sources set <id> <url>".
func cmdSources(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("sources", flag.ContinueOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*cfgPath, newLogger("warn"))
	if err != nil {
		return err
	}
	db, err := sources.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Seed(cfg.definitions()); err != nil {
		return err
	}

	rest := fs.Args()
	if len(rest) == 0 {
		rest = []string{"list"}
	}
	switch rest[0] {
	case "list":
		return listSources(db, out)
	case "set":
		if len(rest) != 3 {
			return fmt.Errorf("usage: qoparu sources set <id> <url>")
		}
		if err := db.SetURL(rest[1], rest[2]); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s -> %s\n", rest[1], rest[2])
		return nil
	default:
		return fmt.Errorf("unknown sources action %q (want list or set)", rest[0])
	}
}

func listSources(db *sources.DB, out io.Writer) error {
	list, err := db.ListSources()
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tSTATUS\tCHECKED\tURL")
	for _, s := range list {
		checked := "-"
		if s.LastCheck != nil {
			checked = time.Unix(*s.LastCheck, 0).UTC().Format(time.RFC3339)
		}
		status := "-"
		if s.LastStatus != nil {
			status = fmt.Sprint(*s.LastStatus)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.ID, s.Kind, status, checked, s.URL)
	}
	return tw.Flush()
}

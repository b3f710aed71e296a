package main

import (
	"fmt"
	"os"
)

const version = "0.3.0"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "serve":
		err = cmdServe(os.Args[2:])
	case "report":
		err = cmdReport(os.Args[2:], os.Stdout)
	case "sources":
		err = cmdSources(os.Args[2:], os.Stdout)
	case "select":
		err = cmdSelect(os.Args[2:], os.Stdout)
	case "version":
		fmt.Println("qoparu", version)
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "qoparu %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `Usage: qoparu <command> [flags]

Commands:
  serve     Start the dashboard API (HTTP, MCP)
  report    Aggregate a survey CSV from a URL or file and print JSON
  sources   List data sources or override a source URL
  select    Select a district on a running server over MCP/QUIC
  version   Print the version
`)
}

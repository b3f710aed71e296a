package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/qoparu/qoparu/pkg/mcpquic"
)

// cmdSelect drives a running chassis server over MCP/QUIC.
// With -watch it keeps the session open and prints selection notifications.
func cmdSelect(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("select", flag.ContinueOnError)
	addr := fs.String("addr", "localhost:8420", "chassis address (QUIC)")
	watch := fs.Bool("watch", false, "print selection notifications until interrupted")
	timeout := fs.Duration("timeout", 10*time.Second, "connect and call timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	district := strings.Join(fs.Args(), " ")
	if district == "" && !*watch {
		return fmt.Errorf("usage: qoparu select [-addr host:port] [-watch] <district>")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := mcpquic.NewClient(*addr, nil)
	connectCtx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()
	if err := client.Connect(connectCtx); err != nil {
		return err
	}
	defer client.Close()

	if *watch {
		err := client.OnNotification(func(n mcp.JSONRPCNotification) {
			b, _ := json.Marshal(n.Params.AdditionalFields)
			fmt.Fprintf(out, "%s %s\n", n.Method, b)
		})
		if err != nil {
			return err
		}
	}

	if district != "" {
		var sel struct {
			District *string `json:"district"`
		}
		if err := client.CallJSON(connectCtx, "select_district", map[string]any{"district": district}, &sel); err != nil {
			return err
		}
		if sel.District == nil {
			fmt.Fprintln(out, "selection cleared")
		} else {
			fmt.Fprintf(out, "selected %s\n", *sel.District)
		}
	}

	if *watch {
		<-ctx.Done()
	}
	return nil
}

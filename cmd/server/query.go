package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hazyhaar/formsync/pkg/mcpquic"
)

// cmdQuery calls one browse tool on a remote server and prints its JSON.
// Arguments are key=value pairs; limit is sent as a number.
func cmdQuery(args []string) {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	addr := fs.String("addr", "localhost:8422", "MCP QUIC address of the server")
	timeout := fs.Duration("timeout", 30*time.Second, "overall timeout")
	list := fs.Bool("list", false, "list the available tools")
	fs.Parse(args)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	c := mcpquic.NewClient(*addr, nil)
	if err := c.Connect(ctx, "formsync-query", version); err != nil {
		fmt.Fprintf(os.Stderr, "Erreur connexion: %v\n", err)
		os.Exit(1)
	}
	defer c.Close()

	if *list || fs.NArg() == 0 {
		tools, err := c.ListTools(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Erreur: %v\n", err)
			os.Exit(1)
		}
		for _, t := range tools {
			fmt.Printf("  %-18s  %s\n", t.Name, t.Description)
		}
		return
	}

	toolArgs, err := parseToolArgs(fs.Args()[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Erreur: %v\n", err)
		os.Exit(1)
	}
	out, err := c.CallTool(ctx, fs.Arg(0), toolArgs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Erreur: %v\n", err)
		os.Exit(1)
	}

	var pretty any
	if json.Unmarshal([]byte(out), &pretty) == nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(pretty)
		return
	}
	fmt.Println(out)
}

func parseToolArgs(pairs []string) (map[string]any, error) {
	args := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("argument %q is not key=value", p)
		}
		if k == "limit" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("limit %q is not a number", v)
			}
			args[k] = n
			continue
		}
		args[k] = v
	}
	return args, nil
}

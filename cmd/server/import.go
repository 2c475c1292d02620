// CLAUDE:SUMMARY CLI subcommand that imports forms and responses into the store and lists the import ledger.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hazyhaar/formsync/pkg/importer"
	"github.com/hazyhaar/formsync/pkg/store"
)

type formList []string

func (f *formList) String() string { return strings.Join(*f, ",") }
func (f *formList) Set(v string) error {
	for _, id := range strings.Split(v, ",") {
		if id = strings.TrimSpace(id); id != "" {
			*f = append(*f, id)
		}
	}
	return nil
}

func cmdImport(args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	list := fs.Bool("list", false, "list the import ledger and exit")
	limitForms := fs.Int("limit-forms", -1, "import at most N forms (overrides config)")
	limitResponses := fs.Int("limit-responses", -1, "import at most N responses per form (overrides config)")
	mode := fs.String("mode", "", "write mode: batched or sequential (overrides config)")
	verbose := fs.Bool("v", false, "debug logging")
	var only formList
	fs.Var(&only, "form", "form id to import, repeatable or comma-separated (overrides config)")
	fs.Parse(args)

	logger := newLogger(*verbose)
	cfg := mustConfig(*cfgPath, logger)

	opts := cfg.importOptions()
	if *limitForms >= 0 {
		opts.FormLimit = *limitForms
	}
	if *limitResponses >= 0 {
		opts.ResponseLimit = *limitResponses
	}
	if *mode != "" {
		m, err := store.ParseMode(*mode)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Erreur: %v\n", err)
			os.Exit(1)
		}
		opts.Mode = m
	}
	if len(only) > 0 {
		opts.Forms = only
	}

	if *list {
		st := mustOpenStore(cfg, logger)
		defer st.Close()
		if err := printLedger(context.Background(), st); err != nil {
			fmt.Fprintf(os.Stderr, "Erreur: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// The token is checked before the store is touched.
	client, err := cfg.formsClient()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Erreur configuration: %v (forms.token ou %s)\n", err, tokenEnv)
		os.Exit(1)
	}

	st := mustOpenStore(cfg, logger)
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	totals, err := importer.New(client, st, opts, logger, os.Stdout).Run(ctx)
	fmt.Printf("\nTotal: %d formulaires, %d reponses (%d ignorees), %d enregistrements\n",
		totals.Forms, totals.Responses, totals.Skipped, totals.Built)
	fmt.Printf("  crees %d, inchanges %d, modifies %d  (%s)\n",
		totals.Stats.Created, totals.Stats.Matched, totals.Stats.Changed, time.Since(start).Round(time.Millisecond))
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERREUR: %v\n", err)
		var be *store.BatchError
		if errors.As(err, &be) {
			for _, f := range be.Failed {
				fmt.Fprintf(os.Stderr, "  %s: %v\n", f.Key, f.Err)
			}
		}
		st.Close()
		os.Exit(1)
	}
}

func printLedger(ctx context.Context, st *store.Store) error {
	runs, err := st.ListImports(ctx)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("Aucun import enregistre.")
		return nil
	}
	fmt.Println("Imports :")
	fmt.Println()
	for _, r := range runs {
		status := "OK"
		if r.LastError != nil {
			status = "ERREUR: " + *r.LastError
		}
		fmt.Printf("  %-12s  %-40s  %s  %d reponses, %d enregistrements (+%d ~%d =%d)  %s\n",
			r.FormID, r.Title, time.Unix(r.LastRun, 0).Format(time.DateTime),
			r.Responses, r.Records, r.Stats.Created, r.Stats.Changed, r.Stats.Matched, status)
	}
	return nil
}

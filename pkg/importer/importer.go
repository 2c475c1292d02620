// CLAUDE:SUMMARY Import pipeline: forms API -> flattened records -> idempotent store writes, one form and one response at a time.
package importer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/hazyhaar/formsync/pkg/flatten"
	"github.com/hazyhaar/formsync/pkg/forms"
	"github.com/hazyhaar/formsync/pkg/store"
)

// Source is the forms API as seen by the pipeline.
type Source interface {
	ListForms(ctx context.Context) ([]forms.FormRef, error)
	GetForm(ctx context.Context, formID string) (*forms.Form, error)
	ListResponses(ctx context.Context, formID string, limit int) ([]forms.Response, error)
}

// Sink is the document store as seen by the pipeline.
type Sink interface {
	EnsureIndexes(ctx context.Context) error
	UpsertForms(ctx context.Context, sums []flatten.FormSummary, mode store.Mode) (store.Stats, error)
	UpsertRecords(ctx context.Context, recs []flatten.Record, mode store.Mode) (store.Stats, error)
	RecordImport(ctx context.Context, run store.ImportRun) error
}

// Options tune a run.
type Options struct {
	Mode store.Mode
	// BatchSize is the number of records per write; responses are never split.
	BatchSize int
	// FormLimit and ResponseLimit cap the run when positive.
	FormLimit     int
	ResponseLimit int
	// Forms restricts the run to these form IDs when not empty.
	Forms []string
}

// Totals summarize a run.
type Totals struct {
	Forms     int         `json:"forms"`
	Responses int         `json:"responses"`
	Skipped   int         `json:"skipped"`
	Built     int         `json:"built"`
	Stats     store.Stats `json:"stats"`
}

// Importer runs the pipeline.
type Importer struct {
	src      Source
	sink     Sink
	opts     Options
	logger   *slog.Logger
	progress io.Writer
}

const DefaultBatchSize = 500

// New creates an Importer. progress receives one human-readable line per
// form; nil discards it.
func New(src Source, sink Sink, opts Options, logger *slog.Logger, progress io.Writer) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	if progress == nil {
		progress = io.Discard
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Mode == "" {
		opts.Mode = store.ModeBatched
	}
	return &Importer{src: src, sink: sink, opts: opts, logger: logger, progress: progress}
}

// Run imports every selected form. Any upstream or write error aborts the run.
func (im *Importer) Run(ctx context.Context) (Totals, error) {
	var totals Totals

	if err := im.sink.EnsureIndexes(ctx); err != nil {
		im.logger.Warn("unique index setup failed, duplicates are not prevented", "error", err)
	}

	refs, err := im.src.ListForms(ctx)
	if err != nil {
		return totals, fmt.Errorf("list forms: %w", err)
	}
	refs = im.selectForms(refs)
	im.logger.Info("forms selected", "count", len(refs))

	for _, ref := range refs {
		ft, err := im.importForm(ctx, ref)
		totals.Forms++
		totals.Responses += ft.Responses
		totals.Skipped += ft.Skipped
		totals.Built += ft.Built
		totals.Stats.Add(ft.Stats)
		if err != nil {
			return totals, fmt.Errorf("form %s: %w", ref.ID, err)
		}
	}

	im.logger.Info("import complete",
		"forms", totals.Forms,
		"responses", totals.Responses,
		"skipped", totals.Skipped,
		"built", totals.Built,
		"created", totals.Stats.Created,
		"matched", totals.Stats.Matched,
		"changed", totals.Stats.Changed,
	)
	return totals, nil
}

func (im *Importer) selectForms(refs []forms.FormRef) []forms.FormRef {
	if len(im.opts.Forms) > 0 {
		want := make(map[string]bool, len(im.opts.Forms))
		for _, id := range im.opts.Forms {
			want[id] = true
		}
		kept := refs[:0:0]
		for _, r := range refs {
			if want[r.ID] {
				kept = append(kept, r)
			}
		}
		refs = kept
	}
	if im.opts.FormLimit > 0 && len(refs) > im.opts.FormLimit {
		refs = refs[:im.opts.FormLimit]
	}
	return refs
}

func (im *Importer) importForm(ctx context.Context, ref forms.FormRef) (ft Totals, err error) {
	log := im.logger.With("form", ref.ID)
	run := store.ImportRun{FormID: ref.ID, Title: ref.Title, LastRun: time.Now().Unix()}

	defer func() {
		run.Responses, run.Skipped, run.Records, run.Stats = ft.Responses, ft.Skipped, ft.Built, ft.Stats
		if err != nil {
			msg := err.Error()
			run.LastError = &msg
		}
		if lerr := im.sink.RecordImport(ctx, run); lerr != nil {
			log.Warn("import ledger not updated", "error", lerr)
		}
	}()

	form, err := im.src.GetForm(ctx, ref.ID)
	if err != nil {
		return ft, fmt.Errorf("get form: %w", err)
	}
	if form.Title == "" {
		form.Title = ref.Title
	}
	run.Title = form.Title

	if _, err := im.sink.UpsertForms(ctx, []flatten.FormSummary{{FormID: form.ID, Title: form.Title}}, im.opts.Mode); err != nil {
		return ft, fmt.Errorf("upsert form summary: %w", err)
	}

	responses, err := im.src.ListResponses(ctx, form.ID, im.opts.ResponseLimit)
	if err != nil {
		return ft, fmt.Errorf("list responses: %w", err)
	}
	log.Info("responses fetched", "count", len(responses))

	builder := flatten.NewBuilder(form)
	var pending []flatten.Record
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		st, err := im.sink.UpsertRecords(ctx, pending, im.opts.Mode)
		ft.Stats.Add(st)
		log.Info("batch written", "records", len(pending), "created", st.Created, "matched", st.Matched, "changed", st.Changed)
		pending = pending[:0]
		if err != nil {
			return fmt.Errorf("write batch: %w", err)
		}
		return nil
	}

	for _, resp := range responses {
		ft.Responses++
		recs := builder.Build(resp)
		if len(recs) == 0 {
			ft.Skipped++
			log.Info("skip response without answers", "response", resp.ID)
			continue
		}
		ft.Built += len(recs)
		log.Debug("response built", "response", resp.ID, "records", len(recs))

		if len(pending) > 0 && len(pending)+len(recs) > im.opts.BatchSize {
			if err := flush(); err != nil {
				return ft, err
			}
		}
		pending = append(pending, recs...)
	}
	if err := flush(); err != nil {
		return ft, err
	}

	fmt.Fprintf(im.progress, "[%s] %s: %d reponses (%d ignorees), %d enregistrements (crees %d, inchanges %d, modifies %d)\n",
		form.ID, form.Title, ft.Responses, ft.Skipped, ft.Built, ft.Stats.Created, ft.Stats.Matched, ft.Stats.Changed)
	return ft, nil
}

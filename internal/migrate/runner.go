package migrate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/tordrt/richtextmigrate/internal/db"
	"github.com/tordrt/richtextmigrate/internal/field"
	"github.com/tordrt/richtextmigrate/internal/xmltext"
)

// Options configures a Runner
type Options struct {
	Markers field.Markers
	// DryRun runs both phases without writing anything
	DryRun    bool
	BatchSize int
	// RetryAttempts is the total number of attempts of a write, at least one
	RetryAttempts int
	RetryDelay    time.Duration
	Mode          xmltext.ExpansionMode
	// Converter replaces the default converter built from Mode
	Converter Converter
}

// DefaultOptions returns the options of a regular migration: one retry after
// 100ms, temporary paragraphs kept
func DefaultOptions() Options {
	return Options{
		Markers:       field.DefaultMarkers(),
		BatchSize:     DefaultBatchSize,
		RetryAttempts: 2,
		RetryDelay:    100 * time.Millisecond,
		Mode:          xmltext.IgnoreTemporary,
	}
}

// Runner migrates field definitions and field rows
type Runner struct {
	store     Store
	selector  *Selector
	converter Converter
	opts      Options
	logger    *zap.Logger
	out       io.Writer
}

// NewRunner creates a runner. Progress lines are written to out, row level
// details go to logger.
func NewRunner(store Store, opts Options, logger *zap.Logger, out io.Writer) *Runner {
	if opts.Markers.Legacy == "" || opts.Markers.Target == "" {
		opts.Markers = field.DefaultMarkers()
	}
	if opts.RetryAttempts < 1 {
		opts.RetryAttempts = 1
	}
	conv := opts.Converter
	if conv == nil {
		conv = xmltext.NewConverter(opts.Mode)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if out == nil {
		out = io.Discard
	}

	return &Runner{
		store:     store,
		selector:  NewSelector(store, opts.Markers.Legacy, opts.BatchSize),
		converter: conv,
		opts:      opts,
		logger:    logger,
		out:       out,
	}
}

// Selector returns the selector the runner reads rows with
func (r *Runner) Selector() *Selector {
	return r.selector
}

// Run migrates definitions, then field rows. On error the returned report
// holds what was done up to the failure.
func (r *Runner) Run(ctx context.Context, scope field.Scope) (*Report, error) {
	report := &Report{DryRun: r.opts.DryRun, Markers: r.opts.Markers, Scope: scope}

	defs, err := r.MigrateDefinitions(ctx, scope)
	report.Definitions = defs
	if err != nil {
		return report, err
	}

	recs, err := r.MigrateRecords(ctx, scope)
	report.Records = recs
	if err != nil {
		return report, err
	}

	return report, nil
}

// MigrateDefinitions switches the legacy field definitions in scope to the
// target type in one update. In dry-run mode the candidates are only listed.
func (r *Runner) MigrateDefinitions(ctx context.Context, scope field.Scope) (PhaseReport, error) {
	rep := PhaseReport{Table: field.Definitions}

	found, err := r.selector.Count(ctx, scope, field.Definitions)
	if err != nil {
		return rep, fmt.Errorf("failed to count field definitions: %w", err)
	}
	rep.Found = found
	_, _ = fmt.Fprintf(r.out, "Found %d field definitions to convert.\n", found)

	if r.opts.DryRun {
		for def, err := range r.selector.Definitions(ctx, scope) {
			if err != nil {
				return rep, fmt.Errorf("failed to read field definitions: %w", err)
			}
			rep.Processed++
			r.logger.Debug("Field definition would be converted",
				zap.Int64("id", def.ID),
				zap.Int64("version", def.Version),
				zap.Int64("content_type_id", def.ContentTypeID))
		}
		_, _ = fmt.Fprintf(r.out, "Dry run: %d %s field definitions would be converted to %s\n",
			rep.Processed, r.opts.Markers.Legacy, r.opts.Markers.Target)
		return rep, nil
	}

	var converted int64
	err = r.retry(ctx, func() error {
		n, err := r.store.ConvertDefinitions(ctx, r.opts.Markers, scope)
		converted = n
		return err
	})
	if err != nil {
		return rep, &StorageError{Op: "convert field definitions", Err: err}
	}

	rep.Processed = converted
	rep.Converted = converted
	_, _ = fmt.Fprintf(r.out, "Converted %d %s field definitions to %s\n",
		converted, r.opts.Markers.Legacy, r.opts.Markers.Target)
	return rep, nil
}

// MigrateRecords converts the legacy field rows in scope one at a time. A row
// that cannot be converted or stored is logged and counted as failed, the
// remaining rows are still migrated.
func (r *Runner) MigrateRecords(ctx context.Context, scope field.Scope) (PhaseReport, error) {
	rep := PhaseReport{Table: field.Records}

	found, err := r.selector.Count(ctx, scope, field.Records)
	if err != nil {
		return rep, fmt.Errorf("failed to count field rows: %w", err)
	}
	rep.Found = found
	_, _ = fmt.Fprintf(r.out, "Found %d field rows to convert.\n", found)

	for rec, err := range r.selector.Records(ctx, scope) {
		if err != nil {
			return rep, fmt.Errorf("failed to read field rows: %w", err)
		}
		if err := ctx.Err(); err != nil {
			return rep, fmt.Errorf("migration interrupted: %w", err)
		}
		rep.Processed++
		r.migrateRecord(ctx, rec, &rep)
	}

	if r.opts.DryRun {
		_, _ = fmt.Fprintf(r.out, "Dry run: converted %d of %d %s fields, nothing was written\n",
			rep.Processed-rep.Failed, rep.Processed, r.opts.Markers.Legacy)
	} else {
		_, _ = fmt.Fprintf(r.out, "Converted %d %s fields to %s\n",
			rep.Converted, r.opts.Markers.Legacy, r.opts.Markers.Target)
	}
	if rep.Failed > 0 || rep.ValidationWarnings > 0 {
		_, _ = fmt.Fprintf(r.out, "%d fields failed, %d fields had validation errors\n",
			rep.Failed, rep.ValidationWarnings)
	}
	return rep, nil
}

func (r *Runner) migrateRecord(ctx context.Context, rec field.Record, rep *PhaseReport) {
	log := r.logger.With(zap.Int64("id", rec.ID), zap.Int64("version", rec.Version))

	res, err := r.converter.Convert(rec.RawValue)
	if err != nil {
		log.Error("Failed to convert field",
			zap.Error(err),
			zap.String("input", rec.RawValue))
		rep.fail(rec.Key, err.Error())
		return
	}

	if !r.opts.DryRun {
		err := r.retry(ctx, func() error {
			return r.store.UpdateRecord(ctx, rec.Key, r.opts.Markers.Target, res.Output)
		})
		if err != nil {
			serr := &StorageError{Op: "update field " + rec.Key.String(), Err: err}
			log.Error("Failed to store converted field", zap.Error(serr))
			rep.fail(rec.Key, serr.Error())
			return
		}
		rep.Converted++
	}

	log.Info(fmt.Sprintf("Converted %s field #%d to %s", r.opts.Markers.Legacy, rec.ID, r.opts.Markers.Target),
		zap.String("original", rec.RawValue),
		zap.String("converted", res.Output),
		zap.Bool("dry_run", r.opts.DryRun))

	if len(res.Errors) > 0 {
		log.Error("Validation errors when converting xmlstring",
			zap.String("result", res.Output),
			zap.Strings("errors", res.Errors),
			zap.String("input", rec.RawValue))
		rep.warn(rec.Key, res.Errors)
	}
}

// retry runs op until it succeeds or the configured attempts are used up.
// A missing row is not retried.
func (r *Runner) retry(ctx context.Context, op func() error) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(r.opts.RetryDelay), uint64(r.opts.RetryAttempts-1)),
		ctx,
	)
	return backoff.Retry(func() error {
		err := op()
		if errors.Is(err, db.ErrRowNotFound) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}

// Package parser wires fetch, extraction, windowing and persistence for one index.
package parser

import (
	"context"
	"time"

	"github.com/huangsam/indexhist/internal/contract"
	"github.com/huangsam/indexhist/internal/series"
	"github.com/huangsam/indexhist/schema"
)

// Parser fetches and stores the history of one index for one period.
// The (index, period) pair is fixed at construction; no other state is kept between calls.
type Parser struct {
	key     schema.SeriesKey
	fetcher contract.Fetcher
	store   contract.PointStore
	runs    contract.RunStore
	logger  *contract.Logger
}

var _ contract.IndexParser = &Parser{} // Compile-time check

// Option configures a Parser.
type Option func(*Parser)

// WithRunStore records every SaveToDB call in the run log.
func WithRunStore(runs contract.RunStore) Option {
	return func(p *Parser) {
		p.runs = runs
	}
}

// WithLogger sets the logger
func WithLogger(logger *contract.Logger) Option {
	return func(p *Parser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New validates the index and period and returns a Parser for them.
// The store may be nil for parsers that only call GetData.
func New(index string, period schema.Period, fetcher contract.Fetcher, store contract.PointStore, opts ...Option) (*Parser, error) {
	if err := contract.ValidateUnitName(index); err != nil {
		return nil, err
	}
	normalized, err := schema.ParsePeriod(string(period))
	if err != nil {
		return nil, err
	}

	p := &Parser{
		key:     schema.SeriesKey{Index: index, Period: normalized},
		fetcher: fetcher,
		store:   store,
		logger:  contract.NewSilentLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Key returns the series this parser reads.
func (p *Parser) Key() schema.SeriesKey {
	return p.key
}

// GetData fetches the payload, extracts its points and keeps the last ones.
// A last of zero or less keeps every point. Fetch failures are returned as an
// ExtractionError that wraps the underlying TransportError.
func (p *Parser) GetData(ctx context.Context, last int) ([]schema.Point, error) {
	payload, err := p.fetcher.Fetch(ctx, p.key)
	if err != nil {
		return nil, contract.NewExtractionError("could not fetch "+p.key.Unit(), err)
	}

	points, err := series.ExtractPayload(payload, p.key)
	if err != nil {
		return nil, err
	}
	p.logger.Debug().Str("unit", p.key.Unit()).Str("source", payload.Source).Int("points", len(points)).Msg("extracted series")
	return series.Window(points, last), nil
}

// SaveToDB runs GetData and writes the result to the store.
// An empty result is a PersistenceError and never reaches the store.
func (p *Parser) SaveToDB(ctx context.Context, last int) (schema.SaveResult, error) {
	started := time.Now().UTC()
	result, err := p.saveToDB(ctx, last)
	p.recordRun(ctx, started, result, err)
	return result, err
}

func (p *Parser) saveToDB(ctx context.Context, last int) (schema.SaveResult, error) {
	empty := schema.SaveResult{Unit: p.key.Unit()}

	points, err := p.GetData(ctx, last)
	if err != nil {
		return empty, err
	}
	if len(points) == 0 {
		return empty, contract.NewPersistenceError("nothing to save", nil)
	}
	if p.store == nil {
		return empty, contract.NewPersistenceError("no store configured", nil)
	}

	result, err := p.store.Save(ctx, p.key.Index, points)
	if err != nil {
		return result, err
	}
	p.logger.Info().Str("unit", result.Unit).Int("requested", result.Requested).Int("inserted", result.Inserted).Msg("saved series")
	return result, nil
}

// recordRun writes the outcome to the run log. Failures to record only warn.
func (p *Parser) recordRun(ctx context.Context, started time.Time, result schema.SaveResult, runErr error) {
	if p.runs == nil {
		return
	}

	run := schema.IngestRun{
		Unit:      p.key.Unit(),
		Period:    p.key.Period,
		Strategy:  p.fetcher.Strategy(),
		Requested: result.Requested,
		Inserted:  result.Inserted,
		StartTime: started,
		EndTime:   time.Now().UTC(),
	}
	if runErr != nil {
		msg := runErr.Error()
		run.ErrorText = &msg
	}

	if _, err := p.runs.RecordRun(context.WithoutCancel(ctx), run); err != nil {
		p.logger.Warn().Err(err).Str("unit", run.Unit).Msg("could not record ingest run")
	}
}

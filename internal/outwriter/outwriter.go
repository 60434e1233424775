// Package outwriter has output and writer logic.
package outwriter

import (
	"io"
	"os"
	"time"

	"github.com/huangsam/indexhist/internal/contract"
	"github.com/huangsam/indexhist/schema"
	"golang.org/x/term"
)

// OutWriter provides a unified interface for all output operations.
// It encapsulates the various output formats and provides a clean API for the commands.
type OutWriter struct {
	out io.Writer // Destination when no output file is configured
}

// NewOutWriter creates a new instance of the output writer on stdout.
func NewOutWriter() *OutWriter {
	return &OutWriter{out: os.Stdout}
}

// NewOutWriterTo creates an output writer on w.
func NewOutWriterTo(w io.Writer) *OutWriter {
	return &OutWriter{out: w}
}

// WritePoints prints the points of one series using the configured output format.
func (ow *OutWriter) WritePoints(key schema.SeriesKey, points []schema.Point, cfg *contract.Config, duration time.Duration) error {
	return WritePointResults(ow.out, key, points, cfg, duration)
}

// WriteSaveResults prints the outcome of one or more saves using the configured output format.
func (ow *OutWriter) WriteSaveResults(results []schema.SaveResult, cfg *contract.Config, duration time.Duration) error {
	return WriteSaveResults(ow.out, results, cfg, duration)
}

// WriteRuns prints ingest runs using the configured output format.
func (ow *OutWriter) WriteRuns(runs []schema.IngestRun, cfg *contract.Config) error {
	return WriteRunResults(ow.out, runs, cfg)
}

// ColorsSupported reports whether stdout is a terminal that can render colors.
func ColorsSupported() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

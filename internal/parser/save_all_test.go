package parser

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/huangsam/indexhist/internal/contract"
	"github.com/huangsam/indexhist/internal/iostore"
	"github.com/huangsam/indexhist/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeParser returns a canned result and tracks concurrency.
type fakeParser struct {
	unit     string
	err      error
	inFlight *atomic.Int32
	peak     *atomic.Int32
}

func (f *fakeParser) GetData(context.Context, int) ([]schema.Point, error) {
	return nil, nil
}

func (f *fakeParser) SaveToDB(ctx context.Context, last int) (schema.SaveResult, error) {
	if f.inFlight != nil {
		n := f.inFlight.Add(1)
		defer f.inFlight.Add(-1)
		for {
			peak := f.peak.Load()
			if n <= peak || f.peak.CompareAndSwap(peak, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	if f.err != nil {
		return schema.SaveResult{}, f.err
	}
	return schema.SaveResult{Unit: f.unit, Requested: last, Inserted: last}, nil
}

func TestSaveAll_KeepsOrder(t *testing.T) {
	parsers := []contract.IndexParser{
		&fakeParser{unit: "TIPOUS"},
		&fakeParser{unit: "IMOEX"},
		&fakeParser{unit: "GOLD"},
	}

	results, err := SaveAll(context.Background(), parsers, 5, 2)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "TIPOUS", results[0].Unit)
	assert.Equal(t, "IMOEX", results[1].Unit)
	assert.Equal(t, "GOLD", results[2].Unit)
	assert.Equal(t, 5, results[2].Inserted)
}

func TestSaveAll_RespectsWorkerLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	parsers := make([]contract.IndexParser, 8)
	for i := range parsers {
		parsers[i] = &fakeParser{unit: "U", inFlight: &inFlight, peak: &peak}
	}

	_, err := SaveAll(context.Background(), parsers, 0, 2)
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.GreaterOrEqual(t, peak.Load(), int32(1))
}

func TestSaveAll_ReturnsFirstError(t *testing.T) {
	boom := contract.NewPersistenceError("nothing to save", nil)
	parsers := []contract.IndexParser{
		&fakeParser{unit: "TIPOUS"},
		&fakeParser{unit: "IMOEX", err: boom},
	}

	_, err := SaveAll(context.Background(), parsers, 0, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "save parser 1")

	var pErr *contract.PersistenceError
	assert.True(t, errors.As(err, &pErr))
}

func TestSaveAll_Empty(t *testing.T) {
	results, err := SaveAll(context.Background(), nil, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

// indexPage builds a page holding n yearly points for the unit.
func indexPage(unit string, n int) contract.Payload {
	base := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	records := make([]string, n)
	for i := range records {
		records[i] = fmt.Sprintf(`{"dateTime":%q,"value":%d.5}`, base.Add(time.Duration(i)*time.Hour).Format(time.RFC3339), i)
	}
	return markup(fmt.Sprintf(`{"stores":{"investIndexHistory":{%q:{"year":{"index":[%s]}}}}}`, unit, strings.Join(records, ",")))
}

func TestSaveAll_SQLiteWithRunLog(t *testing.T) {
	ctx := context.Background()
	const indexes, points = 16, 200

	for round := range 3 {
		mgr, err := iostore.OpenStores(schema.SQLiteBackend, filepath.Join(t.TempDir(), fmt.Sprintf("concurrent%d.db", round)), true, nil)
		require.NoError(t, err)

		parsers := make([]contract.IndexParser, indexes)
		for i := range parsers {
			unit := fmt.Sprintf("IDX%d", i)
			p, err := New(unit, schema.PeriodYear, newFetcher(indexPage(unit, points), nil), mgr.Points(), WithRunStore(mgr.Runs()))
			require.NoError(t, err)
			parsers[i] = p
		}

		results, err := SaveAll(ctx, parsers, 0, 8)
		require.NoError(t, err, "round %d", round)
		require.Len(t, results, indexes)
		for _, r := range results {
			assert.Equal(t, points, r.Inserted, r.Unit)
		}

		status, err := mgr.Runs().GetStatus(ctx)
		require.NoError(t, err)
		assert.Equal(t, indexes, status.TotalRuns)
		assert.Zero(t, status.FailedRuns)

		require.NoError(t, mgr.Close())
	}
}

package parser

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/huangsam/indexhist/internal/contract"
	"github.com/huangsam/indexhist/internal/fetch"
	"github.com/huangsam/indexhist/internal/iostore"
	"github.com/huangsam/indexhist/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func markup(state string) contract.Payload {
	body := fmt.Sprintf(`<html><body><script id="__TRAMVAI_STATE__">%s</script></body></html>`, state)
	return contract.Payload{Format: schema.MarkupPayload, Body: []byte(body), Source: "test"}
}

// tipousPage holds only the year period, which is what the producer serves for TIPOUS.
var tipousPage = markup(`{"stores":{"investIndexHistory":{"TIPOUS":{"year":{"index":[
	{"dateTime":"2023-01-01T00:00:00+03:00","value":100.0},
	{"dateTime":"2023-01-02T00:00:00+03:00","value":101.5},
	{"dateTime":"2023-01-03T00:00:00+03:00","value":99.25}
]}}}}}`)

var emptyPage = markup(`{"stores":{"investIndexHistory":{"TIPOUS":{"year":{"index":[]}}}}}`)

func newFetcher(payload contract.Payload, err error) *fetch.MockFetcher {
	f := &fetch.MockFetcher{}
	f.On("Fetch", mock.Anything, mock.Anything).Return(payload, err)
	f.On("Strategy").Return(schema.PageStrategy).Maybe()
	return f
}

func TestNew(t *testing.T) {
	f := &fetch.MockFetcher{}

	p, err := New("tipous", "ALL", f, nil)
	require.NoError(t, err)
	assert.Equal(t, schema.SeriesKey{Index: "tipous", Period: schema.PeriodAll}, p.Key())

	_, err = New("tip-ous", schema.PeriodYear, f, nil)
	assert.Error(t, err)

	_, err = New("tipous", "month", f, nil)
	assert.ErrorContains(t, err, "invalid period")
}

func TestGetData_FallsBackToYear(t *testing.T) {
	f := newFetcher(tipousPage, nil)
	p, err := New("tipous", schema.PeriodAll, f, nil)
	require.NoError(t, err)

	points, err := p.GetData(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, []float64{100.0, 101.5, 99.25}, []float64{points[0].Value, points[1].Value, points[2].Value})

	f.AssertCalled(t, "Fetch", mock.Anything, schema.SeriesKey{Index: "tipous", Period: schema.PeriodAll})
}

func TestGetData_Window(t *testing.T) {
	tests := []struct {
		last     int
		expected []float64
	}{
		{0, []float64{100.0, 101.5, 99.25}},
		{1, []float64{99.25}},
		{2, []float64{101.5, 99.25}},
		{3, []float64{100.0, 101.5, 99.25}},
		{10, []float64{100.0, 101.5, 99.25}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("last=%d", tt.last), func(t *testing.T) {
			p, err := New("tipous", schema.PeriodYear, newFetcher(tipousPage, nil), nil)
			require.NoError(t, err)

			points, err := p.GetData(context.Background(), tt.last)
			require.NoError(t, err)
			values := make([]float64, 0, len(points))
			for _, pt := range points {
				values = append(values, pt.Value)
			}
			assert.Equal(t, tt.expected, values)
		})
	}
}

func TestGetData_TransportError(t *testing.T) {
	transportErr := &contract.TransportError{URL: "https://example.invalid/", StatusCode: 503}
	p, err := New("tipous", schema.PeriodYear, newFetcher(contract.Payload{}, transportErr), nil)
	require.NoError(t, err)

	_, err = p.GetData(context.Background(), 0)
	require.Error(t, err)

	var extractionErr *contract.ExtractionError
	assert.True(t, errors.As(err, &extractionErr))
	var tErr *contract.TransportError
	require.True(t, errors.As(err, &tErr))
	assert.Equal(t, 503, tErr.StatusCode)
}

func TestGetData_MissingStateBlock(t *testing.T) {
	page := contract.Payload{Format: schema.MarkupPayload, Body: []byte("<html><body>maintenance</body></html>")}
	p, err := New("tipous", schema.PeriodYear, newFetcher(page, nil), nil)
	require.NoError(t, err)

	_, err = p.GetData(context.Background(), 0)
	var extractionErr *contract.ExtractionError
	require.True(t, errors.As(err, &extractionErr))
	assert.Equal(t, "state block not found", extractionErr.Msg)
}

func TestSaveToDB_NothingToSave(t *testing.T) {
	store := &iostore.MockPointStore{}
	p, err := New("tipous", schema.PeriodYear, newFetcher(emptyPage, nil), store)
	require.NoError(t, err)

	_, err = p.SaveToDB(context.Background(), 0)
	require.Error(t, err)

	var pErr *contract.PersistenceError
	require.True(t, errors.As(err, &pErr))
	assert.Equal(t, "nothing to save", pErr.Msg)
	store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
}

func TestSaveToDB_Delegates(t *testing.T) {
	store := &iostore.MockPointStore{}
	store.On("Save", mock.Anything, "tipous", mock.MatchedBy(func(points []schema.Point) bool {
		return len(points) == 2 && points[1].Value == 99.25
	})).Return(schema.SaveResult{Unit: "TIPOUS", Requested: 2, Inserted: 1}, nil)

	p, err := New("tipous", schema.PeriodYear, newFetcher(tipousPage, nil), store)
	require.NoError(t, err)

	result, err := p.SaveToDB(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, schema.SaveResult{Unit: "TIPOUS", Requested: 2, Inserted: 1}, result)
	store.AssertExpectations(t)
}

func TestSaveToDB_StoreError(t *testing.T) {
	storeErr := contract.NewPersistenceError("failed to save points into TIPOUS", errors.New("disk full"))
	store := &iostore.MockPointStore{}
	store.On("Save", mock.Anything, "tipous", mock.Anything).Return(schema.SaveResult{Unit: "TIPOUS", Requested: 3}, storeErr)

	p, err := New("tipous", schema.PeriodYear, newFetcher(tipousPage, nil), store)
	require.NoError(t, err)

	_, err = p.SaveToDB(context.Background(), 0)
	assert.ErrorIs(t, err, storeErr)
}

func TestSaveToDB_RecordsRuns(t *testing.T) {
	store := &iostore.MockPointStore{}
	store.On("Save", mock.Anything, "tipous", mock.Anything).Return(schema.SaveResult{Unit: "TIPOUS", Requested: 3, Inserted: 3}, nil)

	runs := &iostore.MockRunStore{}
	runs.On("RecordRun", mock.Anything, mock.MatchedBy(func(run schema.IngestRun) bool {
		return run.Unit == "TIPOUS" &&
			run.Period == schema.PeriodAll &&
			run.Strategy == schema.PageStrategy &&
			run.Requested == 3 &&
			run.Inserted == 3 &&
			run.Succeeded() &&
			!run.EndTime.Before(run.StartTime)
	})).Return(int64(1), nil).Once()

	p, err := New("tipous", schema.PeriodAll, newFetcher(tipousPage, nil), store, WithRunStore(runs))
	require.NoError(t, err)

	_, err = p.SaveToDB(context.Background(), 0)
	require.NoError(t, err)
	runs.AssertExpectations(t)
}

func TestSaveToDB_RecordsFailedRuns(t *testing.T) {
	runs := &iostore.MockRunStore{}
	runs.On("RecordRun", mock.Anything, mock.MatchedBy(func(run schema.IngestRun) bool {
		return run.ErrorText != nil && *run.ErrorText == "persistence failed: nothing to save"
	})).Return(int64(0), errors.New("run log unavailable")).Once()

	p, err := New("tipous", schema.PeriodYear, newFetcher(emptyPage, nil), &iostore.MockPointStore{}, WithRunStore(runs))
	require.NoError(t, err)

	// A failing run log does not replace the original error.
	_, err = p.SaveToDB(context.Background(), 0)
	var pErr *contract.PersistenceError
	require.True(t, errors.As(err, &pErr))
	assert.Equal(t, "nothing to save", pErr.Msg)
	runs.AssertExpectations(t)
}

func TestSaveToDB_SQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := iostore.NewPointStore(schema.SQLiteBackend, t.TempDir()+"/roundtrip.db", nil)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	p, err := New("tipous", schema.PeriodAll, newFetcher(tipousPage, nil), store)
	require.NoError(t, err)

	first, err := p.SaveToDB(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, first.Inserted)

	second, err := p.SaveToDB(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Inserted)

	loaded, err := store.Load(ctx, "tipous", nil, nil)
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	assert.Equal(t, time.Date(2022, 12, 31, 21, 0, 0, 0, time.UTC), loaded[0].Timestamp)
}

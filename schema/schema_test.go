package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeriesKey(t *testing.T) {
	key := SeriesKey{Index: " tipous ", Period: PeriodYear}
	assert.Equal(t, "TIPOUS", key.Unit())
	assert.Equal(t, "tipous", key.Slug())
	assert.Equal(t, "GOLD", UnitName("Gold"))
}

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		input   string
		want    Period
		wantErr bool
	}{
		{"year", PeriodYear, false},
		{"ALL", PeriodAll, false},
		{"  Year ", PeriodYear, false},
		{"month", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePeriod(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSaveResultSkipped(t *testing.T) {
	r := SaveResult{Unit: "GOLD", Requested: 10, Inserted: 7}
	assert.Equal(t, 3, r.Skipped())
}

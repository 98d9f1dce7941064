package market

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `date,instrument,open,high,low,close,volume,score,momentum,quality,rsi,ma20,volatility
2024-03-04,005930,100,105,99,104,120000,72.5,1.2,65,58,101.5,0.22
2024-03-04,000660,50,52,49,51,80000,80.1,-0.4,70,61,50.2,0.31
2024-03-05,005930,104,108,103,107,90000,71.0,1.1,64,60,102.0,0.22
not-a-date,005930,1,1,1,1,1
2024-03-05,000660,51,51,47,0,1000
`

func TestReadCSV(t *testing.T) {
	t.Parallel()

	ds, err := ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	assert.Equal(t, []string{"000660", "005930"}, ds.Instruments())
	assert.Equal(t, 3, ds.Stats().Rows)
	// One bad date, one non-positive close.
	assert.Equal(t, 2, ds.Stats().BadLines)

	b, ok := ds.Bar("005930", time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC))
	require.True(t, ok)
	assert.InDelta(t, 104.0, b.Close, 1e-9)
	assert.InDelta(t, 72.5, b.Score, 1e-9)
	assert.InDelta(t, 1.2, b.Momentum, 1e-9)
	assert.InDelta(t, 0.22, b.Volatility, 1e-9)
}

func TestReadCSVOptionalColumns(t *testing.T) {
	t.Parallel()

	csv := "2024-03-04,005930,100,105,99,104,120000\n"
	ds, err := ReadCSV(strings.NewReader(csv))
	require.NoError(t, err)

	b, ok := ds.Bar("005930", time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Zero(t, b.Score)
	assert.Zero(t, b.RSI)
}

func TestLoadDispatchesOnExtension(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bars.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0644))

	ds, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, ds.Stats().Rows)
}

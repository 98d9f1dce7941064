package market

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ulikunitz/xz"
	"github.com/xyproto/unzip"
)

// Loader reads merged bar CSVs into a Dataset. Expected header:
//
//	date,instrument,open,high,low,close,volume[,score,momentum,quality,rsi,ma20,volatility]
//
// The trailing derived columns are optional; missing values parse as 0.
// Rows that fail to parse are skipped and counted, matching how the
// simulator treats sparse data.
//
// Load dispatches on extension: plain .csv, .csv.xz (xz-compressed), or
// a .zip bundle of CSVs.
func Load(path string) (*Dataset, error) {
	switch {
	case strings.HasSuffix(path, ".zip"):
		return loadZip(path)
	case strings.HasSuffix(path, ".xz"):
		return loadXZ(path)
	default:
		return loadCSV(path)
	}
}

func loadCSV(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load bars: %w", err)
	}
	defer f.Close()

	return ReadCSV(f)
}

func loadXZ(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load bars: %w", err)
	}
	defer f.Close()

	r, err := xz.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("load bars: xz %s: %w", path, err)
	}
	return ReadCSV(r)
}

// loadZip extracts a zip bundle to a scratch directory and loads every
// contained CSV into one Dataset.
func loadZip(path string) (*Dataset, error) {
	dir, err := os.MkdirTemp("", "bars-*")
	if err != nil {
		return nil, fmt.Errorf("load bars: %w", err)
	}
	defer os.RemoveAll(dir)

	if err := unzip.Extract(path, dir); err != nil {
		return nil, fmt.Errorf("load bars: unzip %s: %w", path, err)
	}

	var bars []Bar
	bad := 0

	err = filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(p, ".csv") {
			return err
		}
		f, err := os.Open(p)
		if err != nil {
			return err
		}
		defer f.Close()

		b, n, err := readBars(f)
		if err != nil {
			return fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		bars = append(bars, b...)
		bad += n
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load bars: %w", err)
	}

	ds, err := NewDataset(bars)
	if err != nil {
		return nil, err
	}
	ds.stats.BadLines = bad
	return ds, nil
}

// ReadCSV parses one bar CSV stream into a Dataset.
func ReadCSV(r io.Reader) (*Dataset, error) {
	bars, bad, err := readBars(r)
	if err != nil {
		return nil, err
	}

	ds, err := NewDataset(bars)
	if err != nil {
		return nil, err
	}
	ds.stats.BadLines = bad
	return ds, nil
}

func readBars(r io.Reader) (bars []Bar, badLines int, err error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // derived columns are optional

	first := true
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			badLines++
			continue
		}
		if first {
			first = false
			if len(rec) > 0 && strings.EqualFold(rec[0], "date") {
				continue
			}
		}

		b, ok := parseBar(rec)
		if !ok {
			badLines++
			continue
		}
		bars = append(bars, b)
	}

	return bars, badLines, nil
}

func parseBar(rec []string) (Bar, bool) {
	if len(rec) < 7 {
		return Bar{}, false
	}

	date, err := time.Parse("2006-01-02", strings.TrimSpace(rec[0]))
	if err != nil {
		return Bar{}, false
	}
	instr := strings.TrimSpace(rec[1])
	if instr == "" {
		return Bar{}, false
	}

	f := func(i int) float64 {
		if i >= len(rec) {
			return 0
		}
		v, _ := strconv.ParseFloat(strings.TrimSpace(rec[i]), 64)
		return v
	}

	open, high, low, cls := f(2), f(3), f(4), f(5)
	if cls <= 0 {
		return Bar{}, false
	}
	vol, _ := strconv.ParseInt(strings.TrimSpace(rec[6]), 10, 64)

	return Bar{
		Instrument: instr,
		Date:       date,
		Open:       open,
		High:       high,
		Low:        low,
		Close:      cls,
		Volume:     vol,
		Score:      f(7),
		Momentum:   f(8),
		Quality:    f(9),
		RSI:        f(10),
		MA20:       f(11),
		Volatility: f(12),
	}, true
}

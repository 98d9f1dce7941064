package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

// CSVJournal writes trades and daily values as flat CSV files. Run
// summaries belong to the SQLite backend; RecordRun is a no-op here.
type CSVJournal struct {
	trades *csv.Writer
	values *csv.Writer
	tf, vf *os.File
}

func NewCSV(tradesPath, valuesPath string) (*CSVJournal, error) {
	tf, err := os.Create(tradesPath)
	if err != nil {
		return nil, err
	}
	vf, err := os.Create(valuesPath)
	if err != nil {
		tf.Close()
		return nil, err
	}

	tw := csv.NewWriter(tf)
	vw := csv.NewWriter(vf)

	if err := tw.Write([]string{"trade_id", "run_id", "instrument", "side", "date", "shares", "price", "commission", "tax", "profit", "holding_days", "reason"}); err != nil {
		return nil, err
	}
	if err := vw.Write([]string{"run_id", "date", "cash", "positions_value", "total"}); err != nil {
		return nil, err
	}

	tw.Flush()
	if err := tw.Error(); err != nil {
		return nil, err
	}
	vw.Flush()
	if err := vw.Error(); err != nil {
		return nil, err
	}

	return &CSVJournal{tw, vw, tf, vf}, nil
}

func (j *CSVJournal) RecordTrade(t TradeRecord) error {
	err := j.trades.Write([]string{
		t.TradeID,
		t.RunID,
		t.Instrument,
		t.Side,
		t.Date.Format(time.RFC3339),
		strconv.FormatInt(t.Shares, 10),
		f(t.Price),
		f(t.Commission),
		f(t.Tax),
		f(t.Profit),
		strconv.Itoa(t.HoldingDays),
		t.Reason,
	})
	if err != nil {
		return err
	}
	j.trades.Flush()
	return j.trades.Error()
}

func (j *CSVJournal) RecordValue(v ValueRecord) error {
	err := j.values.Write([]string{
		v.RunID,
		v.Date.Format(time.RFC3339),
		f(v.Cash),
		f(v.PositionsValue),
		f(v.Total),
	})
	if err != nil {
		return err
	}
	j.values.Flush()
	return j.values.Error()
}

// RecordRun is a no-op for the CSV backend; summaries live in SQLite.
func (j *CSVJournal) RecordRun(RunRecord) error { return nil }

func (j *CSVJournal) Close() error {
	j.trades.Flush()
	if err := j.trades.Error(); err != nil {
		return err
	}
	j.values.Flush()
	if err := j.values.Error(); err != nil {
		return err
	}

	if err := j.tf.Close(); err != nil {
		return err
	}
	return j.vf.Close()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 4, 64)
}

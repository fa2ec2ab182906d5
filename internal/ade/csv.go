package ade

import (
	"encoding/csv"
	"os"
	"strconv"
)

// WriteTraceCSV writes one row per traced layer.
func WriteTraceCSV(path string, rows []LayerRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"layer", "tau", "forward", "backward", "averaged"}); err != nil {
		return err
	}
	for _, r := range rows {
		row := []string{
			strconv.Itoa(r.Layer),
			fmtFloat(r.Tau),
			fmtFloat(r.Forward),
			fmtFloat(r.Backward),
			fmtFloat(r.Averaged),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// WriteGridCSV dumps the final option value at every node.
func WriteGridCSV(path string, res *Result, strike float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"index", "x", "price", "value"}); err != nil {
		return err
	}
	for j, x := range res.Grid.X {
		row := []string{
			strconv.Itoa(j),
			fmtFloat(x),
			fmtFloat(res.Grid.Price(j, strike)),
			fmtFloat(res.Values[j]),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'g', 12, 64)
}

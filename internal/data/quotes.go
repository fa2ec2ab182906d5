package data

import (
	"encoding/csv"
	"io"
	"os"
	"strings"
	"time"

	"ade-pricer/internal/ade"
	"ade-pricer/internal/model"
)

// Quote is one priced instrument. Err is set instead of the numeric fields when
// the solve failed.
type Quote struct {
	Instrument  model.Instrument
	Formulation string
	GridPrice   float64
	Value       float64
	Analytic    float64
	AbsError    float64
	MeshRatio   float64
	Warnings    []ade.Warning
	Elapsed     time.Duration
	Cached      bool
	Err         error
}

var QuoteHeader = []string{"name", "style", "spot", "strike", "grid_price", "value", "analytic", "abs_error", "mesh_ratio", "warnings"}

func WriteQuotesCSVFile(path string, quotes []Quote) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := WriteQuotesCSV(f, quotes); err != nil {
		return err
	}
	return f.Close()
}

// WriteQuotesCSV writes one row per quote. Failed quotes keep the numeric
// columns empty and carry the error in the warnings column.
func WriteQuotesCSV(w io.Writer, quotes []Quote) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(QuoteHeader); err != nil {
		return err
	}
	for _, q := range quotes {
		row := []string{
			q.Instrument.Name,
			string(q.Instrument.Style),
			fmtFloat(q.Instrument.Spot),
			fmtFloat(q.Instrument.Strike),
		}
		if q.Err != nil {
			row = append(row, "", "", "", "", "", "ERROR: "+q.Err.Error())
		} else {
			codes := make([]string, 0, len(q.Warnings))
			for _, w := range q.Warnings {
				codes = append(codes, w.Code)
			}
			row = append(row,
				fmtFloat(q.GridPrice),
				fmtFloat(q.Value),
				fmtFloat(q.Analytic),
				fmtFloat(q.AbsError),
				fmtFloat(q.MeshRatio),
				strings.Join(codes, ";"),
			)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

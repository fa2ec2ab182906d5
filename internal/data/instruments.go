package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"ade-pricer/internal/model"
)

// InstrumentHeader is the column order written by WriteInstrumentsCSV. Readers
// locate columns by name, so other orders are accepted; foreign_rate and name
// are optional.
var InstrumentHeader = []string{"name", "style", "spot", "strike", "maturity", "domestic_rate", "foreign_rate", "volatility"}

var requiredInstrumentColumns = []string{"style", "spot", "strike", "maturity", "domestic_rate", "volatility"}

func LoadInstrumentsCSV(path string) ([]model.Instrument, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open instruments file: %w", err)
	}
	defer f.Close()
	return ReadInstrumentsCSV(f)
}

// ReadInstrumentsCSV parses and validates one instrument per row.
func ReadInstrumentsCSV(r io.Reader) ([]model.Instrument, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("instruments csv is empty")
	}
	if err != nil {
		return nil, err
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, name := range requiredInstrumentColumns {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("instruments csv: missing column %q", name)
		}
	}

	var out []model.Instrument
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		inst, err := parseInstrument(rec, col)
		if err != nil {
			return nil, fmt.Errorf("instruments csv line %d: %w", line, err)
		}
		if inst.Name == "" {
			inst.Name = fmt.Sprintf("row-%d", line)
		}
		out = append(out, inst)
	}
	return out, nil
}

func parseInstrument(rec []string, col map[string]int) (model.Instrument, error) {
	field := func(name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}
	num := func(name string, optional bool) (float64, error) {
		s := field(name)
		if s == "" && optional {
			return 0, nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %q is not a number", model.ErrInvalidInstrument, name, s)
		}
		return v, nil
	}

	style, err := model.ParseStyle(field("style"))
	if err != nil {
		return model.Instrument{}, err
	}
	inst := model.Instrument{Name: field("name"), Style: style}
	for _, f := range []struct {
		name     string
		dst      *float64
		optional bool
	}{
		{"spot", &inst.Spot, false},
		{"strike", &inst.Strike, false},
		{"maturity", &inst.Maturity, false},
		{"domestic_rate", &inst.DomesticRate, false},
		{"foreign_rate", &inst.ForeignRate, true},
		{"volatility", &inst.Volatility, false},
	} {
		if *f.dst, err = num(f.name, f.optional); err != nil {
			return model.Instrument{}, err
		}
	}
	if err := inst.Validate(); err != nil {
		return model.Instrument{}, err
	}
	return inst, nil
}

// WriteInstrumentsCSV writes instruments in InstrumentHeader order.
func WriteInstrumentsCSV(w io.Writer, insts []model.Instrument) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(InstrumentHeader); err != nil {
		return err
	}
	for _, inst := range insts {
		row := []string{
			inst.Name,
			string(inst.Style),
			fmtFloat(inst.Spot),
			fmtFloat(inst.Strike),
			fmtFloat(inst.Maturity),
			fmtFloat(inst.DomesticRate),
			fmtFloat(inst.ForeignRate),
			fmtFloat(inst.Volatility),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'g', -1, 64)
}

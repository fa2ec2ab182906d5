package ade

import (
	"fmt"
	"strings"

	"ade-pricer/internal/model"
)

// Coupling selects which neighbour the backward sweep reads at j+1.
type Coupling int

const (
	// BackwardReadsForward reads f[j+1]: the backward sweep depends on the finished
	// forward sweep.
	BackwardReadsForward Coupling = iota
	// BackwardReadsBackward reads b[j+1]: the sweeps are independent.
	BackwardReadsBackward
)

func (c Coupling) String() string {
	switch c {
	case BackwardReadsForward:
		return "backward-reads-forward"
	case BackwardReadsBackward:
		return "backward-reads-backward"
	default:
		return fmt.Sprintf("coupling(%d)", int(c))
	}
}

// Boundary selects the Dirichlet values applied to both sweeps each layer.
type Boundary int

const (
	// BoundaryHold keeps u[0] and u[n] at the previous layer's values.
	BoundaryHold Boundary = iota
	// BoundaryPinned fixes u[0] = 0 and holds u[n].
	BoundaryPinned
	// BoundaryFarField fixes u[0] = 0 and sets u[n] from the discounted intrinsic
	// value S·e^{−r_f t} − K·e^{−r_d t}.
	BoundaryFarField
)

func (b Boundary) String() string {
	switch b {
	case BoundaryHold:
		return "hold"
	case BoundaryPinned:
		return "pinned"
	case BoundaryFarField:
		return "far-field"
	default:
		return fmt.Sprintf("boundary(%d)", int(b))
	}
}

// ParseBoundary is the inverse of Boundary.String.
func ParseBoundary(s string) (Boundary, error) {
	for _, b := range []Boundary{BoundaryHold, BoundaryPinned, BoundaryFarField} {
		if strings.EqualFold(strings.TrimSpace(s), b.String()) {
			return b, nil
		}
	}
	return 0, configErrorf("unknown boundary %q", s)
}

// Weighting selects the sweep coefficients.
type Weighting int

const (
	// WeightingCentred: (u[j] + a·(…)) / (1+2a).
	WeightingCentred Weighting = iota
	// WeightingBarakatClark: ((1−a)·u[j] + a·(…)) / (1+a).
	WeightingBarakatClark
)

func (w Weighting) String() string {
	switch w {
	case WeightingCentred:
		return "centred"
	case WeightingBarakatClark:
		return "barakat-clark"
	default:
		return fmt.Sprintf("weighting(%d)", int(w))
	}
}

// ParseWeighting is the inverse of Weighting.String.
func ParseWeighting(s string) (Weighting, error) {
	for _, w := range []Weighting{WeightingCentred, WeightingBarakatClark} {
		if strings.EqualFold(strings.TrimSpace(s), w.String()) {
			return w, nil
		}
	}
	return 0, configErrorf("unknown weighting %q", s)
}

// coefficients returns (w, d) for the sweep update.
func (w Weighting) coefficients(a float64) (float64, float64) {
	if w == WeightingBarakatClark {
		return 1 - a, 1 + a
	}
	return 1, 1 + 2*a
}

// SnapMetric selects how the nearest node to the target is measured.
type SnapMetric int

const (
	// SnapPrice compares K·eˣ against the target price.
	SnapPrice SnapMetric = iota
	// SnapLog compares x against ln(target/K).
	SnapLog
)

func (s SnapMetric) String() string {
	if s == SnapLog {
		return "log"
	}
	return "price"
}

// Formulation is one named, internally consistent ADE variant.
type Formulation struct {
	Name      string     `json:"name"`
	Coupling  Coupling   `json:"-"`
	Boundary  Boundary   `json:"-"`
	Weighting Weighting  `json:"-"`
	Snap      SnapMetric `json:"-"`
}

var (
	// Equity is the stock-option variant: the backward sweep reads the forward
	// sweep's neighbour, both boundaries are held, nodes are matched by price.
	Equity = Formulation{
		Name:      "equity",
		Coupling:  BackwardReadsForward,
		Boundary:  BoundaryHold,
		Weighting: WeightingCentred,
		Snap:      SnapPrice,
	}

	// FX is the currency-option variant: independent sweeps, the low boundary pinned
	// to zero and the high boundary held, nodes matched in log-forward-moneyness.
	FX = Formulation{
		Name:      "fx",
		Coupling:  BackwardReadsBackward,
		Boundary:  BoundaryPinned,
		Weighting: WeightingCentred,
		Snap:      SnapLog,
	}
)

// Formulations lists the named variants.
func Formulations() []Formulation {
	return []Formulation{Equity, FX}
}

// FormulationFor returns the default variant of an instrument style.
func FormulationFor(style model.Style) Formulation {
	if style == model.StyleFX {
		return FX
	}
	return Equity
}

// LookupFormulation finds a named variant.
func LookupFormulation(name string) (Formulation, error) {
	for _, f := range Formulations() {
		if strings.EqualFold(strings.TrimSpace(name), f.Name) {
			return f, nil
		}
	}
	return Formulation{}, configErrorf("unknown formulation %q", name)
}

// WithWeighting returns a copy using w; the name records the override.
func (f Formulation) WithWeighting(w Weighting) Formulation {
	if w == f.Weighting {
		return f
	}
	f.Weighting = w
	f.Name = f.Name + "+" + w.String()
	return f
}

// WithBoundary returns a copy using b; the name records the override.
func (f Formulation) WithBoundary(b Boundary) Formulation {
	if b == f.Boundary {
		return f
	}
	f.Boundary = b
	f.Name = f.Name + "+" + b.String()
	return f
}

func (f Formulation) Validate() error {
	if f.Coupling != BackwardReadsForward && f.Coupling != BackwardReadsBackward {
		return configErrorf("invalid %s", f.Coupling)
	}
	if f.Boundary < BoundaryHold || f.Boundary > BoundaryFarField {
		return configErrorf("invalid %s", f.Boundary)
	}
	if f.Weighting != WeightingCentred && f.Weighting != WeightingBarakatClark {
		return configErrorf("invalid %s", f.Weighting)
	}
	if f.Snap != SnapPrice && f.Snap != SnapLog {
		return configErrorf("invalid snap metric %d", int(f.Snap))
	}
	return nil
}

// Describe renders the variant's choices for listings.
func (f Formulation) Describe() string {
	return fmt.Sprintf("%s, %s boundaries, %s weighting, %s snapping", f.Coupling, f.Boundary, f.Weighting, f.Snap)
}

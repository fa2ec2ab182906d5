package ade

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration covers invalid grid resolutions, domains, formulations and
	// instrument parameters. Nothing is allocated or computed when it is returned.
	ErrConfiguration = errors.New("ade: configuration error")

	// ErrDomain signals a mathematically undefined input (σ = 0) or a transform that
	// would push NaN/Inf into the grid.
	ErrDomain = errors.New("ade: domain error")
)

// ExplicitStabilityLimit is the largest mesh ratio a plain explicit scheme tolerates.
const ExplicitStabilityLimit = 0.5

// WarnMeshRatio is the Warning code raised when the mesh ratio exceeds
// ExplicitStabilityLimit.
const WarnMeshRatio = "MESH_RATIO"

// Warning is a non-fatal numerical diagnostic attached to a Result.
type Warning struct {
	Code    string  `json:"code"`
	Message string  `json:"message"`
	Value   float64 `json:"value"`
}

func meshRatioWarning(a float64) Warning {
	return Warning{
		Code:    WarnMeshRatio,
		Message: fmt.Sprintf("mesh ratio %.4f exceeds explicit limit %.1f; ADE stays stable but accuracy degrades", a, ExplicitStabilityLimit),
		Value:   a,
	}
}

func configErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrConfiguration}, args...)...)
}

func domainErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrDomain}, args...)...)
}

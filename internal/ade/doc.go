// Package ade prices European calls by marching the transformed Black-Scholes /
// Garman-Kohlhagen PDE with the Alternating-Direction-Explicit scheme.
//
// Transformation:
//
//	x = ln(S/K)               log-moneyness
//	τ = (σ²/2)(T − t)         rescaled time to expiry
//	u = exp(−αx − βτ)·V/K     removes the drift and discount terms
//	α = 0.5 − μ/σ²            μ = r_d − r_f (carry)
//	β = −α² − 2r_d/σ²
//
// after which u solves u_τ = u_xx on the grid built by NewGrid.
//
// Algorithm outline (one layer, n = number of spatial steps, a = Δτ/Δx²):
//  1. Set boundary values for the layer (Formulation.Boundary).
//  2. Forward sweep, j = 1..n−1:  f[j] = (w·u[j] + a·(u[j+1] + f[j−1])) / d
//  3. Backward sweep, j = n−1..1: b[j] = (w·u[j] + a·(u[j−1] + N[j+1])) / d
//     where N is f or b depending on Formulation.Coupling.
//  4. Average: u[j] = (f[j] + b[j]) / 2.
//
// Centred weighting uses w = 1, d = 1+2a; Barakat-Clark weighting uses w = 1−a, d = 1+a.
// Neither requires a tridiagonal solve and both are stable for any a, so the mesh
// ratio only governs truncation error. It is still reported, with a Warning when it
// exceeds the plain explicit limit of 0.5.
//
// After n_t layers the final u is mapped back with V = K·exp(αx + βτ_max)·u and the
// node nearest the requested spot is returned; there is no interpolation, so the
// returned grid price approximates the target and callers wanting the exact spot
// must refine the grid.
//
// Errors:
//   - ErrConfiguration: bad resolution, domain or instrument; raised before allocation.
//   - ErrDomain: σ = 0 or a transform that leaves the finite range.
package ade

package ade

import "math"

// Coefficients hold the substitution constants for one solve.
//
// With x = ln(S/K) and τ = σ²(T−t)/2 the pricing PDE becomes
//
//	v_τ = v_xx + (k'−1)·v_x − k·v,  k' = 2μ/σ², k = 2r_d/σ²
//
// and v = exp(αx + βτ)·u turns it into the heat equation when α = −(k'−1)/2 and
// β = −α² − k.
type Coefficients struct {
	Alpha float64
	Beta  float64

	Carry    float64 // μ
	Discount float64 // r_d
	Vol      float64 // σ
}

// NewCoefficients derives α and β from the carry rate, the discount rate and σ.
func NewCoefficients(carry, discount, vol float64) (Coefficients, error) {
	if vol == 0 {
		return Coefficients{}, domainErrorf("volatility is zero; α and β are undefined")
	}
	if !isFinite(carry) || !isFinite(discount) || !isFinite(vol) {
		return Coefficients{}, domainErrorf("non-finite input (μ=%g r=%g σ=%g)", carry, discount, vol)
	}
	v2 := vol * vol
	alpha := 0.5 - carry/v2
	beta := -alpha*alpha - 2*discount/v2
	if !isFinite(alpha) || !isFinite(beta) {
		return Coefficients{}, domainErrorf("coefficients overflow (α=%g β=%g)", alpha, beta)
	}
	return Coefficients{
		Alpha:    alpha,
		Beta:     beta,
		Carry:    carry,
		Discount: discount,
		Vol:      vol,
	}, nil
}

// Forward maps an option value to transformed space.
func (c Coefficients) Forward(x, tau, value, strike float64) float64 {
	return math.Exp(-c.Alpha*x-c.Beta*tau) * value / strike
}

// Inverse maps a transformed value back to an option value. The exponent and
// ln|u| are summed before exponentiating so that a zero or tiny u at the edge of
// a wide domain does not meet an overflowed exp(αx+βτ).
func (c Coefficients) Inverse(x, tau, u, strike float64) float64 {
	if u == 0 {
		return 0
	}
	v := strike * math.Exp(c.Alpha*x+c.Beta*tau+math.Log(math.Abs(u)))
	return math.Copysign(v, u)
}

// CalendarTime converts transformed time back to years to expiry.
func (c Coefficients) CalendarTime(tau float64) float64 {
	return 2 * tau / (c.Vol * c.Vol)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Package polynomial evaluates fixed-order polynomials from their
// coefficient lists.
package polynomial

// Polynomial is p(u) = c0 + c1*u + c2*u^2 + ... for an ordered coefficient
// list [c0, c1, c2, ...].
type Polynomial struct {
	c []float64
}

// New copies coeffs into a new polynomial.
func New(coeffs ...float64) Polynomial {
	c := make([]float64, len(coeffs))
	copy(c, coeffs)
	return Polynomial{c: c}
}

// Eval returns p(u). An empty polynomial evaluates to zero.
func (p Polynomial) Eval(u float64) float64 {
	power := 1.0
	sum := 0.0
	for _, c := range p.c {
		sum += c * power
		power *= u
	}
	return sum
}

// Order returns the polynomial order, or -1 for an empty coefficient list.
func (p Polynomial) Order() int {
	return len(p.c) - 1
}

// Coefficients returns a copy of the coefficient list.
func (p Polynomial) Coefficients() []float64 {
	c := make([]float64, len(p.c))
	copy(c, p.c)
	return c
}

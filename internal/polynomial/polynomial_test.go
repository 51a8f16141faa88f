package polynomial

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEval(t *testing.T) {
	tests := []struct {
		name   string
		coeffs []float64
		u      float64
		want   float64
	}{
		{"empty", nil, 3, 0},
		{"constant", []float64{4}, 10, 4},
		{"linear", []float64{1, 2}, 3, 7},
		{"quadratic", []float64{1, 0, 2}, -2, 9},
		{"cubic at zero", []float64{5, 1, 1, 1}, 0, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, New(tt.coeffs...).Eval(tt.u), 1e-12)
		})
	}
}

func TestOrder(t *testing.T) {
	assert.Equal(t, -1, New().Order())
	assert.Equal(t, 2, New(1, 2, 3).Order())
}

func TestCoefficients_AreCopied(t *testing.T) {
	src := []float64{1, 2, 3}
	p := New(src...)
	src[0] = 100
	assert.Equal(t, []float64{1, 2, 3}, p.Coefficients())

	c := p.Coefficients()
	c[1] = 50
	assert.InDelta(t, 1+2*2+3*4, p.Eval(2), 1e-12)
}

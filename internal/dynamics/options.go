package dynamics

import (
	"time"

	"github.com/hilsim/hilsim/internal/config"
)

// Option configures a Model.
type Option func(*options)

type options struct {
	policy      config.DtPolicy
	maxDt       time.Duration
	maxSubsteps int
}

func defaultOptions() options {
	return options{
		policy:      config.DtPolicyWarn,
		maxDt:       time.Second / 400,
		maxSubsteps: 8,
	}
}

// WithDtPolicy sets how a step longer than 1/alertHz is handled.
func WithDtPolicy(policy config.DtPolicy, alertHz float64) Option {
	return func(o *options) {
		o.policy = policy
		if alertHz > 0 {
			o.maxDt = time.Duration(float64(time.Second) / alertHz)
		}
	}
}

// WithMaxSubsteps caps the number of substeps of the substep policy.
func WithMaxSubsteps(n int) Option {
	return func(o *options) {
		if n >= 1 {
			o.maxSubsteps = n
		}
	}
}

// WithLoopConfig applies the loop settings from the runtime config.
func WithLoopConfig(cfg config.LoopConfig) Option {
	return func(o *options) {
		WithDtPolicy(cfg.DtPolicy, cfg.DtAlertHz)(o)
		WithMaxSubsteps(cfg.MaxSubsteps)(o)
	}
}

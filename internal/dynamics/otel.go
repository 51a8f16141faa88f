package dynamics

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/hilsim/hilsim/internal/dynamics"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

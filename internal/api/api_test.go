package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hilsim/hilsim/internal/config"
	"github.com/hilsim/hilsim/internal/sim"
)

var _ StateSource = (*sim.Holder)(nil)

func newServer(t *testing.T, holder *sim.Holder) *Server {
	t.Helper()
	params, err := config.LoadParamFile("../config/testdata/sim_params.json")
	require.NoError(t, err)

	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return New(Dependencies{
		State:  holder,
		Params: params,
		Flight: FlightInfo{ID: 4, StartedAt: start, ParamsFile: params.Path(), Storage: "memory"},
		Status: func() string { return "flying" },
		Now:    func() time.Time { return start.Add(90 * time.Second) },
	})
}

func get(t *testing.T, s *Server, path string) (int, map[string]any) {
	t.Helper()
	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, path, nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out), string(body))
	return resp.StatusCode, out
}

func TestHealth(t *testing.T) {
	code, body := get(t, newServer(t, &sim.Holder{}), "/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "flying", body["vehicle"])
}

func TestState_NoSnapshot(t *testing.T) {
	code, body := get(t, newServer(t, &sim.Holder{}), "/api/v1/state")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "no snapshot yet", body["error"])
}

func TestState(t *testing.T) {
	holder := &sim.Holder{}
	holder.Publish(sim.Snapshot{Iteration: 12, Status: "flying", Position: [3]float64{1, 2, 3}, SOC: 0.8})

	code, body := get(t, newServer(t, holder), "/api/v1/state")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(12), body["iteration"])
	assert.Equal(t, "flying", body["status"])
	assert.Equal(t, []any{1.0, 2.0, 3.0}, body["position"])
	assert.Equal(t, 0.8, body["soc"])
}

func TestParams(t *testing.T) {
	code, body := get(t, newServer(t, &sim.Holder{}), "/api/v1/params")
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, body, 157)

	mass := body["DYN_MASS"].(map[string]any)
	assert.Equal(t, 2.0, mass["value"])
}

func TestParam(t *testing.T) {
	s := newServer(t, &sim.Holder{})

	code, body := get(t, s, "/api/v1/params/dyn_mass")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "DYN_MASS", body["key"])

	code, body = get(t, s, "/api/v1/params/NOPE")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Contains(t, body["error"], "missing parameter")
}

func TestFlight(t *testing.T) {
	code, body := get(t, newServer(t, &sim.Holder{}), "/api/v1/flight")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "flying", body["status"])
	assert.Equal(t, 90.0, body["uptime"])

	flight := body["flight"].(map[string]any)
	assert.Equal(t, float64(4), flight["id"])
	assert.Equal(t, "memory", flight["storage"])
}

func TestUnknownRoute(t *testing.T) {
	code, body := get(t, newServer(t, &sim.Holder{}), "/api/v1/missing")
	assert.Equal(t, http.StatusNotFound, code)
	assert.NotEmpty(t, body["error"])
}

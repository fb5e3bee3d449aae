package monitoring

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hkwon/chaos-verify/pkg/engine"
	"github.com/hkwon/chaos-verify/pkg/scenario"
)

var _ engine.Observer = (*Collector)(nil)

func TestCollectorExportsVerdicts(t *testing.T) {
	c := NewCollector()

	s := scenario.Scenario{Name: "x", Kind: scenario.CPUSpike, Impact: scenario.ImpactLow}
	c.InjectionStarted(s)

	rt := 2 * time.Second
	started := time.Now().Add(-3 * time.Second)
	c.InjectionFinished(&engine.Result{
		Scenario:        s,
		StartedAt:       started,
		EndedAt:         started.Add(3 * time.Second),
		SystemRecovered: true,
		RecoveryTime:    &rt,
	}, true)
	c.InjectionFinished(&engine.Result{
		Scenario:  s,
		StartedAt: started,
		EndedAt:   started.Add(time.Second),
	}, false)

	rr := httptest.NewRecorder()
	c.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rr.Code)

	body := rr.Body.String()
	assert.Contains(t, body, `chaos_scenarios_total{verdict="passed"} 1`)
	assert.Contains(t, body, `chaos_scenarios_total{verdict="failed"} 1`)
	assert.Contains(t, body, "chaos_active_injection 0")
	assert.Contains(t, body, `chaos_injection_duration_seconds_count{kind="cpu-spike"} 2`)
	assert.Contains(t, body, "chaos_recovery_time_seconds_count 1")
}

func TestSkippedVerdict(t *testing.T) {
	c := NewCollector()
	c.InjectionFinished(&engine.Result{
		Scenario: scenario.Scenario{Kind: scenario.NetworkDelay},
		Skipped:  true,
	}, true)

	rr := httptest.NewRecorder()
	c.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	assert.Contains(t, rr.Body.String(), `chaos_scenarios_total{verdict="skipped"} 1`)
}

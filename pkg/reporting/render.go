package reporting

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/hkwon/chaos-verify/pkg/engine"
	"github.com/hkwon/chaos-verify/pkg/metrics"
)

const ruleWidth = 80

// Render emits the verification report as UTF-8 text: a title line,
// generation timestamp, scenario count, a summary block with pass and fail
// counts and the pass rate, then one subsection per result in run order
// with its verdict and before/after metrics delta.
func Render(results []*engine.Result, policy engine.Policy) string {
	return RenderAt(results, policy, time.Now())
}

// RenderAt is Render with an explicit generation time.
func RenderAt(results []*engine.Result, policy engine.Policy, generatedAt time.Time) string {
	var buf bytes.Buffer

	buf.WriteString(strings.Repeat("=", ruleWidth) + "\n")
	buf.WriteString("   RESILIENCE VERIFICATION REPORT\n")
	buf.WriteString(strings.Repeat("=", ruleWidth) + "\n\n")

	buf.WriteString(fmt.Sprintf("Generated:    %s\n", generatedAt.Format("2006-01-02 15:04:05")))
	buf.WriteString(fmt.Sprintf("Scenarios:    %d\n\n", len(results)))

	passed := 0
	for _, res := range results {
		if res.Passed(policy) {
			passed++
		}
	}
	failed := len(results) - passed
	rate := 0.0
	if len(results) > 0 {
		rate = float64(passed) / float64(len(results)) * 100
	}

	buf.WriteString("SUMMARY\n")
	buf.WriteString(strings.Repeat("-", ruleWidth) + "\n")
	buf.WriteString(fmt.Sprintf("Passed:       %d\n", passed))
	buf.WriteString(fmt.Sprintf("Failed:       %d\n", failed))
	buf.WriteString(fmt.Sprintf("Pass Rate:    %.1f%%\n\n", rate))

	for _, res := range results {
		writeScenario(&buf, res, policy)
	}

	return buf.String()
}

func writeScenario(buf *bytes.Buffer, res *engine.Result, policy engine.Policy) {
	verdict := "FAIL"
	if res.Passed(policy) {
		verdict = "PASS"
	}

	buf.WriteString(fmt.Sprintf("SCENARIO: %s\n", res.Scenario.Name))
	buf.WriteString(strings.Repeat("-", ruleWidth) + "\n")
	buf.WriteString(fmt.Sprintf("Kind:             %s\n", res.Scenario.Kind))
	buf.WriteString(fmt.Sprintf("Impact:           %s\n", res.Scenario.Impact))
	buf.WriteString(fmt.Sprintf("Verdict:          %s\n", verdict))
	buf.WriteString(fmt.Sprintf("Duration:         %.1fs\n", res.Duration().Seconds()))
	buf.WriteString(fmt.Sprintf("Recovered:        %t\n", res.SystemRecovered))
	if res.RecoveryTime != nil {
		buf.WriteString(fmt.Sprintf("Recovery Time:    %.1fs\n", res.RecoveryTime.Seconds()))
	}
	buf.WriteString(fmt.Sprintf("Errors Caught:    %d\n", len(res.ErrorsCaught)))

	if res.MetricsBefore != nil && res.MetricsAfter != nil {
		writeDelta(buf, *res.MetricsBefore, *res.MetricsAfter)
	}
	buf.WriteString("\n")
}

func writeDelta(buf *bytes.Buffer, before, after metrics.Snapshot) {
	buf.WriteString("Metrics (before -> after):\n")
	buf.WriteString(fmt.Sprintf("  CPU:      %.1f%% -> %.1f%%\n", before.CPUPercent, after.CPUPercent))
	buf.WriteString(fmt.Sprintf("  Memory:   %.1f%% -> %.1f%%\n", before.MemoryPercent, after.MemoryPercent))
	buf.WriteString(fmt.Sprintf("  Disk:     %.1f%% -> %.1f%%\n", before.DiskPercent, after.DiskPercent))
}

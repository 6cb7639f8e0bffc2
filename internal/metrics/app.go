package metrics

import (
	"strconv"
	"time"

	"github.com/namelens/reachlens/internal/core"
	"github.com/namelens/reachlens/internal/observability"
)

// Application-level metrics following Prometheus conventions
var (
	// Resolution metrics
	ResolutionsTotal      = "reachlens_resolutions_total"
	ResolutionDuration    = "reachlens_resolution_duration_ms"
	StrategyRunsTotal     = "reachlens_strategy_runs_total"
	StrategyDuration      = "reachlens_strategy_duration_ms"
	ExtraRulesFiredTotal  = "reachlens_extra_rules_fired_total"
	WhoisQueriesTotal     = "reachlens_whois_queries_total"
	BatchSubjectsTotal    = "reachlens_batch_subjects_total"
	BatchDuplicatesTotal  = "reachlens_batch_duplicates_total"
	BatchDuration         = "reachlens_batch_duration_ms"
	OperationsErrorsTotal = "app_operations_errors_total"

	// Health check metrics
	HealthCheckTotal    = "app_health_check_total"
	HealthCheckDuration = "app_health_check_duration_ms"

	// Server lifecycle metrics
	ServerStartTime = "app_server_start_time_seconds"
	ServerUptime    = "app_server_uptime_seconds"
)

// Recorder publishes resolver measurements to the global telemetry system.
// The zero value is ready to use and silent until InitMetrics has run.
type Recorder struct{}

// RecordStrategy counts one lookup strategy run.
func (Recorder) RecordStrategy(strategy string, concluded bool, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}
	outcome := "inconclusive"
	if concluded {
		outcome = "concluded"
	}
	_ = observability.TelemetrySystem.Counter(
		StrategyRunsTotal,
		1,
		map[string]string{
			"strategy": strategy,
			"outcome":  outcome,
		},
	)
	_ = observability.TelemetrySystem.Histogram(
		StrategyDuration,
		duration,
		map[string]string{"strategy": strategy},
	)
}

// RecordResolution counts one finished resolution.
func (Recorder) RecordResolution(checker core.CheckerType, status core.StatusValue, source core.Source, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(
		ResolutionsTotal,
		1,
		map[string]string{
			"checker": string(checker),
			"status":  string(status),
			"source":  string(source),
		},
	)
	_ = observability.TelemetrySystem.Histogram(
		ResolutionDuration,
		duration,
		map[string]string{"checker": string(checker)},
	)
}

// RecordRuleFired counts an extra rule overriding a status.
func (Recorder) RecordRuleFired(before, after core.StatusValue) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(
		ExtraRulesFiredTotal,
		1,
		map[string]string{
			"before": string(before),
			"after":  string(after),
		},
	)
}

// RecordWhoisQuery counts a WHOIS exchange against server.
func (Recorder) RecordWhoisQuery(server string, success bool) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(
		WhoisQueriesTotal,
		1,
		map[string]string{
			"server":  server,
			"success": strconv.FormatBool(success),
		},
	)
}

// RecordBatch records the totals of a completed batch run.
func RecordBatch(summary *core.BatchSummary) {
	if observability.TelemetrySystem == nil || summary == nil {
		return
	}
	for status, count := range summary.Counts {
		_ = observability.TelemetrySystem.Counter(
			BatchSubjectsTotal,
			float64(count),
			map[string]string{"status": string(status)},
		)
	}
	if summary.Duplicates > 0 {
		_ = observability.TelemetrySystem.Counter(BatchDuplicatesTotal, float64(summary.Duplicates), nil)
	}
	_ = observability.TelemetrySystem.Histogram(
		BatchDuration,
		summary.CompletedAt.Sub(summary.StartedAt),
		nil,
	)
}

// RecordOperationError records an application operation error
func RecordOperationError(operation string, errorType string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			OperationsErrorsTotal,
			1,
			map[string]string{
				"operation":  operation,
				"error_type": errorType,
			},
		)
	}
}

// RecordHealthCheck records a health check execution
func RecordHealthCheck(checkName string, healthy bool, duration time.Duration) {
	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			HealthCheckTotal,
			1,
			map[string]string{
				"check":  checkName,
				"status": status,
			},
		)

		_ = observability.TelemetrySystem.Histogram(
			HealthCheckDuration,
			duration,
			map[string]string{
				"check": checkName,
			},
		)
	}
}

// SetServerStartTime records the server start time (Unix timestamp)
func SetServerStartTime(timestamp int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			ServerStartTime,
			float64(timestamp),
			nil,
		)
	}
}

// SetServerUptime records the server uptime in seconds
func SetServerUptime(seconds int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			ServerUptime,
			float64(seconds),
			nil,
		)
	}
}

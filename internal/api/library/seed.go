package library

import "github.com/tjfontaine/pipeline-library/internal/core/domain"

// Seed rule ids installed on every new pipeline.
const (
	BadRecordsAlertID  = "badRecordsAlertID"
	StageErrorAlertID  = "stageErrorAlertID"
	IdleGaugeID        = "idleGaugeID"
	BatchTimeAlertID   = "batchTimeAlertID"
	MemoryLimitAlertID = "memoryLimitAlertID"
)

// seedMetricsRules is read-only; SeedRules hands out copies.
var seedMetricsRules = []domain.MetricsRule{
	{
		ID:            BadRecordsAlertID,
		AlertText:     "High incidence of Bad Records",
		MetricID:      "pipeline.batchErrorRecords.meter",
		MetricType:    domain.MetricTypeMeter,
		MetricElement: domain.MeterCount,
		Condition:     "${value() > 100}",
	},
	{
		ID:            StageErrorAlertID,
		AlertText:     "High incidence of Error Messages",
		MetricID:      "pipeline.batchErrorMessages.meter",
		MetricType:    domain.MetricTypeMeter,
		MetricElement: domain.MeterCount,
		Condition:     "${value() > 100}",
	},
	{
		ID:            IdleGaugeID,
		AlertText:     "Pipeline is Idle",
		MetricID:      "RuntimeStatsGauge.gauge",
		MetricType:    domain.MetricTypeGauge,
		MetricElement: domain.TimeOfLastReceivedRecord,
		Condition:     "${time:now() - value() > 120000}",
	},
	{
		ID:            BatchTimeAlertID,
		AlertText:     "Batch taking more time to process",
		MetricID:      "RuntimeStatsGauge.gauge",
		MetricType:    domain.MetricTypeGauge,
		MetricElement: domain.CurrentBatchAge,
		Condition:     "${value() > 200}",
	},
	{
		ID:            MemoryLimitAlertID,
		AlertText:     "Memory limit for pipeline exceeded",
		MetricID:      "pipeline.memoryConsumed.counter",
		MetricType:    domain.MetricTypeCounter,
		MetricElement: domain.CounterCount,
		Condition:     "${value() > (jvm:maxMemoryMB() * 0.65)}",
	},
}

// SeedRules returns the rule document stored with a newly created pipeline:
// the five default metric alerts, all disabled and without e-mail.
func SeedRules() *domain.RuleDefinitions {
	return &domain.RuleDefinitions{
		MetricsRules: append([]domain.MetricsRule(nil), seedMetricsRules...),
		DataRules:    []domain.DataRule{},
		EmailIDs:     []string{},
	}
}

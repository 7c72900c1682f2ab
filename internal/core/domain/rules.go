package domain

// MetricType is the kind of metric an alert rule observes.
type MetricType string

const (
	MetricTypeMeter     MetricType = "METER"
	MetricTypeGauge     MetricType = "GAUGE"
	MetricTypeCounter   MetricType = "COUNTER"
	MetricTypeHistogram MetricType = "HISTOGRAM"
	MetricTypeTimer     MetricType = "TIMER"
)

// MetricIDSuffix is the suffix a metric id must carry for this type.
func (t MetricType) MetricIDSuffix() string {
	switch t {
	case MetricTypeMeter:
		return ".meter"
	case MetricTypeGauge:
		return ".gauge"
	case MetricTypeCounter:
		return ".counter"
	case MetricTypeHistogram:
		return ".histogram"
	case MetricTypeTimer:
		return ".timer"
	}
	return ""
}

// Known reports whether t is one of the defined metric types.
func (t MetricType) Known() bool {
	_, ok := metricElements[t]
	return ok
}

// MetricElement selects the value of a metric a rule compares against.
type MetricElement string

const (
	CounterCount MetricElement = "COUNTER_COUNT"

	CurrentBatchAge          MetricElement = "CURRENT_BATCH_AGE"
	TimeInCurrentStage       MetricElement = "TIME_IN_CURRENT_STAGE"
	TimeOfLastReceivedRecord MetricElement = "TIME_OF_LAST_RECEIVED_RECORD"

	HistogramCount  MetricElement = "HISTOGRAM_COUNT"
	HistogramMax    MetricElement = "HISTOGRAM_MAX"
	HistogramMin    MetricElement = "HISTOGRAM_MIN"
	HistogramMean   MetricElement = "HISTOGRAM_MEAN"
	HistogramMedian MetricElement = "HISTOGRAM_MEDIAN"
	HistogramP75    MetricElement = "HISTOGRAM_P75"
	HistogramP95    MetricElement = "HISTOGRAM_P95"
	HistogramP98    MetricElement = "HISTOGRAM_P98"
	HistogramP99    MetricElement = "HISTOGRAM_P99"
	HistogramP999   MetricElement = "HISTOGRAM_P999"
	HistogramStdDev MetricElement = "HISTOGRAM_STD_DEV"

	MeterCount    MetricElement = "METER_COUNT"
	MeterM1Rate   MetricElement = "METER_M1_RATE"
	MeterM5Rate   MetricElement = "METER_M5_RATE"
	MeterM15Rate  MetricElement = "METER_M15_RATE"
	MeterM30Rate  MetricElement = "METER_M30_RATE"
	MeterH1Rate   MetricElement = "METER_H1_RATE"
	MeterH6Rate   MetricElement = "METER_H6_RATE"
	MeterH12Rate  MetricElement = "METER_H12_RATE"
	MeterH24Rate  MetricElement = "METER_H24_RATE"
	MeterMeanRate MetricElement = "METER_MEAN_RATE"

	TimerCount    MetricElement = "TIMER_COUNT"
	TimerMax      MetricElement = "TIMER_MAX"
	TimerMean     MetricElement = "TIMER_MEAN"
	TimerMin      MetricElement = "TIMER_MIN"
	TimerP50      MetricElement = "TIMER_P50"
	TimerP75      MetricElement = "TIMER_P75"
	TimerP95      MetricElement = "TIMER_P95"
	TimerP98      MetricElement = "TIMER_P98"
	TimerP99      MetricElement = "TIMER_P99"
	TimerP999     MetricElement = "TIMER_P999"
	TimerStdDev   MetricElement = "TIMER_STD_DEV"
	TimerM1Rate   MetricElement = "TIMER_M1_RATE"
	TimerM5Rate   MetricElement = "TIMER_M5_RATE"
	TimerM15Rate  MetricElement = "TIMER_M15_RATE"
	TimerMeanRate MetricElement = "TIMER_MEAN_RATE"
)

var metricElements = map[MetricType][]MetricElement{
	MetricTypeCounter: {CounterCount},
	MetricTypeGauge:   {CurrentBatchAge, TimeInCurrentStage, TimeOfLastReceivedRecord},
	MetricTypeHistogram: {
		HistogramCount, HistogramMax, HistogramMin, HistogramMean, HistogramMedian,
		HistogramP75, HistogramP95, HistogramP98, HistogramP99, HistogramP999, HistogramStdDev,
	},
	MetricTypeMeter: {
		MeterCount, MeterM1Rate, MeterM5Rate, MeterM15Rate, MeterM30Rate,
		MeterH1Rate, MeterH6Rate, MeterH12Rate, MeterH24Rate, MeterMeanRate,
	},
	MetricTypeTimer: {
		TimerCount, TimerMax, TimerMean, TimerMin, TimerP50, TimerP75, TimerP95, TimerP98,
		TimerP99, TimerP999, TimerStdDev, TimerM1Rate, TimerM5Rate, TimerM15Rate, TimerMeanRate,
	},
}

// Elements returns the metric elements that can be read from a metric of type t.
func (t MetricType) Elements() []MetricElement {
	return append([]MetricElement(nil), metricElements[t]...)
}

// BelongsTo reports whether e is a valid element of metric type t.
func (e MetricElement) BelongsTo(t MetricType) bool {
	for _, el := range metricElements[t] {
		if el == e {
			return true
		}
	}
	return false
}

// ThresholdType controls how a data rule's threshold is interpreted.
type ThresholdType string

const (
	ThresholdCount      ThresholdType = "COUNT"
	ThresholdPercentage ThresholdType = "PERCENTAGE"
)

// MetricsRule raises an alert when a pipeline metric satisfies Condition.
// Condition is an expression evaluated elsewhere; it is stored verbatim.
type MetricsRule struct {
	ID            string        `json:"id"`
	AlertText     string        `json:"alert_text"`
	MetricID      string        `json:"metric_id"`
	MetricType    MetricType    `json:"metric_type"`
	MetricElement MetricElement `json:"metric_element"`
	Condition     string        `json:"condition"`
	SendEmail     bool          `json:"send_email"`
	Enabled       bool          `json:"enabled"`
	Valid         bool          `json:"valid"`
}

// DataRule samples records on a lane and alerts when matching records exceed
// a threshold.
type DataRule struct {
	ID                      string        `json:"id"`
	Label                   string        `json:"label"`
	Lane                    string        `json:"lane"`
	SamplingPercentage      float64       `json:"sampling_percentage"`
	SamplingRecordsToRetain int           `json:"sampling_records_to_retain"`
	Condition               string        `json:"condition"`
	AlertEnabled            bool          `json:"alert_enabled"`
	AlertText               string        `json:"alert_text"`
	ThresholdType           ThresholdType `json:"threshold_type"`
	ThresholdValue          string        `json:"threshold_value"`
	MinVolume               int64         `json:"min_volume"`
	MeterEnabled            bool          `json:"meter_enabled"`
	SendEmail               bool          `json:"send_email"`
	Enabled                 bool          `json:"enabled"`
	Valid                   bool          `json:"valid"`
}

// RuleIssue is a validation finding attached to one rule. RuleID is empty
// for document-level findings.
type RuleIssue struct {
	RuleID    string `json:"rule_id,omitempty"`
	Property  string `json:"property,omitempty"`
	Message   string `json:"message"`
	ErrorCode string `json:"error_code"`
}

// RuleDefinitions is the rule document attached to a pipeline. UUID is the
// optimistic concurrency token; it is nil until the document is first stored.
type RuleDefinitions struct {
	MetricsRules []MetricsRule `json:"metrics_rules"`
	DataRules    []DataRule    `json:"data_rules"`
	EmailIDs     []string      `json:"email_ids"`
	UUID         *string       `json:"uuid,omitempty"`
	RuleIssues   []RuleIssue   `json:"rule_issues,omitempty"`
}

// Clone returns a deep copy of the document.
func (r *RuleDefinitions) Clone() *RuleDefinitions {
	if r == nil {
		return nil
	}
	c := &RuleDefinitions{
		MetricsRules: append([]MetricsRule(nil), r.MetricsRules...),
		DataRules:    append([]DataRule(nil), r.DataRules...),
		EmailIDs:     append([]string(nil), r.EmailIDs...),
		RuleIssues:   append([]RuleIssue(nil), r.RuleIssues...),
	}
	if r.UUID != nil {
		id := *r.UUID
		c.UUID = &id
	}
	return c
}

package wire

import "github.com/tjfontaine/pipeline-library/internal/core/domain"

// MetricsRuleJSON is the wire form of domain.MetricsRule.
type MetricsRuleJSON struct {
	ID            string `json:"id"`
	AlertText     string `json:"alertText"`
	MetricID      string `json:"metricId"`
	MetricType    string `json:"metricType"`
	MetricElement string `json:"metricElement"`
	Condition     string `json:"condition"`
	SendEmail     bool   `json:"sendEmail"`
	Enabled       bool   `json:"enabled"`
	Valid         bool   `json:"valid"`
}

// DataRuleJSON is the wire form of domain.DataRule.
type DataRuleJSON struct {
	ID                      string  `json:"id"`
	Label                   string  `json:"label"`
	Lane                    string  `json:"lane"`
	SamplingPercentage      float64 `json:"samplingPercentage"`
	SamplingRecordsToRetain int     `json:"samplingRecordsToRetain"`
	Condition               string  `json:"condition"`
	AlertEnabled            bool    `json:"alertEnabled"`
	AlertText               string  `json:"alertText"`
	ThresholdType           string  `json:"thresholdType"`
	ThresholdValue          string  `json:"thresholdValue"`
	MinVolume               int64   `json:"minVolume"`
	MeterEnabled            bool    `json:"meterEnabled"`
	SendEmail               bool    `json:"sendEmail"`
	Enabled                 bool    `json:"enabled"`
	Valid                   bool    `json:"valid"`
}

// RuleIssueJSON is one rule validation finding.
type RuleIssueJSON struct {
	RuleID    string `json:"ruleId,omitempty"`
	Property  string `json:"property,omitempty"`
	Message   string `json:"message"`
	ErrorCode string `json:"errorCode"`
}

// RuleDefinitionsJSON is the wire form of a rule document. UUID is passed
// through unchanged in both directions.
type RuleDefinitionsJSON struct {
	MetricsRules []MetricsRuleJSON `json:"metricsRules"`
	DataRules    []DataRuleJSON    `json:"dataRules"`
	EmailIDs     []string          `json:"emailIds"`
	UUID         *string           `json:"uuid"`
	RuleIssues   []RuleIssueJSON   `json:"ruleIssues"`
}

// ExportJSON bundles a pipeline and its rules into one downloadable document.
type ExportJSON struct {
	PipelineConfig any                  `json:"pipelineConfig"`
	PipelineRules  *RuleDefinitionsJSON `json:"pipelineRules"`
}

// WrapRules converts a rule document. A nil document stays nil and encodes
// as JSON null.
func WrapRules(r *domain.RuleDefinitions) *RuleDefinitionsJSON {
	if r == nil {
		return nil
	}
	out := &RuleDefinitionsJSON{
		MetricsRules: make([]MetricsRuleJSON, 0, len(r.MetricsRules)),
		DataRules:    make([]DataRuleJSON, 0, len(r.DataRules)),
		EmailIDs:     nonNil(r.EmailIDs),
		RuleIssues:   make([]RuleIssueJSON, 0, len(r.RuleIssues)),
	}
	if r.UUID != nil {
		id := *r.UUID
		out.UUID = &id
	}
	for _, m := range r.MetricsRules {
		out.MetricsRules = append(out.MetricsRules, MetricsRuleJSON{
			ID:            m.ID,
			AlertText:     m.AlertText,
			MetricID:      m.MetricID,
			MetricType:    string(m.MetricType),
			MetricElement: string(m.MetricElement),
			Condition:     m.Condition,
			SendEmail:     m.SendEmail,
			Enabled:       m.Enabled,
			Valid:         m.Valid,
		})
	}
	for _, d := range r.DataRules {
		out.DataRules = append(out.DataRules, DataRuleJSON{
			ID:                      d.ID,
			Label:                   d.Label,
			Lane:                    d.Lane,
			SamplingPercentage:      d.SamplingPercentage,
			SamplingRecordsToRetain: d.SamplingRecordsToRetain,
			Condition:               d.Condition,
			AlertEnabled:            d.AlertEnabled,
			AlertText:               d.AlertText,
			ThresholdType:           string(d.ThresholdType),
			ThresholdValue:          d.ThresholdValue,
			MinVolume:               d.MinVolume,
			MeterEnabled:            d.MeterEnabled,
			SendEmail:               d.SendEmail,
			Enabled:                 d.Enabled,
			Valid:                   d.Valid,
		})
	}
	for _, i := range r.RuleIssues {
		out.RuleIssues = append(out.RuleIssues, RuleIssueJSON{
			RuleID:    i.RuleID,
			Property:  i.Property,
			Message:   i.Message,
			ErrorCode: i.ErrorCode,
		})
	}
	return out
}

// UnwrapRules converts a client rule document. Validity flags and issues are
// output-only and dropped.
func UnwrapRules(in *RuleDefinitionsJSON) *domain.RuleDefinitions {
	if in == nil {
		return nil
	}
	out := &domain.RuleDefinitions{
		MetricsRules: make([]domain.MetricsRule, 0, len(in.MetricsRules)),
		DataRules:    make([]domain.DataRule, 0, len(in.DataRules)),
		EmailIDs:     append([]string(nil), in.EmailIDs...),
	}
	if in.UUID != nil {
		id := *in.UUID
		out.UUID = &id
	}
	for _, m := range in.MetricsRules {
		out.MetricsRules = append(out.MetricsRules, domain.MetricsRule{
			ID:            m.ID,
			AlertText:     m.AlertText,
			MetricID:      m.MetricID,
			MetricType:    domain.MetricType(m.MetricType),
			MetricElement: domain.MetricElement(m.MetricElement),
			Condition:     m.Condition,
			SendEmail:     m.SendEmail,
			Enabled:       m.Enabled,
		})
	}
	for _, d := range in.DataRules {
		out.DataRules = append(out.DataRules, domain.DataRule{
			ID:                      d.ID,
			Label:                   d.Label,
			Lane:                    d.Lane,
			SamplingPercentage:      d.SamplingPercentage,
			SamplingRecordsToRetain: d.SamplingRecordsToRetain,
			Condition:               d.Condition,
			AlertEnabled:            d.AlertEnabled,
			AlertText:               d.AlertText,
			ThresholdType:           domain.ThresholdType(d.ThresholdType),
			ThresholdValue:          d.ThresholdValue,
			MinVolume:               d.MinVolume,
			MeterEnabled:            d.MeterEnabled,
			SendEmail:               d.SendEmail,
			Enabled:                 d.Enabled,
		})
	}
	return out
}

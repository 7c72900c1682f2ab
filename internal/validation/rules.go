package validation

import (
	"fmt"
	"net/mail"
	"strconv"
	"strings"

	"github.com/tjfontaine/pipeline-library/internal/core/domain"
)

// Rule issue codes.
const (
	CodeRuleEmptyID          = "RULES_0001"
	CodeRuleDuplicateID      = "RULES_0002"
	CodeRuleEmptyAlertText   = "RULES_0003"
	CodeRuleBadCondition     = "RULES_0004"
	CodeRuleUnknownType      = "RULES_0005"
	CodeRuleBadMetricID      = "RULES_0006"
	CodeRuleBadElement       = "RULES_0007"
	CodeRuleMissingLane      = "RULES_0008"
	CodeRuleMissingLabel     = "RULES_0009"
	CodeRuleBadSampling      = "RULES_0010"
	CodeRuleBadRetain        = "RULES_0011"
	CodeRuleBadThresholdType = "RULES_0012"
	CodeRuleBadThreshold     = "RULES_0013"
	CodeRuleNoEmailIDs       = "RULES_0014"
	CodeRuleBadEmailID       = "RULES_0015"
)

// ValidateRules annotates every rule in the document with its findings. Each
// rule's Valid flag is recomputed and RuleIssues is replaced. An error is
// returned only when there is no document to validate.
func ValidateRules(rules *domain.RuleDefinitions) error {
	if rules == nil {
		return domain.ErrInvalidRequest("rule definitions document is required")
	}

	v := &ruleValidator{
		seen:   map[string]bool{},
		failed: map[string]bool{},
	}

	for i := range rules.MetricsRules {
		v.checkMetricsRule(&rules.MetricsRules[i], len(rules.EmailIDs) > 0)
	}
	for i := range rules.DataRules {
		v.checkDataRule(&rules.DataRules[i], len(rules.EmailIDs) > 0)
	}
	for _, id := range rules.EmailIDs {
		if _, err := mail.ParseAddress(id); err != nil {
			v.add("", CodeRuleBadEmailID, "emailIds", fmt.Sprintf("'%s' is not a valid e-mail address", id))
		}
	}

	for i := range rules.MetricsRules {
		r := &rules.MetricsRules[i]
		r.Valid = !v.failed[r.ID] && r.ID != ""
	}
	for i := range rules.DataRules {
		r := &rules.DataRules[i]
		r.Valid = !v.failed[r.ID] && r.ID != ""
	}
	rules.RuleIssues = v.issues
	return nil
}

type ruleValidator struct {
	seen   map[string]bool
	failed map[string]bool
	issues []domain.RuleIssue
}

func (v *ruleValidator) add(ruleID, code, property, msg string) {
	v.issues = append(v.issues, domain.RuleIssue{
		RuleID:    ruleID,
		Property:  property,
		Message:   msg,
		ErrorCode: code,
	})
	if ruleID != "" {
		v.failed[ruleID] = true
	}
}

func (v *ruleValidator) checkID(id string) {
	if id == "" {
		v.add("", CodeRuleEmptyID, "id", "Rule id must not be empty")
		return
	}
	if v.seen[id] {
		v.add(id, CodeRuleDuplicateID, "id", fmt.Sprintf("Rule id '%s' is used more than once", id))
	}
	v.seen[id] = true
}

func (v *ruleValidator) checkMetricsRule(r *domain.MetricsRule, haveEmails bool) {
	v.checkID(r.ID)

	if strings.TrimSpace(r.AlertText) == "" {
		v.add(r.ID, CodeRuleEmptyAlertText, "alertText", "Alert text must not be empty")
	}
	if !isExpression(r.Condition) {
		v.add(r.ID, CodeRuleBadCondition, "condition",
			fmt.Sprintf("Condition '%s' must be an expression of the form ${...}", r.Condition))
	}

	if !r.MetricType.Known() {
		v.add(r.ID, CodeRuleUnknownType, "metricType", fmt.Sprintf("Unknown metric type '%s'", r.MetricType))
	} else {
		if suffix := r.MetricType.MetricIDSuffix(); !strings.HasSuffix(r.MetricID, suffix) || len(r.MetricID) == len(suffix) {
			v.add(r.ID, CodeRuleBadMetricID, "metricId",
				fmt.Sprintf("Metric id '%s' is not a %s metric", r.MetricID, r.MetricType))
		}
		if !r.MetricElement.BelongsTo(r.MetricType) {
			v.add(r.ID, CodeRuleBadElement, "metricElement",
				fmt.Sprintf("Metric element '%s' is not valid for metric type %s", r.MetricElement, r.MetricType))
		}
	}

	if r.SendEmail && !haveEmails {
		v.add(r.ID, CodeRuleNoEmailIDs, "sendEmail", "E-mail alerts require at least one e-mail id")
	}
}

func (v *ruleValidator) checkDataRule(r *domain.DataRule, haveEmails bool) {
	v.checkID(r.ID)

	if strings.TrimSpace(r.Label) == "" {
		v.add(r.ID, CodeRuleMissingLabel, "label", "Label must not be empty")
	}
	if strings.TrimSpace(r.Lane) == "" {
		v.add(r.ID, CodeRuleMissingLane, "lane", "Data rules must name the lane they observe")
	}
	if !isExpression(r.Condition) {
		v.add(r.ID, CodeRuleBadCondition, "condition",
			fmt.Sprintf("Condition '%s' must be an expression of the form ${...}", r.Condition))
	}
	if r.SamplingPercentage <= 0 || r.SamplingPercentage > 100 {
		v.add(r.ID, CodeRuleBadSampling, "samplingPercentage",
			fmt.Sprintf("Sampling percentage must be in (0, 100], got %v", r.SamplingPercentage))
	}
	if r.SamplingRecordsToRetain < 0 {
		v.add(r.ID, CodeRuleBadRetain, "samplingRecordsToRetain", "Records to retain must not be negative")
	}

	if r.AlertEnabled {
		if strings.TrimSpace(r.AlertText) == "" {
			v.add(r.ID, CodeRuleEmptyAlertText, "alertText", "Alert text must not be empty")
		}
		v.checkThreshold(r)
	}

	if r.SendEmail && !haveEmails {
		v.add(r.ID, CodeRuleNoEmailIDs, "sendEmail", "E-mail alerts require at least one e-mail id")
	}
}

func (v *ruleValidator) checkThreshold(r *domain.DataRule) {
	value, err := strconv.ParseFloat(strings.TrimSpace(r.ThresholdValue), 64)
	if err != nil {
		v.add(r.ID, CodeRuleBadThreshold, "thresholdValue",
			fmt.Sprintf("Threshold value '%s' is not a number", r.ThresholdValue))
	}

	switch r.ThresholdType {
	case domain.ThresholdCount:
		if err == nil && value < 0 {
			v.add(r.ID, CodeRuleBadThreshold, "thresholdValue", "Threshold count must not be negative")
		}
	case domain.ThresholdPercentage:
		if err == nil && (value < 0 || value > 100) {
			v.add(r.ID, CodeRuleBadThreshold, "thresholdValue", "Threshold percentage must be in [0, 100]")
		}
	default:
		v.add(r.ID, CodeRuleBadThresholdType, "thresholdType",
			fmt.Sprintf("Unknown threshold type '%s'", r.ThresholdType))
	}
}

// isExpression reports whether s has the ${...} shape with a non-blank body.
func isExpression(s string) bool {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "${") || !strings.HasSuffix(s, "}") {
		return false
	}
	body := s[2 : len(s)-1]
	if strings.TrimSpace(body) == "" {
		return false
	}
	depth := 0
	for _, c := range body {
		switch c {
		case '{':
			depth++
		case '}':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}

// Package wire converts between domain entities and the JSON envelopes the
// pipeline library exchanges with clients. Handlers never encode domain
// types directly.
package wire

import (
	"time"

	"github.com/tjfontaine/pipeline-library/internal/core/domain"
)

// PipelineInfoJSON is the wire form of domain.PipelineInfo.
type PipelineInfoJSON struct {
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Creator      string    `json:"creator"`
	LastModifier string    `json:"lastModifier"`
	Created      time.Time `json:"created"`
	LastModified time.Time `json:"lastModified"`
	LastRev      string    `json:"lastRev"`
	UUID         string    `json:"uuid"`
}

// RevisionInfoJSON is one wire history entry.
type RevisionInfoJSON struct {
	Rev            string    `json:"rev"`
	Tag            string    `json:"tag"`
	TagDescription string    `json:"tagDescription,omitempty"`
	User           string    `json:"user"`
	Date           time.Time `json:"date"`
}

// ConfigJSON is a single named configuration value.
type ConfigJSON struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// StageConfigurationJSON is the wire form of one stage instance.
type StageConfigurationJSON struct {
	InstanceName  string         `json:"instanceName"`
	Library       string         `json:"library"`
	StageName     string         `json:"stageName"`
	StageVersion  string         `json:"stageVersion"`
	Configuration []ConfigJSON   `json:"configuration"`
	UIInfo        map[string]any `json:"uiInfo,omitempty"`
	InputLanes    []string       `json:"inputLanes"`
	OutputLanes   []string       `json:"outputLanes"`
}

// IssueJSON is one validation finding.
type IssueJSON struct {
	InstanceName string `json:"instanceName,omitempty"`
	ConfigName   string `json:"configName,omitempty"`
	Message      string `json:"message"`
	ErrorCode    string `json:"errorCode"`
}

// IssuesJSON groups findings the way the UI renders them.
type IssuesJSON struct {
	PipelineIssues []IssueJSON            `json:"pipelineIssues"`
	StageIssues    map[string][]IssueJSON `json:"stageIssues"`
	IssueCount     int                    `json:"issueCount"`
}

// ValidationJSON is the verdict attached to every pipeline sent to a client.
type ValidationJSON struct {
	Issues     IssuesJSON `json:"issues"`
	Valid      bool       `json:"valid"`
	CanPreview bool       `json:"canPreview"`
}

// PipelineConfigurationJSON is the wire form of a pipeline document. The
// validation fields are output-only and ignored by UnwrapPipeline.
type PipelineConfigurationJSON struct {
	SchemaVersion int                      `json:"schemaVersion"`
	UUID          string                   `json:"uuid"`
	Description   string                   `json:"description"`
	Configuration []ConfigJSON             `json:"configuration"`
	UIInfo        map[string]any           `json:"uiInfo,omitempty"`
	Stages        []StageConfigurationJSON `json:"stages"`
	ErrorStage    *StageConfigurationJSON  `json:"errorStage,omitempty"`
	MemoryLimit   int64                    `json:"memoryLimit"`
	Info          *PipelineInfoJSON        `json:"info,omitempty"`

	Validation  *ValidationJSON `json:"validation"`
	Valid       bool            `json:"valid"`
	Previewable bool            `json:"previewable"`
}

// WrapInfo converts a pipeline summary.
func WrapInfo(info *domain.PipelineInfo) *PipelineInfoJSON {
	if info == nil {
		return nil
	}
	return &PipelineInfoJSON{
		Name:         info.Name,
		Description:  info.Description,
		Creator:      info.Creator,
		LastModifier: info.LastModifier,
		Created:      info.Created,
		LastModified: info.LastModified,
		LastRev:      info.LastRev,
		UUID:         info.UUID,
	}
}

// WrapInfos converts a list of summaries. The result is never nil so an
// empty store encodes as [].
func WrapInfos(infos []*domain.PipelineInfo) []*PipelineInfoJSON {
	out := make([]*PipelineInfoJSON, 0, len(infos))
	for _, info := range infos {
		out = append(out, WrapInfo(info))
	}
	return out
}

// WrapHistory converts a revision history.
func WrapHistory(history []*domain.RevisionInfo) []*RevisionInfoJSON {
	out := make([]*RevisionInfoJSON, 0, len(history))
	for _, r := range history {
		out = append(out, &RevisionInfoJSON{
			Rev:            r.Rev,
			Tag:            r.Tag,
			TagDescription: r.TagDescription,
			User:           r.User,
			Date:           r.Date,
		})
	}
	return out
}

// WrapPipeline assembles the wire document from a configuration and its
// freshly computed verdict.
func WrapPipeline(cfg *domain.PipelineConfiguration, verdict domain.Verdict) *PipelineConfigurationJSON {
	if cfg == nil {
		return nil
	}
	out := &PipelineConfigurationJSON{
		SchemaVersion: cfg.SchemaVersion,
		UUID:          cfg.UUID,
		Description:   cfg.Description,
		Configuration: wrapConfigs(cfg.Configuration),
		UIInfo:        cfg.UIInfo,
		Stages:        make([]StageConfigurationJSON, 0, len(cfg.Stages)),
		MemoryLimit:   cfg.MemoryLimitMB,
		Info:          WrapInfo(cfg.Info),
		Validation:    wrapVerdict(verdict),
		Valid:         verdict.Valid,
		Previewable:   verdict.CanPreview,
	}
	for _, s := range cfg.Stages {
		out.Stages = append(out.Stages, wrapStage(s))
	}
	if cfg.ErrorStage != nil {
		es := wrapStage(*cfg.ErrorStage)
		out.ErrorStage = &es
	}
	return out
}

// UnwrapPipeline converts a client document back to the domain. Validation
// fields and embedded info are dropped; the store owns info.
func UnwrapPipeline(in *PipelineConfigurationJSON) *domain.PipelineConfiguration {
	if in == nil {
		return nil
	}
	out := &domain.PipelineConfiguration{
		SchemaVersion: in.SchemaVersion,
		UUID:          in.UUID,
		Description:   in.Description,
		Configuration: unwrapConfigs(in.Configuration),
		UIInfo:        in.UIInfo,
		Stages:        make([]domain.StageConfiguration, 0, len(in.Stages)),
		MemoryLimitMB: in.MemoryLimit,
	}
	if out.SchemaVersion == 0 {
		out.SchemaVersion = domain.SchemaVersion
	}
	for _, s := range in.Stages {
		out.Stages = append(out.Stages, unwrapStage(s))
	}
	if in.ErrorStage != nil {
		es := unwrapStage(*in.ErrorStage)
		out.ErrorStage = &es
	}
	return out
}

func wrapStage(s domain.StageConfiguration) StageConfigurationJSON {
	return StageConfigurationJSON{
		InstanceName:  s.InstanceName,
		Library:       s.Library,
		StageName:     s.StageName,
		StageVersion:  s.StageVersion,
		Configuration: wrapConfigs(s.Configuration),
		UIInfo:        s.UIInfo,
		InputLanes:    nonNil(s.InputLanes),
		OutputLanes:   nonNil(s.OutputLanes),
	}
}

func unwrapStage(s StageConfigurationJSON) domain.StageConfiguration {
	return domain.StageConfiguration{
		InstanceName:  s.InstanceName,
		Library:       s.Library,
		StageName:     s.StageName,
		StageVersion:  s.StageVersion,
		Configuration: unwrapConfigs(s.Configuration),
		UIInfo:        s.UIInfo,
		InputLanes:    s.InputLanes,
		OutputLanes:   s.OutputLanes,
	}
}

func wrapConfigs(in []domain.ConfigValue) []ConfigJSON {
	out := make([]ConfigJSON, 0, len(in))
	for _, c := range in {
		out = append(out, ConfigJSON{Name: c.Name, Value: c.Value})
	}
	return out
}

func unwrapConfigs(in []ConfigJSON) []domain.ConfigValue {
	if len(in) == 0 {
		return nil
	}
	out := make([]domain.ConfigValue, 0, len(in))
	for _, c := range in {
		out = append(out, domain.ConfigValue{Name: c.Name, Value: c.Value})
	}
	return out
}

func wrapVerdict(v domain.Verdict) *ValidationJSON {
	issues := IssuesJSON{
		PipelineIssues: wrapIssues(v.Issues.PipelineIssues),
		StageIssues:    make(map[string][]IssueJSON, len(v.Issues.StageIssues)),
		IssueCount:     v.Issues.Count(),
	}
	for instance, list := range v.Issues.StageIssues {
		issues.StageIssues[instance] = wrapIssues(list)
	}
	return &ValidationJSON{Issues: issues, Valid: v.Valid, CanPreview: v.CanPreview}
}

func wrapIssues(in []domain.Issue) []IssueJSON {
	out := make([]IssueJSON, 0, len(in))
	for _, i := range in {
		out = append(out, IssueJSON{
			InstanceName: i.InstanceName,
			ConfigName:   i.ConfigName,
			Message:      i.Message,
			ErrorCode:    i.ErrorCode,
		})
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

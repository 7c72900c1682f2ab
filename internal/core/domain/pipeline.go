// Package domain holds the pipeline library's core entities.
package domain

import "time"

const (
	// HeadRevision is the revision tag that selects the current pipeline document.
	HeadRevision = "0"

	// SchemaVersion is the pipeline document schema written by this service.
	SchemaVersion = 1
)

// NormalizeRev maps the empty revision to HeadRevision.
func NormalizeRev(rev string) string {
	if rev == "" {
		return HeadRevision
	}
	return rev
}

// PipelineInfo summarizes one stored pipeline.
type PipelineInfo struct {
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Creator      string    `json:"creator"`
	LastModifier string    `json:"last_modifier"`
	Created      time.Time `json:"created"`
	LastModified time.Time `json:"last_modified"`
	LastRev      string    `json:"last_rev"`
	UUID         string    `json:"uuid"`
}

// RevisionInfo is one entry of a pipeline's revision history.
type RevisionInfo struct {
	Rev            string    `json:"rev"`
	Tag            string    `json:"tag"`
	TagDescription string    `json:"tag_description"`
	User           string    `json:"user"`
	Date           time.Time `json:"date"`
}

// ConfigValue is a single named configuration value. Values are kept as
// decoded JSON (string, float64, bool, []any, map[string]any).
type ConfigValue struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// StageConfiguration is one stage instance inside a pipeline.
// Stages are connected through lanes: a stage reads every lane listed in
// InputLanes and produces every lane listed in OutputLanes.
type StageConfiguration struct {
	InstanceName  string         `json:"instance_name"`
	Library       string         `json:"library"`
	StageName     string         `json:"stage_name"`
	StageVersion  string         `json:"stage_version"`
	Configuration []ConfigValue  `json:"configuration"`
	UIInfo        map[string]any `json:"ui_info,omitempty"`
	InputLanes    []string       `json:"input_lanes"`
	OutputLanes   []string       `json:"output_lanes"`
}

// Config returns the named configuration value and whether it is present.
func (s *StageConfiguration) Config(name string) (any, bool) {
	for _, c := range s.Configuration {
		if c.Name == name {
			return c.Value, true
		}
	}
	return nil, false
}

// PipelineConfiguration is the full pipeline document. It never carries a
// validation verdict; verdicts are computed on demand.
type PipelineConfiguration struct {
	SchemaVersion int                  `json:"schema_version"`
	UUID          string               `json:"uuid"`
	Description   string               `json:"description"`
	Configuration []ConfigValue        `json:"configuration"`
	UIInfo        map[string]any       `json:"ui_info,omitempty"`
	Stages        []StageConfiguration `json:"stages"`
	ErrorStage    *StageConfiguration  `json:"error_stage,omitempty"`
	MemoryLimitMB int64                `json:"memory_limit_mb"`
	Info          *PipelineInfo        `json:"info,omitempty"`
}

// Config returns the named pipeline-level configuration value.
func (p *PipelineConfiguration) Config(name string) (any, bool) {
	for _, c := range p.Configuration {
		if c.Name == name {
			return c.Value, true
		}
	}
	return nil, false
}

// Clone returns a deep copy of the slices owned by the configuration.
// Map-valued ui info and config values are shared.
func (p *PipelineConfiguration) Clone() *PipelineConfiguration {
	if p == nil {
		return nil
	}
	c := *p
	c.Configuration = append([]ConfigValue(nil), p.Configuration...)
	c.Stages = make([]StageConfiguration, len(p.Stages))
	for i, s := range p.Stages {
		c.Stages[i] = s.clone()
	}
	if p.ErrorStage != nil {
		es := p.ErrorStage.clone()
		c.ErrorStage = &es
	}
	if p.Info != nil {
		info := *p.Info
		c.Info = &info
	}
	return &c
}

func (s StageConfiguration) clone() StageConfiguration {
	s.Configuration = append([]ConfigValue(nil), s.Configuration...)
	s.InputLanes = append([]string(nil), s.InputLanes...)
	s.OutputLanes = append([]string(nil), s.OutputLanes...)
	return s
}

// Issue is a single validation finding. InstanceName is empty for
// pipeline-level issues.
type Issue struct {
	InstanceName string `json:"instance_name,omitempty"`
	ConfigName   string `json:"config_name,omitempty"`
	Message      string `json:"message"`
	ErrorCode    string `json:"error_code"`
}

// Issues groups validation findings by where they were found.
type Issues struct {
	PipelineIssues []Issue            `json:"pipeline_issues"`
	StageIssues    map[string][]Issue `json:"stage_issues"`
}

// Count returns the total number of issues.
func (i Issues) Count() int {
	n := len(i.PipelineIssues)
	for _, s := range i.StageIssues {
		n += len(s)
	}
	return n
}

// Verdict is the result of validating a pipeline against a stage library.
type Verdict struct {
	Issues     Issues `json:"issues"`
	Valid      bool   `json:"valid"`
	CanPreview bool   `json:"can_preview"`
}

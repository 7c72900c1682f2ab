// Package validation checks pipeline configurations and rule definitions.
// Both validators are pure: findings are returned as data and never as errors.
package validation

import (
	"fmt"

	"github.com/tjfontaine/pipeline-library/internal/core/domain"
)

// Pipeline issue codes.
const (
	CodeEmptyPipeline       = "VALIDATION_0001"
	CodeDuplicateInstance   = "VALIDATION_0002"
	CodeFirstStageNotSource = "VALIDATION_0003"
	CodeMultipleSources     = "VALIDATION_0004"
	CodeStageNotFound       = "VALIDATION_0006"
	CodeRequiredConfig      = "VALIDATION_0007"
	CodeUnknownConfig       = "VALIDATION_0008"
	CodeOpenLanes           = "VALIDATION_0011"
	CodeSourceHasInput      = "VALIDATION_0012"
	CodeTargetHasOutput     = "VALIDATION_0013"
	CodeMissingInput        = "VALIDATION_0014"
	CodeUnknownInputLane    = "VALIDATION_0015"
	CodeDuplicateOutputLane = "VALIDATION_0016"
	CodeErrorStageMissing   = "VALIDATION_0060"
	CodeErrorStageWrongType = "VALIDATION_0061"
	CodeNegativeMemoryLimit = "VALIDATION_0070"
	CodePipelineConfigIssue = "VALIDATION_0071"
)

// structural issues make the pipeline impossible to preview.
var structural = map[string]bool{
	CodeEmptyPipeline:       true,
	CodeDuplicateInstance:   true,
	CodeFirstStageNotSource: true,
	CodeMultipleSources:     true,
	CodeStageNotFound:       true,
	CodeOpenLanes:           true,
	CodeSourceHasInput:      true,
	CodeTargetHasOutput:     true,
	CodeMissingInput:        true,
	CodeUnknownInputLane:    true,
	CodeDuplicateOutputLane: true,
}

// ValidatePipeline checks cfg against the stage catalog and returns the
// verdict. The configuration is not modified.
func ValidatePipeline(catalog *domain.StageCatalog, name string, cfg *domain.PipelineConfiguration) domain.Verdict {
	v := &pipelineValidator{
		catalog: catalog,
		issues:  domain.Issues{StageIssues: map[string][]domain.Issue{}},
	}
	if cfg == nil {
		cfg = &domain.PipelineConfiguration{}
	}

	if len(cfg.Stages) == 0 {
		v.pipelineIssue(CodeEmptyPipeline, "", fmt.Sprintf("Pipeline '%s' has no stages", name))
	} else {
		v.checkStages(cfg.Stages)
		v.checkLanes(cfg.Stages)
	}
	v.checkErrorStage(cfg.ErrorStage)
	v.checkPipelineConfigs(cfg)

	if cfg.MemoryLimitMB < 0 {
		v.pipelineIssue(CodeNegativeMemoryLimit, "memoryLimit",
			fmt.Sprintf("Memory limit must not be negative, got %d", cfg.MemoryLimitMB))
	}

	return domain.Verdict{
		Issues:     v.issues,
		Valid:      v.issues.Count() == 0,
		CanPreview: !v.blocking,
	}
}

type pipelineValidator struct {
	catalog  *domain.StageCatalog
	issues   domain.Issues
	blocking bool
}

func (v *pipelineValidator) pipelineIssue(code, config, msg string) {
	v.issues.PipelineIssues = append(v.issues.PipelineIssues, domain.Issue{
		ConfigName: config,
		Message:    msg,
		ErrorCode:  code,
	})
	v.blocking = v.blocking || structural[code]
}

func (v *pipelineValidator) stageIssue(instance, code, config, msg string) {
	if instance == "" {
		v.pipelineIssue(code, config, msg)
		return
	}
	v.issues.StageIssues[instance] = append(v.issues.StageIssues[instance], domain.Issue{
		InstanceName: instance,
		ConfigName:   config,
		Message:      msg,
		ErrorCode:    code,
	})
	v.blocking = v.blocking || structural[code]
}

func (v *pipelineValidator) checkStages(stages []domain.StageConfiguration) {
	seen := make(map[string]bool, len(stages))

	for i := range stages {
		s := &stages[i]
		if seen[s.InstanceName] {
			v.stageIssue(s.InstanceName, CodeDuplicateInstance, "",
				fmt.Sprintf("Instance name '%s' is used by more than one stage", s.InstanceName))
		}
		seen[s.InstanceName] = true

		def, ok := v.catalog.Stage(s.Library, s.StageName, s.StageVersion)
		if !ok {
			v.stageIssue(s.InstanceName, CodeStageNotFound, "",
				fmt.Sprintf("Stage definition '%s:%s:%s' not found", s.Library, s.StageName, s.StageVersion))
			continue
		}

		switch def.Type {
		case domain.StageTypeSource:
			if i != 0 {
				v.stageIssue(s.InstanceName, CodeMultipleSources, "",
					"Only the first stage of a pipeline can be a source")
			}
			if len(s.InputLanes) > 0 {
				v.stageIssue(s.InstanceName, CodeSourceHasInput, "", "A source stage cannot have input lanes")
			}
		case domain.StageTypeTarget, domain.StageTypeErrorTarget:
			if len(s.OutputLanes) > 0 {
				v.stageIssue(s.InstanceName, CodeTargetHasOutput, "", "A target stage cannot have output lanes")
			}
		}
		if def.Type != domain.StageTypeSource && len(s.InputLanes) == 0 {
			v.stageIssue(s.InstanceName, CodeMissingInput, "", "Stage has no input lanes")
		}
		if i == 0 && def.Type != domain.StageTypeSource {
			v.stageIssue(s.InstanceName, CodeFirstStageNotSource, "", "The first stage must be a source")
		}

		v.checkConfigs(s, def)
	}
}

func (v *pipelineValidator) checkConfigs(s *domain.StageConfiguration, def *domain.StageDefinition) {
	for _, c := range def.Configs {
		if !c.Required || c.DefaultValue != nil {
			continue
		}
		if val, ok := s.Config(c.Name); !ok || isEmpty(val) {
			v.stageIssue(s.InstanceName, CodeRequiredConfig, c.Name,
				fmt.Sprintf("Configuration '%s' is required", c.Name))
		}
	}
	for _, c := range s.Configuration {
		if _, ok := def.Config(c.Name); !ok {
			v.stageIssue(s.InstanceName, CodeUnknownConfig, c.Name,
				fmt.Sprintf("Stage '%s' has no configuration named '%s'", def.Name, c.Name))
		}
	}
}

// checkLanes verifies that lanes flow forward: every input lane is produced
// by an earlier stage, every output lane is produced once and consumed.
func (v *pipelineValidator) checkLanes(stages []domain.StageConfiguration) {
	producer := map[string]string{}
	consumed := map[string]bool{}

	for _, s := range stages {
		for _, lane := range s.InputLanes {
			if _, ok := producer[lane]; !ok {
				v.stageIssue(s.InstanceName, CodeUnknownInputLane, "",
					fmt.Sprintf("Input lane '%s' is not produced by a previous stage", lane))
			}
			consumed[lane] = true
		}
		for _, lane := range s.OutputLanes {
			if owner, ok := producer[lane]; ok {
				v.stageIssue(s.InstanceName, CodeDuplicateOutputLane, "",
					fmt.Sprintf("Output lane '%s' is already produced by stage '%s'", lane, owner))
				continue
			}
			producer[lane] = s.InstanceName
		}
	}

	for _, s := range stages {
		for _, lane := range s.OutputLanes {
			if !consumed[lane] && producer[lane] == s.InstanceName {
				v.stageIssue(s.InstanceName, CodeOpenLanes, "",
					fmt.Sprintf("Output lane '%s' is not connected to any stage", lane))
			}
		}
	}
}

func (v *pipelineValidator) checkErrorStage(es *domain.StageConfiguration) {
	if es == nil {
		v.pipelineIssue(CodeErrorStageMissing, "badRecordsHandling", "Error records handling is not configured")
		return
	}
	def, ok := v.catalog.Stage(es.Library, es.StageName, es.StageVersion)
	if !ok {
		v.stageIssue(es.InstanceName, CodeStageNotFound, "",
			fmt.Sprintf("Stage definition '%s:%s:%s' not found", es.Library, es.StageName, es.StageVersion))
		return
	}
	if def.Type != domain.StageTypeErrorTarget {
		v.stageIssue(es.InstanceName, CodeErrorStageWrongType, "",
			fmt.Sprintf("Stage '%s' cannot be used for error records handling", def.Name))
		return
	}
	v.checkConfigs(es, def)
}

func (v *pipelineValidator) checkPipelineConfigs(cfg *domain.PipelineConfiguration) {
	defs := v.catalog.PipelineConfigs()
	known := make(map[string]bool, len(defs))
	for _, d := range defs {
		known[d.Name] = true
		if !d.Required || d.DefaultValue != nil {
			continue
		}
		if val, ok := cfg.Config(d.Name); !ok || isEmpty(val) {
			v.pipelineIssue(CodePipelineConfigIssue, d.Name,
				fmt.Sprintf("Pipeline configuration '%s' is required", d.Name))
		}
	}
	for _, c := range cfg.Configuration {
		if !known[c.Name] {
			v.pipelineIssue(CodePipelineConfigIssue, c.Name,
				fmt.Sprintf("Unknown pipeline configuration '%s'", c.Name))
		}
	}
}

func isEmpty(val any) bool {
	switch t := val.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}

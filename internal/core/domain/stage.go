package domain

// StageType classifies a stage definition by its position in a pipeline.
type StageType string

const (
	StageTypeSource      StageType = "SOURCE"
	StageTypeProcessor   StageType = "PROCESSOR"
	StageTypeTarget      StageType = "TARGET"
	StageTypeErrorTarget StageType = "ERROR_TARGET"
)

// ConfigDefinition describes one configuration a stage (or the pipeline) accepts.
type ConfigDefinition struct {
	Name         string `yaml:"name"`
	Type         string `yaml:"type"`
	Required     bool   `yaml:"required"`
	DefaultValue any    `yaml:"default"`
	Label        string `yaml:"label"`
}

// StageDefinition describes a stage available in the stage library.
type StageDefinition struct {
	Library string             `yaml:"library"`
	Name    string             `yaml:"name"`
	Version string             `yaml:"version"`
	Type    StageType          `yaml:"type"`
	Label   string             `yaml:"label"`
	Configs []ConfigDefinition `yaml:"configs"`
}

// Config returns the named configuration definition.
func (d *StageDefinition) Config(name string) (*ConfigDefinition, bool) {
	for i := range d.Configs {
		if d.Configs[i].Name == name {
			return &d.Configs[i], true
		}
	}
	return nil, false
}

// StageCatalog is an immutable view of the stage library used by the
// pipeline validator.
type StageCatalog struct {
	stages          map[stageKey]*StageDefinition
	pipelineConfigs []ConfigDefinition
}

type stageKey struct {
	library, name, version string
}

// NewStageCatalog indexes stage definitions. Later duplicates replace earlier ones.
func NewStageCatalog(stages []StageDefinition, pipelineConfigs []ConfigDefinition) *StageCatalog {
	c := &StageCatalog{
		stages:          make(map[stageKey]*StageDefinition, len(stages)),
		pipelineConfigs: append([]ConfigDefinition(nil), pipelineConfigs...),
	}
	for i := range stages {
		def := stages[i]
		c.stages[stageKey{def.Library, def.Name, def.Version}] = &def
	}
	return c
}

// Stage looks up a stage definition.
func (c *StageCatalog) Stage(library, name, version string) (*StageDefinition, bool) {
	if c == nil {
		return nil, false
	}
	def, ok := c.stages[stageKey{library, name, version}]
	return def, ok
}

// PipelineConfigs returns the pipeline-level configuration definitions.
func (c *StageCatalog) PipelineConfigs() []ConfigDefinition {
	if c == nil {
		return nil
	}
	return c.pipelineConfigs
}

// Len returns the number of stage definitions.
func (c *StageCatalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.stages)
}

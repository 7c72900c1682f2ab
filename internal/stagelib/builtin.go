package stagelib

import "github.com/tjfontaine/pipeline-library/internal/core/domain"

// BasicLibrary is the library name of the built-in stages.
const BasicLibrary = "basic-lib"

// Builtin stage names.
const (
	StageRawDataSource  = "raw_data_source"
	StageRandomSource   = "random_source"
	StageExpression     = "expression_processor"
	StageStreamSelector = "stream_selector"
	StageFieldFilter    = "field_filter"
	StageTrash          = "trash"
	StageLocalFS        = "local_fs_target"
	StageToError        = "to_error"
	StageErrorTrash     = "error_trash"
	StageErrorArchive   = "error_archive"
)

// Pipeline-level configuration names.
const (
	ConfigDeliveryGuarantee = "deliveryGuarantee"
	ConfigConstants         = "constants"
	ConfigRetryAttempts     = "retryAttempts"
)

func builtinStages() []domain.StageDefinition {
	return []domain.StageDefinition{
		{
			Library: BasicLibrary, Name: StageRawDataSource, Version: "1", Type: domain.StageTypeSource,
			Label: "Raw Data Source",
			Configs: []domain.ConfigDefinition{
				{Name: "rawData", Type: "TEXT", Required: true, Label: "Raw Data"},
				{Name: "dataFormat", Type: "MODEL", Required: true, DefaultValue: "JSON", Label: "Data Format"},
			},
		},
		{
			Library: BasicLibrary, Name: StageRandomSource, Version: "1", Type: domain.StageTypeSource,
			Label: "Random Record Source",
			Configs: []domain.ConfigDefinition{
				{Name: "fields", Type: "STRING", Required: true, Label: "Fields"},
				{Name: "delay", Type: "NUMBER", DefaultValue: 1000, Label: "Delay (ms)"},
			},
		},
		{
			Library: BasicLibrary, Name: StageExpression, Version: "1", Type: domain.StageTypeProcessor,
			Label: "Expression Evaluator",
			Configs: []domain.ConfigDefinition{
				{Name: "expressions", Type: "MODEL", Required: true, Label: "Field Expressions"},
			},
		},
		{
			Library: BasicLibrary, Name: StageStreamSelector, Version: "1", Type: domain.StageTypeProcessor,
			Label: "Stream Selector",
			Configs: []domain.ConfigDefinition{
				{Name: "lanePredicates", Type: "MODEL", Required: true, Label: "Conditions"},
			},
		},
		{
			Library: BasicLibrary, Name: StageFieldFilter, Version: "1", Type: domain.StageTypeProcessor,
			Label: "Field Remover",
			Configs: []domain.ConfigDefinition{
				{Name: "fields", Type: "LIST", Required: true, Label: "Fields"},
				{Name: "filterOperation", Type: "MODEL", Required: true, DefaultValue: "REMOVE", Label: "Action"},
			},
		},
		{
			Library: BasicLibrary, Name: StageTrash, Version: "1", Type: domain.StageTypeTarget,
			Label: "Trash",
		},
		{
			Library: BasicLibrary, Name: StageLocalFS, Version: "1", Type: domain.StageTypeTarget,
			Label: "Local FS",
			Configs: []domain.ConfigDefinition{
				{Name: "directory", Type: "STRING", Required: true, Label: "Directory"},
				{Name: "filePrefix", Type: "STRING", DefaultValue: "sdc", Label: "File Prefix"},
			},
		},
		{
			Library: BasicLibrary, Name: StageToError, Version: "1", Type: domain.StageTypeTarget,
			Label: "To Error",
		},
		{
			Library: BasicLibrary, Name: StageErrorTrash, Version: "1", Type: domain.StageTypeErrorTarget,
			Label: "Discard",
		},
		{
			Library: BasicLibrary, Name: StageErrorArchive, Version: "1", Type: domain.StageTypeErrorTarget,
			Label: "Write to File",
			Configs: []domain.ConfigDefinition{
				{Name: "directory", Type: "STRING", Required: true, Label: "Directory"},
			},
		},
	}
}

func builtinPipelineConfigs() []domain.ConfigDefinition {
	return []domain.ConfigDefinition{
		{Name: ConfigDeliveryGuarantee, Type: "MODEL", Required: true, DefaultValue: "AT_LEAST_ONCE", Label: "Delivery Guarantee"},
		{Name: ConfigConstants, Type: "MAP", Label: "Constants"},
		{Name: ConfigRetryAttempts, Type: "NUMBER", DefaultValue: -1, Label: "Retry Attempts"},
	}
}

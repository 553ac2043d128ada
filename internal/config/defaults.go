package config

const (
	defaultConfigPath       = "~/.config/dicomsort/config.toml"
	defaultStateDir         = "~/.local/share/dicomsort"
	defaultLogDir           = "~/.local/share/dicomsort/logs"
	defaultFilenameTemplate = "%(ImageType)s (%(InstanceNumber)04d)%(FileExtension)s"
	defaultWorkers          = 2
	defaultRecursionLimit   = 5
	defaultCollisionSuffix  = ".copy"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 30
	maxWorkers              = 64
)

var defaultDirectoryTemplates = []string{"%(PatientName)s", "%(StudyDescription)s", "%(SeriesDescription)s"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Sort: Sort{
			DirectoryTemplates: append([]string{}, defaultDirectoryTemplates...),
			FilenameTemplate:   defaultFilenameTemplate,
			KeepOriginal:       true,
			Workers:            defaultWorkers,
			RecursionLimit:     defaultRecursionLimit,
			CollisionSuffix:    defaultCollisionSuffix,
		},
		Anonymize: Anonymize{
			Rules: map[string]string{},
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}

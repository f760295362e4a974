package config

const (
	defaultLogDir                  = "~/.local/share/extrad/logs"
	defaultStateDir                = "~/.local/share/extrad/state"
	defaultAPIBind                 = "127.0.0.1:7489"
	defaultTMDBBaseURL             = "https://api.themoviedb.org/3"
	defaultTMDBLanguage            = "en-US"
	defaultYtDlpBinary             = "yt-dlp"
	defaultYtDlpFormat             = "bestvideo[height<=1080]+bestaudio/best[height<=1080]"
	defaultYtDlpContainer          = "mkv"
	defaultYtDlpSleepInterval      = 5
	defaultYtDlpMaxSleepInterval   = 30
	defaultPOTServerPort           = 4416
	defaultPOTServerScriptPath     = "pot-provider/build/main.js"
	defaultMaxPerCategory          = 1
	defaultQueuePollInterval       = 5
	defaultInterVideoDelay         = 30
	defaultInterItemDelay          = 60
	defaultErrorCooldown           = 60
	defaultProcessedRetentionHours = 72
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:   defaultLogDir,
			StateDir: defaultStateDir,
			APIBind:  defaultAPIBind,
		},
		TMDB: TMDB{
			BaseURL:   defaultTMDBBaseURL,
			Languages: []string{defaultTMDBLanguage},
		},
		YtDlp: YtDlp{
			Binary:           defaultYtDlpBinary,
			Format:           defaultYtDlpFormat,
			Container:        defaultYtDlpContainer,
			EmbedMetadata:    true,
			EmbedThumbnail:   true,
			SleepInterval:    defaultYtDlpSleepInterval,
			MaxSleepInterval: defaultYtDlpMaxSleepInterval,
		},
		POTServer: POTServer{
			Port:       defaultPOTServerPort,
			ScriptPath: defaultPOTServerScriptPath,
		},
		Extras: Extras{
			Trailers:            true,
			Featurettes:         true,
			PreferOfficial:      true,
			MaxPerCategory:      defaultMaxPerCategory,
			OrganizeIntoFolders: true,
		},
		Workflow: Workflow{
			QueuePollInterval:       defaultQueuePollInterval,
			InterVideoDelay:         defaultInterVideoDelay,
			InterItemDelay:          defaultInterItemDelay,
			ErrorCooldown:           defaultErrorCooldown,
			ProcessedRetentionHours: defaultProcessedRetentionHours,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

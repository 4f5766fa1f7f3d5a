package config

const (
	defaultConfigPath            = "~/.config/autocrack/config.toml"
	defaultCacheDir              = "~/.local/share/autocrack/cache"
	defaultStateDir              = "~/.local/share/autocrack"
	defaultLogDir                = "~/.local/share/autocrack/logs"
	defaultAccountName           = "Player"
	defaultSteamID               = "76561197960287930"
	defaultLanguage              = "english"
	defaultRetryBudget           = 5
	defaultRetryDelayMS          = 1000
	defaultStoreURL              = "https://store.steampowered.com"
	defaultWebAPIURL             = "https://api.steampowered.com"
	defaultSteamCMDURL           = "https://api.steamcmd.net/v1"
	defaultRequestTimeout        = 30
	defaultDependencyConcurrency = 4
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	maxRetryBudget               = 50
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			CacheDir: defaultCacheDir,
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Emulator: Emulator{
			AccountName: defaultAccountName,
			SteamID:     defaultSteamID,
			Language:    defaultLanguage,
		},
		Unpack: Unpack{
			Enabled: true,
		},
		Replace: Replace{
			RetryBudget:  defaultRetryBudget,
			RetryDelayMS: defaultRetryDelayMS,
		},
		Steam: Steam{
			StoreURL:       defaultStoreURL,
			WebAPIURL:      defaultWebAPIURL,
			SteamCMDURL:    defaultSteamCMDURL,
			RequestTimeout: defaultRequestTimeout,
			DownloadIcons:  true,
		},
		Dependencies: Dependencies{
			Concurrency: defaultDependencyConcurrency,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

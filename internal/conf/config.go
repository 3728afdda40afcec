// config.go: settings struct for the UGCScan application and the functions to
// load them from the configuration file and environment.
package conf

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yaml
var configFiles embed.FS

// CatalogSettings contains settings for the catalog search client.
type CatalogSettings struct {
	Endpoint  string        // catalog search endpoint
	PageSize  int           // items requested per page
	PageDelay time.Duration // self-imposed pause between page fetches
	Timeout   time.Duration // per-request timeout
	Retries   int           // extra attempts on a transient failure
}

// ThumbnailSettings contains settings for the thumbnail lookup client.
type ThumbnailSettings struct {
	Endpoint    string        // thumbnail lookup endpoint
	Size        string        // requested rendering size, e.g. "420x420"
	Format      string        // requested image format, e.g. "Png"
	Timeout     time.Duration // per-request timeout
	Retries     int           // extra attempts on a transient failure
	CacheTTL    time.Duration // how long resolved URLs are memoized
	NegativeTTL time.Duration // how long misses are memoized
}

// ClassifierSettings contains settings for the TFLite classifier.
type ClassifierSettings struct {
	ModelPath     string  // path to the .tflite model artifact
	LabelPath     string  // path to the newline-delimited label file
	PositiveLabel string  // label value that triggers flagging
	Threshold     float64 // confidence must be strictly above this to flag
	InputSize     int     // model input width/height in pixels
	Threads       int     // interpreter threads, 0 = all CPUs
}

// ScanSettings contains defaults for a scan run.
type ScanSettings struct {
	Keywords      []string      // keywords scanned when none are given on the command line
	Limit         int           // item limit per keyword
	ImageTimeout  time.Duration // thumbnail download timeout
}

// FlagLogSettings contains settings for the flagged-item log.
type FlagLogSettings struct {
	Path   string // path to the append-only JSONL log
	Dedupe bool   // drop items whose id is already present in the log
}

// NotifySettings contains settings for the Discord push after a run.
type NotifySettings struct {
	Enabled    bool
	WebhookURL string // Discord webhook URL
}

// ScheduleSettings contains settings for the daily schedule mode.
type ScheduleSettings struct {
	At string // wall-clock trigger time, "15:04" format
}

// MetricsSettings contains settings for the Prometheus endpoint.
type MetricsSettings struct {
	Enabled bool
	Listen  string // address for the /metrics listener in schedule mode
}

// InventorySettings contains settings for the inventory export command.
type InventorySettings struct {
	Endpoint  string        // inventory endpoint, user id and asset type appended
	PageSize  int
	Timeout   time.Duration
	AssetType int // asset type id to export, 13 = decals
}

// Settings is the root of the configuration tree.
type Settings struct {
	Debug bool // true to enable debug level logging

	Catalog    CatalogSettings
	Thumbnails ThumbnailSettings
	Classifier ClassifierSettings
	Scan       ScanSettings
	FlagLog    FlagLogSettings
	Notify     NotifySettings
	Schedule   ScheduleSettings
	Metrics    MetricsSettings
	Inventory  InventorySettings
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment into a Settings instance.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// GetSettings returns the settings instance loaded by Load, or nil.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// initViper initializes viper with defaults and reads the configuration file,
// creating a default one when none exists.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return createDefaultConfig()
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig writes the embedded default config to the first config
// path and reads it back in.
func createDefaultConfig() error {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	configPath := filepath.Join(configPaths[0], "config.yaml")

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(getDefaultConfig()), 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	fmt.Println("Created default config file at:", configPath)
	return viper.ReadInConfig()
}

// getDefaultConfig returns the embedded default configuration file contents.
func getDefaultConfig() string {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		panic(fmt.Sprintf("embedded config.yaml missing: %v", err))
	}
	return string(data)
}

// GetDefaultConfigPaths returns the list of directories searched for the
// configuration file, in priority order.
func GetDefaultConfigPaths() ([]string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("error getting user config directory: %w", err)
	}
	return []string{
		".",
		filepath.Join(configDir, "ugcscan"),
	}, nil
}

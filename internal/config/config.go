// Package config holds procmirror's settings. Values come from built-in
// defaults, procmirror.yaml, PROCMIRROR_* environment variables and flags,
// later sources overriding earlier ones.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/agentic-research/procmirror/internal/remote"
	"github.com/agentic-research/procmirror/internal/transcode"
)

const (
	// FileName is the config file name searched for without --config.
	FileName = "procmirror.yaml"
	// EnvPrefix prefixes environment overrides, e.g. PROCMIRROR_LOG_LEVEL.
	EnvPrefix = "PROCMIRROR"
)

// Keys shared with flag bindings.
const (
	KeyController   = "controller"
	KeyMirrorDir    = "mirror_dir"
	KeyRemoteRoot   = "remote_root"
	KeyExtension    = "extension"
	KeyDataFile     = "data_file"
	KeyBaselineFile = "baseline_file"
	KeyBackupDir    = "backup_dir"
	KeyManifest     = "manifest"
	KeyIgnore       = "ignore"
	KeyLogLevel     = "log.level"
	KeyLogFormat    = "log.format"
)

// Config is the resolved configuration.
type Config struct {
	Controller   string    `yaml:"controller" mapstructure:"controller"`
	MirrorDir    string    `yaml:"mirror_dir" mapstructure:"mirror_dir"`
	RemoteRoot   string    `yaml:"remote_root" mapstructure:"remote_root"`
	Extension    string    `yaml:"extension" mapstructure:"extension"`
	DataFile     string    `yaml:"data_file" mapstructure:"data_file"`
	BaselineFile string    `yaml:"baseline_file" mapstructure:"baseline_file"`
	BackupDir    string    `yaml:"backup_dir" mapstructure:"backup_dir"`
	Manifest     string    `yaml:"manifest" mapstructure:"manifest"`
	Ignore       []string  `yaml:"ignore" mapstructure:"ignore"`
	Log          LogConfig `yaml:"log" mapstructure:"log"`
}

// LogConfig selects the logrus level and formatter.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // text or json
}

// Default returns the built-in configuration. The data file lives where
// the controller keeps it, under the user's Documents folder.
func Default() *Config {
	dataFile := filepath.Join("Documents", "WinAutomation", "Processes.dat")
	if home, err := os.UserHomeDir(); err == nil {
		dataFile = filepath.Join(home, dataFile)
	}
	return &Config{
		Controller:   remote.DefaultControllerPath,
		MirrorDir:    "processes",
		RemoteRoot:   transcode.Separator,
		Extension:    transcode.DefaultExtension,
		DataFile:     dataFile,
		BaselineFile: "Processes.dat",
		BackupDir:    "backups",
		Manifest:     filepath.Join(".procmirror", "manifest.db"),
		Ignore:       []string{},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// SetDefaults registers every key with its default so that environment
// variables can override keys absent from the config file.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault(KeyController, d.Controller)
	v.SetDefault(KeyMirrorDir, d.MirrorDir)
	v.SetDefault(KeyRemoteRoot, d.RemoteRoot)
	v.SetDefault(KeyExtension, d.Extension)
	v.SetDefault(KeyDataFile, d.DataFile)
	v.SetDefault(KeyBaselineFile, d.BaselineFile)
	v.SetDefault(KeyBackupDir, d.BackupDir)
	v.SetDefault(KeyManifest, d.Manifest)
	v.SetDefault(KeyIgnore, d.Ignore)
	v.SetDefault(KeyLogLevel, d.Log.Level)
	v.SetDefault(KeyLogFormat, d.Log.Format)
}

// ReadIn wires defaults, environment and the config file into v. With an
// empty cfgFile, procmirror.yaml is searched in the working directory and
// then $HOME/.procmirror; a missing file is not an error. It returns the
// file used, if any.
func ReadIn(v *viper.Viper, cfgFile string) (string, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join("$HOME", ".procmirror"))
		v.SetConfigName(strings.TrimSuffix(FileName, filepath.Ext(FileName)))
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return "", nil
		}
		return "", fmt.Errorf("read config: %w", err)
	}
	return v.ConfigFileUsed(), nil
}

// Load decodes v into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first unusable setting.
func (c *Config) Validate() error {
	required := []struct{ key, val string }{
		{KeyController, c.Controller},
		{KeyMirrorDir, c.MirrorDir},
		{KeyDataFile, c.DataFile},
		{KeyBaselineFile, c.BaselineFile},
		{KeyBackupDir, c.BackupDir},
		{KeyManifest, c.Manifest},
	}
	for _, r := range required {
		if strings.TrimSpace(r.val) == "" {
			return fmt.Errorf("config: %s must not be empty", r.key)
		}
	}
	if !strings.HasPrefix(c.Extension, ".") || len(c.Extension) < 2 {
		return fmt.Errorf("config: extension %q must start with a dot", c.Extension)
	}
	if strings.ContainsAny(c.Extension, `/\`) {
		return fmt.Errorf("config: extension %q must not contain a separator", c.Extension)
	}
	for _, p := range c.Ignore {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("config: invalid ignore pattern %q", p)
		}
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: log.format %q must be text or json", c.Log.Format)
	}
	return nil
}

// Apply configures logger from the log settings.
func (l LogConfig) Apply(logger *logrus.Logger) error {
	level, err := logrus.ParseLevel(l.Level)
	if err != nil {
		return err
	}
	logger.SetLevel(level)
	if l.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}

// SaveTo writes c as YAML, creating the parent directory.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

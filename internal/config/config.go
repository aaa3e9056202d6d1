package config

import (
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/icon-generator/internal/model"
	"github.com/aliskhannn/icon-generator/internal/processor"
)

// DefaultPath is where the configuration file is looked up when no path is given.
const DefaultPath = "./config/config.yml"

const envPrefix = "ICONGEN"

var hexColor = regexp.MustCompile(`^#?([0-9a-fA-F]{3}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)

// Config holds the main configuration for the application.
type Config struct {
	Source    string          `mapstructure:"source"`     // source image path
	OutputDir string          `mapstructure:"output_dir"` // directory the icon set is written to
	Icons     model.SizeTable `mapstructure:"icons"`      // icons to produce, in order
	Render    Render          `mapstructure:"render"`
	Run       Run             `mapstructure:"run"`
	Manifest  Manifest        `mapstructure:"manifest"`
	Storage   Storage         `mapstructure:"storage"`
	Kafka     Kafka           `mapstructure:"kafka"`
	Retry     Retry           `mapstructure:"retry"`
}

// Render holds image rendering options.
type Render struct {
	Filter      string `mapstructure:"filter"`      // lanczos, catmullrom or mitchellnetravali
	Fit         string `mapstructure:"fit"`         // stretch or contain
	Background  string `mapstructure:"background"`  // hex colour used by contain, empty for transparent
	Compression string `mapstructure:"compression"` // best, default, speed or none
}

// Run holds execution options.
type Run struct {
	Workers          int  `mapstructure:"workers"`             // icons rendered concurrently
	FailOnEntryError bool `mapstructure:"fail_on_entry_error"` // exit non-zero on partial failure
}

// Manifest controls the asset catalog Contents.json.
type Manifest struct {
	Enabled bool `mapstructure:"enabled"`
}

// Storage holds configuration for the object storage the icons are mirrored to.
type Storage struct {
	Enabled    bool   `mapstructure:"enabled"`
	Endpoint   string `mapstructure:"endpoint"`
	AccessKey  string `mapstructure:"access_key"`
	SecretKey  string `mapstructure:"secret_key"`
	BucketName string `mapstructure:"bucket_name"`
	UseSSL     bool   `mapstructure:"use_ssl"`
	Prefix     string `mapstructure:"prefix"` // key prefix inside the bucket
}

// Kafka holds configuration for run notifications.
type Kafka struct {
	Enabled bool     `mapstructure:"enabled"`
	Topic   string   `mapstructure:"topic"`   // Kafka topic name
	Brokers []string `mapstructure:"brokers"` // List of Kafka broker addresses
}

// Retry defines retry policy configuration.
type Retry struct {
	Attempts int           `mapstructure:"attempts"` // Number of retry attempts
	Delay    time.Duration `mapstructure:"delay"`    // Initial delay between retries
	Backoff  float64       `mapstructure:"backoff"`  // Backoff multiplier for delays
}

// DefaultIcons returns the iOS app icon set.
func DefaultIcons() model.SizeTable {
	return model.SizeTable{
		{Name: "AppIcon-20x20@2x.png", Size: 40, Idiom: "iphone", Scale: "2x"},
		{Name: "AppIcon-20x20@3x.png", Size: 60, Idiom: "iphone", Scale: "3x"},
		{Name: "AppIcon-29x29@2x.png", Size: 58, Idiom: "iphone", Scale: "2x"},
		{Name: "AppIcon-29x29@3x.png", Size: 87, Idiom: "iphone", Scale: "3x"},
		{Name: "AppIcon-40x40@2x.png", Size: 80, Idiom: "iphone", Scale: "2x"},
		{Name: "AppIcon-40x40@3x.png", Size: 120, Idiom: "iphone", Scale: "3x"},
		{Name: "AppIcon-60x60@2x.png", Size: 120, Idiom: "iphone", Scale: "2x"},
		{Name: "AppIcon-60x60@3x.png", Size: 180, Idiom: "iphone", Scale: "3x"},
		{Name: "AppIcon-76x76@1x.png", Size: 76, Idiom: "ipad", Scale: "1x"},
		{Name: "AppIcon-76x76@2x.png", Size: 152, Idiom: "ipad", Scale: "2x"},
		{Name: "AppIcon-83.5x83.5@2x.png", Size: 167, Idiom: "ipad", Scale: "2x"},
		{Name: "AppIcon-1024x1024@1x.png", Size: 1024, Idiom: "ios-marketing", Scale: "1x"},
	}
}

// Flags returns the command-line flags understood by Load.
func Flags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("icongen", pflag.ContinueOnError)
	flags.StringP("config", "c", DefaultPath, "path to the configuration file")
	flags.StringP("source", "s", "", "source image")
	flags.StringP("out", "o", "", "output directory")
	flags.IntP("workers", "w", 0, "icons rendered concurrently")
	flags.Bool("strict", false, "exit with a non-zero status if any icon fails")

	return flags
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("source", "public/logo.png")
	v.SetDefault("output_dir", "ios/App/App/Assets.xcassets/AppIcon.appiconset")
	v.SetDefault("render.filter", "lanczos")
	v.SetDefault("render.fit", processor.FitStretch)
	v.SetDefault("render.background", "")
	v.SetDefault("render.compression", "best")
	v.SetDefault("run.workers", 1)
	v.SetDefault("run.fail_on_entry_error", false)
	v.SetDefault("manifest.enabled", true)
	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.access_key", "")
	v.SetDefault("storage.secret_key", "")
	v.SetDefault("storage.bucket_name", "icons")
	v.SetDefault("storage.use_ssl", false)
	v.SetDefault("storage.prefix", "")
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.topic", "icon-sets")
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("retry.attempts", 3)
	v.SetDefault("retry.delay", "500ms")
	v.SetDefault("retry.backoff", 2.0)
}

// bindEnv binds storage credentials to the environment variables MinIO
// deployments usually provide.
func bindEnv(v *viper.Viper) error {
	bindings := map[string]string{
		"storage.access_key": "MINIO_ACCESS_KEY",
		"storage.secret_key": "MINIO_SECRET_KEY",
	}

	for key, env := range bindings {
		if err := v.BindEnv(key, envPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return fmt.Errorf("failed to bind env %s: %w", env, err)
		}
	}

	return nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	if flags == nil {
		return nil
	}

	bindings := map[string]string{
		"source":                  "source",
		"output_dir":              "out",
		"run.workers":             "workers",
		"run.fail_on_entry_error": "strict",
	}

	for key, name := range bindings {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		// Only explicitly passed flags override the file.
		if !f.Changed {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}

	return nil
}

// Load reads the configuration from path, then applies ICONGEN_* environment
// variables and explicitly set flags. A missing file leaves the defaults in place.
// flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		zlog.Logger.Warn().Str("path", path).Msg("config file not found, using defaults")
	}

	if err := bindEnv(v); err != nil {
		return nil, err
	}

	if err := bindFlags(v, flags); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if !v.IsSet("icons") {
		cfg.Icons = DefaultIcons()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the options that must be right before a run starts.
// The icon table itself is not checked: malformed entries fail individually.
func (c *Config) Validate() error {
	var errs []error

	if c.Source == "" {
		errs = append(errs, errors.New("source is required"))
	}
	if c.OutputDir == "" {
		errs = append(errs, errors.New("output_dir is required"))
	}

	if _, err := processor.Filter(c.Render.Filter); err != nil {
		errs = append(errs, err)
	}
	if _, err := processor.Compression(c.Render.Compression); err != nil {
		errs = append(errs, err)
	}
	if c.Render.Fit != "" && c.Render.Fit != processor.FitStretch && c.Render.Fit != processor.FitContain {
		errs = append(errs, fmt.Errorf("unknown fit mode: %s", c.Render.Fit))
	}
	if c.Render.Background != "" && !hexColor.MatchString(c.Render.Background) {
		errs = append(errs, fmt.Errorf("invalid background colour: %s", c.Render.Background))
	}

	if c.Run.Workers < 1 {
		errs = append(errs, fmt.Errorf("run.workers must be at least 1, got %d", c.Run.Workers))
	}

	if c.Storage.Enabled {
		if c.Storage.Endpoint == "" {
			errs = append(errs, errors.New("storage.endpoint is required when storage is enabled"))
		}
		if c.Storage.BucketName == "" {
			errs = append(errs, errors.New("storage.bucket_name is required when storage is enabled"))
		}
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			errs = append(errs, errors.New("kafka.brokers is required when kafka is enabled"))
		}
		if c.Kafka.Topic == "" {
			errs = append(errs, errors.New("kafka.topic is required when kafka is enabled"))
		}
	}

	return errors.Join(errs...)
}

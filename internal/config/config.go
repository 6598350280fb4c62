// Package config builds the run configuration from flags, environment,
// an optional config file and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ErrMissingSetting is returned when a setting needed by a publisher is absent
// or malformed.
var ErrMissingSetting = errors.New("configuration error")

const (
	DefaultDir       = "src/pages"
	DefaultExt       = ".md"
	DefaultEnvFile   = ".env"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "console"
)

// Config is built once per run and passed to every component.
type Config struct {
	Content    ContentConfig
	Store      StoreConfig
	Playground PlaygroundConfig
	Log        LogConfig
}

// ContentConfig selects the Markdown files to scan.
type ContentConfig struct {
	Dir     string
	Ext     string
	Exclude []string
}

// StoreConfig configures the JSON key-value store publisher.
type StoreConfig struct {
	URL       string `json:"CODE_BLOCK_API_URL"`
	MasterKey string `json:"JSONBIN_MASTER_KEY"`
	// DryRun is on unless DRY_RUN is exactly "false".
	DryRun bool `json:"DRY_RUN"`
}

// PlaygroundConfig configures the playground upload publisher.
type PlaygroundConfig struct {
	IMSBaseURL   string `json:"IMS_BASE_URL"`
	FFCBaseURL   string `json:"FFC_BASE_URL"`
	ClientID     string `json:"PLAYGROUND_CLIENT_ID"`
	ClientSecret string `json:"PLAYGROUND_CLIENT_SECRET"`
	AuthCode     string `json:"PLAYGROUND_AUTH_CODE"`
	APIKey       string `json:"PLAYGROUND_API_KEY"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string
	Format string
}

// Options locates the optional configuration sources.
type Options struct {
	// File is a config file in any format viper reads (toml, yaml, json...).
	File string
	// EnvFile is a dotenv file loaded into the process environment. Variables
	// already set are kept. A missing file is ignored.
	EnvFile string
	// Flags are bound over every other source when set on the command line.
	Flags *pflag.FlagSet
}

var envBindings = map[string]string{
	"content.dir":             "TRYPUB_CONTENT_DIR",
	"content.ext":             "TRYPUB_CONTENT_EXT",
	"store.url":               "CODE_BLOCK_API_URL",
	"store.masterkey":         "JSONBIN_MASTER_KEY",
	"store.dryrun":            "DRY_RUN",
	"playground.imsbaseurl":   "IMS_BASE_URL",
	"playground.ffcbaseurl":   "FFC_BASE_URL",
	"playground.clientid":     "PLAYGROUND_CLIENT_ID",
	"playground.clientsecret": "PLAYGROUND_CLIENT_SECRET",
	"playground.authcode":     "PLAYGROUND_AUTH_CODE",
	"playground.apikey":       "PLAYGROUND_API_KEY",
	"log.level":               "TRYPUB_LOG_LEVEL",
	"log.format":              "TRYPUB_LOG_FORMAT",
}

var flagBindings = map[string]string{
	"content.dir":     "dir",
	"content.ext":     "ext",
	"content.exclude": "exclude",
	"log.level":       "log-level",
	"log.format":      "log-format",
}

// Load reads the configuration. Secrets are not validated here: each publisher
// validates what it needs when it first needs it.
func Load(opts Options) (*Config, error) {
	if len(opts.EnvFile) != 0 {
		if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", opts.EnvFile, err)
		}
	}

	v := viper.New()

	v.SetDefault("content.dir", DefaultDir)
	v.SetDefault("content.ext", DefaultExt)
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, err
		}
	}

	if opts.Flags != nil {
		for key, name := range flagBindings {
			if flag := opts.Flags.Lookup(name); flag != nil {
				if err := v.BindPFlag(key, flag); err != nil {
					return nil, err
				}
			}
		}
	}

	if len(opts.File) != 0 {
		v.SetConfigFile(opts.File)

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", opts.File, err)
		}
	}

	return &Config{
		Content: ContentConfig{
			Dir:     v.GetString("content.dir"),
			Ext:     v.GetString("content.ext"),
			Exclude: v.GetStringSlice("content.exclude"),
		},
		Store: StoreConfig{
			URL:       v.GetString("store.url"),
			MasterKey: v.GetString("store.masterkey"),
			DryRun:    v.GetString("store.dryrun") != "false",
		},
		Playground: PlaygroundConfig{
			IMSBaseURL:   v.GetString("playground.imsbaseurl"),
			FFCBaseURL:   v.GetString("playground.ffcbaseurl"),
			ClientID:     v.GetString("playground.clientid"),
			ClientSecret: v.GetString("playground.clientsecret"),
			AuthCode:     v.GetString("playground.authcode"),
			APIKey:       v.GetString("playground.apikey"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}, nil
}

// Validate checks the settings needed for a real (non dry-run) upload.
func (c StoreConfig) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.MasterKey, validation.Required),
		validation.Field(&c.URL, validation.Required, is.RequestURL),
	)

	return wrap(err)
}

// Validate checks that every playground setting is present.
func (c PlaygroundConfig) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.IMSBaseURL, validation.Required, is.RequestURL),
		validation.Field(&c.FFCBaseURL, validation.Required, is.RequestURL),
		validation.Field(&c.ClientID, validation.Required),
		validation.Field(&c.ClientSecret, validation.Required),
		validation.Field(&c.AuthCode, validation.Required),
		validation.Field(&c.APIKey, validation.Required),
	)

	return wrap(err)
}

func wrap(err error) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%w: %w", ErrMissingSetting, err)
}

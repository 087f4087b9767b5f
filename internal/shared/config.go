package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// MaxBatchSize is the largest number of records or options the platform accepts in one call.
const MaxBatchSize = 1000

// DefaultBatchSize is the number of records sent per create/update call.
const DefaultBatchSize = 999

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	API      APIConfig      `toml:"api"`
	Form     FormConfig     `toml:"form"`
	List     ListConfig     `toml:"list"`
	Database DatabaseConfig `toml:"database"`
	Metrics  MetricsConfig  `toml:"metrics"`
}

// APIConfig contains iFormBuilder API credentials and client tuning.
type APIConfig struct {
	ServerName   string  `toml:"server_name"`
	ProfileID    int64   `toml:"profile_id"`
	ClientKey    string  `toml:"client_key"`
	ClientSecret string  `toml:"client_secret"`
	BaseURL      string  `toml:"base_url"`
	RateLimit    float64 `toml:"rate_limit"`
}

// FormConfig contains page (form) sync options.
//
// Pointer fields are optional; nil means the option was not given.
type FormConfig struct {
	CSVIn       string  `toml:"csv_in"`
	FormName    string  `toml:"form_name"`
	FormLabel   string  `toml:"form_label"`
	FieldLength int     `toml:"field_length"`
	UIDCol      *string `toml:"uid_col"`
	Update      *bool   `toml:"update"`
	Delete      *bool   `toml:"delete"`
	BatchSize   int     `toml:"batch_size"`
}

// ListConfig contains option list sync options.
type ListConfig struct {
	CSVIn     string `toml:"csv_in"`
	Update    *bool  `toml:"update"`
	BatchSize int    `toml:"batch_size"`
}

// DatabaseConfig contains run journal database settings. An empty path disables the journal.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// MetricsConfig controls optional Datadog submission of run metrics.
type MetricsConfig struct {
	Datadog bool     `toml:"datadog"`
	JobName string   `toml:"job_name"`
	Tags    []string `toml:"tags"`
}

// APISettings is the validated, immutable view of [APIConfig].
type APISettings struct {
	ServerName   string
	ProfileID    int64
	ClientKey    string
	ClientSecret string
	BaseURL      string
	RateLimit    float64
}

// FormSettings is the validated, immutable input of a page sync run.
type FormSettings struct {
	API         APISettings
	CSVPath     string
	FormName    string
	FormLabel   string
	FieldLength int
	UIDCol      string // empty when no unique ID column is configured
	Update      bool
	Delete      bool
	BatchSize   int
	Warnings    []string // options that were set but have no effect
}

// Keyed reports whether records are correlated by a unique ID column.
func (s FormSettings) Keyed() bool { return s.UIDCol != "" }

// ListSettings is the validated, immutable input of an option list sync run.
type ListSettings struct {
	API       APISettings
	CSVPath   string
	Update    bool
	BatchSize int
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys the file sets but [Config] does not know are reported as an error so typos do not silently disable options.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingConfig, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	md, err := toml.Decode(string(data), &config)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("%w: unknown options: %s", ErrInvalidConfig, strings.Join(keys, ", "))
	}

	return &config, nil
}

// DefaultConfig returns a Config with defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadEnvFile loads a .env file from dir into the process environment when one exists.
// Variables already set in the environment are left untouched.
func LoadEnvFile(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides API credentials with IFB_* environment variables.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("IFB_SERVER_NAME"); v != "" {
		c.API.ServerName = v
	}
	if v := os.Getenv("IFB_CLIENT_KEY"); v != "" {
		c.API.ClientKey = v
	}
	if v := os.Getenv("IFB_CLIENT_SECRET"); v != "" {
		c.API.ClientSecret = v
	}
	if v := os.Getenv("IFB_PROFILE_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: IFB_PROFILE_ID=%q is not an integer", ErrInvalidConfig, v)
		}
		c.API.ProfileID = id
	}
	return nil
}

// FormSettings validates the [api] and [form] sections and returns the settings of a page sync.
// Paths are resolved against dir. Every problem found is reported in a single error.
func (c *Config) FormSettings(dir string) (FormSettings, error) {
	var errs []string

	s := FormSettings{
		API:         c.apiSettings(&errs),
		FormName:    strings.TrimSpace(c.Form.FormName),
		FormLabel:   strings.TrimSpace(c.Form.FormLabel),
		FieldLength: c.Form.FieldLength,
		BatchSize:   batchSize(c.Form.BatchSize, "form", &errs),
	}
	s.CSVPath = inputPath(dir, c.Form.CSVIn, "form", &errs)

	if s.FormName == "" {
		errs = append(errs, "form.form_name is required")
	}
	if s.FormLabel == "" {
		errs = append(errs, "form.form_label is required")
	}
	if s.FieldLength <= 0 {
		errs = append(errs, "form.field_length must be a positive integer")
	}

	if c.Form.UIDCol != nil {
		s.UIDCol = SanitizeColumn(*c.Form.UIDCol)
		if s.UIDCol == "" {
			errs = append(errs, "form.uid_col must not be empty when set")
		}
	}

	switch {
	case s.Keyed():
		if c.Form.Update != nil {
			s.Update = *c.Form.Update
		}
		if c.Form.Delete != nil {
			s.Delete = *c.Form.Delete
		}
	case c.Form.Update != nil || c.Form.Delete != nil:
		s.Warnings = append(s.Warnings, "form.update and form.delete are ignored without form.uid_col")
	}

	if len(errs) > 0 {
		return FormSettings{}, fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(errs, "; "))
	}
	return s, nil
}

// ListSettings validates the [api] and [list] sections and returns the settings of an option list sync.
func (c *Config) ListSettings(dir string) (ListSettings, error) {
	var errs []string

	s := ListSettings{
		API:       c.apiSettings(&errs),
		Update:    true,
		BatchSize: batchSize(c.List.BatchSize, "list", &errs),
	}
	s.CSVPath = inputPath(dir, c.List.CSVIn, "list", &errs)
	if c.List.Update != nil {
		s.Update = *c.List.Update
	}

	if len(errs) > 0 {
		return ListSettings{}, fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(errs, "; "))
	}
	return s, nil
}

func (c *Config) apiSettings(errs *[]string) APISettings {
	s := APISettings{
		ServerName:   strings.TrimSpace(c.API.ServerName),
		ProfileID:    c.API.ProfileID,
		ClientKey:    strings.TrimSpace(c.API.ClientKey),
		ClientSecret: strings.TrimSpace(c.API.ClientSecret),
		BaseURL:      strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/"),
		RateLimit:    c.API.RateLimit,
	}

	if s.ServerName == "" && s.BaseURL == "" {
		*errs = append(*errs, "api.server_name is required")
	}
	if s.ProfileID <= 0 {
		*errs = append(*errs, "api.profile_id must be a positive integer")
	}
	if s.ClientKey == "" {
		*errs = append(*errs, "api.client_key is required")
	}
	if s.ClientSecret == "" {
		*errs = append(*errs, "api.client_secret is required")
	}
	if s.RateLimit < 0 {
		*errs = append(*errs, "api.rate_limit must not be negative")
	}
	return s
}

func inputPath(dir, name, section string, errs *[]string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		*errs = append(*errs, section+".csv_in is required")
		return ""
	}

	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, name)
	}
	if _, err := os.Stat(path); err != nil {
		*errs = append(*errs, fmt.Sprintf("%s.csv_in: %s: %v", section, path, ErrMissingInput))
	}
	return path
}

func batchSize(n int, section string, errs *[]string) int {
	switch {
	case n == 0:
		return DefaultBatchSize
	case n < 0 || n > MaxBatchSize:
		*errs = append(*errs, fmt.Sprintf("%s.batch_size must be between 1 and %d", section, MaxBatchSize))
	}
	return n
}

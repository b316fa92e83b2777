package figoql

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type RelationKeyStrategy string

const (
	// RELATION_KEY_LAST looks up relation fields by the snake_case name of the deepest segment.
	RELATION_KEY_LAST RelationKeyStrategy = "last"
	// RELATION_KEY_PATH snake_cases every segment and keeps the dots.
	RELATION_KEY_PATH RelationKeyStrategy = "path"
	// RELATION_KEY_TABLE uses the related model's table name from the gorm schema.
	RELATION_KEY_TABLE RelationKeyStrategy = "table"
)

// Parameters names the query-string keys read by NewRequest.
type Parameters struct {
	Filter  string `mapstructure:"filter"`
	Sort    string `mapstructure:"sort"`
	Include string `mapstructure:"include"`
	Fields  string `mapstructure:"fields"`
	Append  string `mapstructure:"append"`
	Page    string `mapstructure:"page"`
}

type Config struct {
	Parameters           Parameters          `mapstructure:"parameters"`
	ArrayDelimiter       string              `mapstructure:"array_delimiter"`
	IgnoreInvalidFilters bool                `mapstructure:"ignore_invalid_filters"`
	GuardFields          bool                `mapstructure:"guard_fields"`
	RelationFieldsKey    RelationKeyStrategy `mapstructure:"relation_fields_key"`
	NamingStrategy       NamingStrategy      `mapstructure:"naming_strategy"`
	DefaultPageSize      int                 `mapstructure:"default_page_size"`
	MaxPageSize          int                 `mapstructure:"max_page_size"`
}

func DefaultConfig() Config {
	return Config{
		Parameters: Parameters{
			Filter:  "filter",
			Sort:    "sort",
			Include: "include",
			Fields:  "fields",
			Append:  "append",
			Page:    "page",
		},
		ArrayDelimiter:    ",",
		GuardFields:       true,
		RelationFieldsKey: RELATION_KEY_LAST,
		NamingStrategy:    NAMING_STRATEGY_SNAKE_CASE,
		DefaultPageSize:   20,
		MaxPageSize:       100,
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("parameters.filter", d.Parameters.Filter)
	v.SetDefault("parameters.sort", d.Parameters.Sort)
	v.SetDefault("parameters.include", d.Parameters.Include)
	v.SetDefault("parameters.fields", d.Parameters.Fields)
	v.SetDefault("parameters.append", d.Parameters.Append)
	v.SetDefault("parameters.page", d.Parameters.Page)
	v.SetDefault("array_delimiter", d.ArrayDelimiter)
	v.SetDefault("ignore_invalid_filters", d.IgnoreInvalidFilters)
	v.SetDefault("guard_fields", d.GuardFields)
	v.SetDefault("relation_fields_key", string(d.RelationFieldsKey))
	v.SetDefault("naming_strategy", string(d.NamingStrategy))
	v.SetDefault("default_page_size", d.DefaultPageSize)
	v.SetDefault("max_page_size", d.MaxPageSize)
}

// LoadConfig reads configuration with the precedence env (FIGOQL_*) > file > defaults.
// An empty path skips the file.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file %q: %w", path, err)
		}
	}

	v.SetEnvPrefix("FIGOQL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	p := c.Parameters
	for name, value := range map[string]string{
		"filter": p.Filter, "sort": p.Sort, "include": p.Include,
		"fields": p.Fields, "append": p.Append, "page": p.Page,
	} {
		if value == "" {
			return fmt.Errorf("parameters.%s must not be empty", name)
		}
	}
	if c.ArrayDelimiter == "" {
		return fmt.Errorf("array_delimiter must not be empty")
	}
	switch c.RelationFieldsKey {
	case RELATION_KEY_LAST, RELATION_KEY_PATH, RELATION_KEY_TABLE:
	default:
		return fmt.Errorf("relation_fields_key must be one of last, path, table; got %q", c.RelationFieldsKey)
	}
	switch c.NamingStrategy {
	case NAMING_STRATEGY_SNAKE_CASE, NAMING_STRATEGY_NO_CHANGE:
	default:
		return fmt.Errorf("naming_strategy must be one of snake_case, no_change; got %q", c.NamingStrategy)
	}
	if c.MaxPageSize < 0 || c.DefaultPageSize < 0 {
		return fmt.Errorf("page sizes must not be negative")
	}
	return nil
}

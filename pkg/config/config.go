package config

import (
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/iancoleman/strcase"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

const (
	configFileENV     = "CONFIG_FILE"
	defaultConfigFile = "/config/mankai.yaml"
	dotenvFileENV     = "DOTENV_FILE"
	defaultDotenvFile = ".env"
)

type Config struct {
	DatabaseConnectRetryCount int           `koanf:"database_connect_retry_count" default:"5"`
	DatabaseConnectRetryDelay time.Duration `koanf:"database_connect_retry_delay" default:"2s"`
	DatabaseBusyTimeout       time.Duration `koanf:"database_busy_timeout" default:"5s"`
	DatabaseMaxRetries        int           `koanf:"database_max_retries" default:"5"`
	DatabaseDebug             bool          `koanf:"database_debug"`
	DatabaseFilePath          string        `koanf:"database_file_path" required:"true"`

	Environment   string `koanf:"environment" default:"production"`
	ServerHost    string `koanf:"server_host" default:"0.0.0.0"`
	ServerPort    int    `koanf:"server_port" default:"3000"`
	MaxUploadSize string `koanf:"max_upload_size" default:"1G"`

	ImageDir          string `koanf:"image_dir" default:"./data/images"`
	ImageMaxDimension int    `koanf:"image_max_dimension" default:"4096"`
	ImageMaxPixels    int    `koanf:"image_max_pixels" default:"40000000"`
	ImageQuality      int    `koanf:"image_quality" default:"85"`

	JWTSecret       string        `koanf:"jwt_secret" required:"true"`
	AccessTokenTTL  time.Duration `koanf:"access_token_ttl" default:"15m"`
	RefreshTokenTTL time.Duration `koanf:"refresh_token_ttl" default:"168h"`
	EnableAuth      bool          `koanf:"enable_auth" default:"true"`
	AdminEmail      string        `koanf:"admin_email"`
	AdminPassword   string        `koanf:"admin_password"`

	// Orphan image reclamation.
	ReclaimInterval   time.Duration `koanf:"reclaim_interval" default:"1h"`
	ReclaimMinGap     time.Duration `koanf:"reclaim_min_gap" default:"5s"`
	ReclaimMaxRetries int           `koanf:"reclaim_max_retries" default:"3"`
}

// New loads the config from the YAML file at $CONFIG_FILE (if it exists),
// then a dotenv file at $DOTENV_FILE (default .env, if it exists), and finally
// overlays environment variables, e.g. DATABASE_FILE_PATH overrides
// database_file_path.
func New() (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, errors.WithStack(err)
	}

	k := koanf.New(".")

	configFile := os.Getenv(configFileENV)
	if configFile == "" {
		configFile = defaultConfigFile
	}
	if _, err := os.Stat(configFile); err == nil {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "failed to load config file %s", configFile)
		}
	}

	dotenvFile := os.Getenv(dotenvFileENV)
	if dotenvFile == "" {
		dotenvFile = defaultDotenvFile
	}
	if _, err := os.Stat(dotenvFile); err == nil {
		vars, err := godotenv.Read(dotenvFile)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to load dotenv file %s", dotenvFile)
		}
		for key, value := range vars {
			if err := k.Set(strings.ToLower(key), value); err != nil {
				return nil, errors.WithStack(err)
			}
		}
	}

	err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(s)
	}), nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, errors.WithStack(err)
	}

	if err := checkRequired(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// NewForTest returns a config suitable for tests: in-memory database, local
// host, and a throwaway JWT secret.
func NewForTest() *Config {
	cfg := &Config{}
	_ = defaults.Set(cfg)
	cfg.DatabaseFilePath = ":memory:"
	cfg.ServerHost = "127.0.0.1"
	cfg.JWTSecret = "test-secret"
	cfg.DatabaseConnectRetryDelay = 0
	cfg.Environment = "test"
	return cfg
}

func checkRequired(cfg *Config) error {
	missing := []string{}

	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Tag.Get("required") != "true" {
			continue
		}
		if !v.Field(i).IsZero() {
			continue
		}
		key := toSnakeCase(field.Name)
		missing = append(missing, strings.ToUpper(key)+" ("+key+")")
	}

	if len(missing) > 0 {
		return errors.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}
	return nil
}

func toSnakeCase(s string) string {
	return strcase.ToSnake(s)
}

package config

import (
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/iancoleman/strcase"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

const (
	configFileENV     = "CONFIG_FILE"
	defaultConfigFile = "/config/bibliotech.yaml"
)

type Config struct {
	DatabaseBusyTimeout       time.Duration `koanf:"database_busy_timeout"`
	DatabaseConnectRetryCount int           `koanf:"database_connect_retry_count"`
	DatabaseConnectRetryDelay time.Duration `koanf:"database_connect_retry_delay"`
	DatabaseDebug             bool          `koanf:"database_debug"`
	DatabaseFilePath          string        `koanf:"database_file_path" required:"true"`
	DatabaseMaxRetries        int           `koanf:"database_max_retries"`
	Hostname                  string        `koanf:"-"`
	JWTSecret                 string        `koanf:"jwt_secret" required:"true"`
	ServerHost                string        `koanf:"server_host"`
	ServerPort                int           `koanf:"server_port"`
	WorkerProcesses           int           `koanf:"worker_processes"`

	// Uploaded spreadsheets are kept under UploadsDir/imports/<type>.
	UploadsDir     string `koanf:"uploads_dir"`
	MaxUploadBytes int64  `koanf:"max_upload_bytes"`

	RoleCacheTTL time.Duration `koanf:"role_cache_ttl"`
	RedisURL     string        `koanf:"redis_url"`
	AMQPURL      string        `koanf:"amqp_url"`

	// Zero disables the background sweep; overdue loans are still marked
	// whenever dashboards and loan lists are read.
	OverdueSweepInterval time.Duration `koanf:"overdue_sweep_interval"`

	LoanPeriodDays  int `koanf:"loan_period_days"`
	MaxLoanDays     int `koanf:"max_loan_days"`
	MaxPendingLoans int `koanf:"max_pending_loans"`

	LoginRateLimit float64 `koanf:"login_rate_limit"`
	LoginRateBurst int     `koanf:"login_rate_burst"`
}

func defaults() *Config {
	return &Config{
		DatabaseBusyTimeout:       5 * time.Second,
		DatabaseConnectRetryCount: 5,
		DatabaseConnectRetryDelay: 2 * time.Second,
		DatabaseMaxRetries:        5,
		ServerHost:                "0.0.0.0",
		ServerPort:                3689,
		WorkerProcesses:           2,
		UploadsDir:                "/data/uploads",
		MaxUploadBytes:            50 << 20,
		RoleCacheTTL:              5 * time.Minute,
		LoanPeriodDays:            30,
		MaxLoanDays:               90,
		MaxPendingLoans:           3,
		LoginRateLimit:            1,
		LoginRateBurst:            10,
	}
}

// New loads the config from the YAML file named by CONFIG_FILE (if it exists)
// and then applies environment variable overrides. Env vars use the upper-cased
// form of the YAML keys, e.g. DATABASE_FILE_PATH.
func New() (*Config, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	k := koanf.New(".")

	path := os.Getenv(configFileENV)
	if path == "" {
		path = defaultConfigFile
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "failed to load config file %s", path)
		}
	}

	keys := knownKeys()
	err = k.Load(env.Provider("", ".", func(s string) string {
		key := strings.ToLower(s)
		if _, ok := keys[key]; !ok {
			return ""
		}
		return key
	}), nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	cfg := defaults()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, errors.WithStack(err)
	}
	cfg.Hostname = hostname

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// NewForTest returns a config suitable for tests that don't touch the
// filesystem or environment.
func NewForTest() *Config {
	cfg := defaults()
	cfg.DatabaseFilePath = ":memory:"
	cfg.JWTSecret = "test-secret"
	cfg.ServerHost = "127.0.0.1"
	cfg.UploadsDir = os.TempDir()
	return cfg
}

func (cfg *Config) validate() error {
	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Tag.Get("required") != "true" {
			continue
		}
		if v.Field(i).IsZero() {
			key := toSnakeCase(f.Name)
			return errors.Errorf("missing required config: set %s or %s in the config file", strings.ToUpper(key), key)
		}
	}
	return nil
}

func knownKeys() map[string]struct{} {
	keys := map[string]struct{}{}
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("koanf")
		if tag == "" || tag == "-" {
			continue
		}
		keys[tag] = struct{}{}
	}
	return keys
}

func toSnakeCase(s string) string {
	return strcase.ToSnake(s)
}

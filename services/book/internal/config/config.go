package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"bookshelf/pkg/store"
)

// ConfigPath is the default config file location.
var ConfigPath = "config.yaml"

const (
	ProfileDev  = "dev"
	ProfileTest = "test"

	defaultMaxBodyBytes = 1 << 20
)

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port                    string   `yaml:"port" validate:"required,numeric"`
	LogLevel                string   `yaml:"logLevel" validate:"omitempty,oneof=debug info warn warning error"`
	Profile                 string   `yaml:"profile" validate:"omitempty,oneof=dev test"`
	Debug                   bool     `yaml:"debug"`
	Testing                 bool     `yaml:"testing"`
	StoreBackend            string   `yaml:"storeBackend" validate:"oneof=mongo postgres memory"`
	MongoURI                string   `yaml:"mongoURI"`
	MongoHost               string   `yaml:"mongoHost"`
	MongoPort               int      `yaml:"mongoPort" validate:"min=1,max=65535"`
	MongoDBName             string   `yaml:"mongoDBName"`
	MongoTestDBName         string   `yaml:"mongoTestDBName"`
	DatabaseURL             string   `yaml:"databaseURL" validate:"required_if=StoreBackend postgres"`
	RedisAddr               string   `yaml:"redisAddr" validate:"omitempty,hostname_port"`
	RedisPassword           string   `yaml:"redisPassword"`
	WriteRateLimitPerMinute int      `yaml:"writeRateLimitPerMinute" validate:"gte=0"`
	MaxBodyBytes            int64    `yaml:"maxBodyBytes" validate:"gt=0"`
	TrustedProxies          []string `yaml:"trustedProxies" validate:"dive,cidr|ip"`
}

// Defaults returns the configuration used when no file or env says otherwise.
func Defaults() FileConfig {
	return FileConfig{
		Port:                    "8080",
		LogLevel:                "info",
		StoreBackend:            store.BackendMongo,
		MongoHost:               "localhost",
		MongoPort:               27017,
		MongoDBName:             "books",
		MongoTestDBName:         "books-test",
		WriteRateLimitPerMinute: 60,
		MaxBodyBytes:            defaultMaxBodyBytes,
	}
}

// Load reads config from path. An empty path means BOOKS_CONFIG or, failing
// that, ConfigPath; only an explicitly named file has to exist.
func Load(path string) (FileConfig, error) {
	cfg := Defaults()
	explicit := path != ""
	if path == "" {
		if v := strings.TrimSpace(os.Getenv("BOOKS_CONFIG")); v != "" {
			path = v
			explicit = true
		} else {
			path = ConfigPath
		}
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	applyProfile(&cfg)
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *FileConfig) error {
	setString := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	setString("PORT", &cfg.Port)
	setString("LOG_LEVEL", &cfg.LogLevel)
	setString("BOOKS_PROFILE", &cfg.Profile)
	setString("STORE_BACKEND", &cfg.StoreBackend)
	setString("MONGO_URI", &cfg.MongoURI)
	setString("MONGO_HOST", &cfg.MongoHost)
	setString("MONGO_DBNAME", &cfg.MongoDBName)
	setString("DATABASE_URL", &cfg.DatabaseURL)
	setString("REDIS_ADDR", &cfg.RedisAddr)
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("TRUSTED_PROXIES"); v != "" {
		cfg.TrustedProxies = splitCSV(v)
	}

	for key, dst := range map[string]*bool{
		"BOOKS_DEBUG":   &cfg.Debug,
		"BOOKS_TESTING": &cfg.Testing,
	} {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("config: %s: %w", key, err)
			}
			*dst = b
		}
	}
	for key, dst := range map[string]*int{
		"MONGO_PORT":                  &cfg.MongoPort,
		"WRITE_RATE_LIMIT_PER_MINUTE": &cfg.WriteRateLimitPerMinute,
	} {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("config: %s: %w", key, err)
			}
			*dst = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("MAX_BODY_BYTES")); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("config: MAX_BODY_BYTES: %w", err)
		}
		cfg.MaxBodyBytes = n
	}
	return nil
}

// applyProfile folds the named profile into the flags it implies.
func applyProfile(cfg *FileConfig) {
	cfg.Profile = strings.ToLower(strings.TrimSpace(cfg.Profile))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.StoreBackend = store.NormalizeBackend(cfg.StoreBackend)
	switch cfg.Profile {
	case ProfileDev:
		cfg.Debug = true
	case ProfileTest:
		cfg.Testing = true
		cfg.Debug = false
	}
}

// EffectiveLogLevel forces debug logging when Debug is on.
func (c FileConfig) EffectiveLogLevel() string {
	if c.Debug {
		return "debug"
	}
	return c.LogLevel
}

// DatabaseName picks the isolated test database while Testing is on.
func (c FileConfig) DatabaseName() string {
	if c.Testing {
		return c.MongoTestDBName
	}
	return c.MongoDBName
}

// MongoConnectionURI returns MongoURI, or one built from host and port.
func (c FileConfig) MongoConnectionURI() string {
	if uri := strings.TrimSpace(c.MongoURI); uri != "" {
		return uri
	}
	return "mongodb://" + net.JoinHostPort(c.MongoHost, strconv.Itoa(c.MongoPort))
}

// StoreConfig maps the file config onto the store factory's options.
func (c FileConfig) StoreConfig() store.Config {
	return store.Config{
		Backend:       c.StoreBackend,
		MongoURI:      c.MongoConnectionURI(),
		MongoDatabase: c.DatabaseName(),
		DatabaseURL:   c.DatabaseURL,
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validateConfig(cfg FileConfig) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			if fe.Param() != "" {
				return fmt.Errorf("config: %s %q fails %s=%s", fe.Field(), fmt.Sprint(fe.Value()), fe.Tag(), fe.Param())
			}
			return fmt.Errorf("config: %s %q fails %s", fe.Field(), fmt.Sprint(fe.Value()), fe.Tag())
		}
		return fmt.Errorf("config: %w", err)
	}
	if port, _ := strconv.Atoi(cfg.Port); port <= 0 || port > 65535 {
		return fmt.Errorf("config: port %q is out of range", cfg.Port)
	}
	if cfg.StoreBackend == store.BackendMongo {
		if strings.TrimSpace(cfg.MongoURI) == "" && strings.TrimSpace(cfg.MongoHost) == "" {
			return errors.New("config: mongoHost is required when mongoURI is unset")
		}
		if strings.TrimSpace(cfg.DatabaseName()) == "" {
			return errors.New("config: mongo database name is required")
		}
	}
	return nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

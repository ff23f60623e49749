package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendScylla = "scylla"
)

type Config struct {
	Port           string `mapstructure:"port"`
	GinMode        string `mapstructure:"gin_mode"`
	LogLevel       string `mapstructure:"log_level"`
	StorageBackend string `mapstructure:"storage_backend"`

	Redis   RedisConfig   `mapstructure:"redis"`
	Scylla  ScyllaConfig  `mapstructure:"scylla"`
	Elastic ElasticConfig `mapstructure:"elastic"`
	Minio   MinioConfig   `mapstructure:"minio"`
	SMTP    SMTPConfig    `mapstructure:"smtp"`

	JWTSecret      string   `mapstructure:"jwt_secret"`
	TokenFormat    string   `mapstructure:"token_format"`
	PasswordHasher string   `mapstructure:"password_hasher"`
	AdminAPIKey    string   `mapstructure:"admin_api_key"`
	CORSOrigins    []string `mapstructure:"cors_origins"`

	TaxRate               float64       `mapstructure:"tax_rate"`
	FreeShippingThreshold float64       `mapstructure:"free_shipping_threshold"`
	PageSize              int           `mapstructure:"page_size"`
	ClientDataTTL         time.Duration `mapstructure:"client_data_ttl"`

	LoginRateLimit  int           `mapstructure:"login_rate_limit"`
	LoginRateWindow time.Duration `mapstructure:"login_rate_window"`

	// EnvFileLoaded indique si un fichier .env a été lu.
	EnvFileLoaded bool `mapstructure:"-"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type ScyllaConfig struct {
	Hosts    []string `mapstructure:"hosts"`
	Keyspace string   `mapstructure:"keyspace"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
}

type ElasticConfig struct {
	URL      string `mapstructure:"url"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Index    string `mapstructure:"index"`
}

type MinioConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

var defaults = map[string]any{
	"port":            "8080",
	"gin_mode":        "release",
	"log_level":       "info",
	"storage_backend": BackendMemory,

	"redis.host":     "",
	"redis.password": "",
	"redis.db":       0,

	"scylla.hosts":    []string{},
	"scylla.keyspace": "storefront",
	"scylla.username": "",
	"scylla.password": "",

	"elastic.url":      "",
	"elastic.user":     "",
	"elastic.password": "",
	"elastic.index":    "products",

	"minio.endpoint":   "",
	"minio.access_key": "",
	"minio.secret_key": "",
	"minio.bucket":     "storefront-images",
	"minio.use_ssl":    false,

	"smtp.host":     "",
	"smtp.port":     587,
	"smtp.username": "",
	"smtp.password": "",
	"smtp.from":     "no-reply@storefront.local",

	"jwt_secret":      "",
	"token_format":    "base64",
	"password_hasher": "base64",
	"admin_api_key":   "",
	"cors_origins":    []string{"http://localhost:3000", "http://localhost:5173"},

	"tax_rate":                0.08,
	"free_shipping_threshold": 50.0,
	"page_size":               12,
	"client_data_ttl":         30 * 24 * time.Hour,

	"login_rate_limit":  10,
	"login_rate_window": time.Minute,
}

// Load lit envFile (absent toléré) puis l'environnement : REDIS_HOST alimente
// redis.host, TAX_RATE alimente tax_rate, etc.
func Load(envFile string) (*Config, error) {
	loaded := false
	if envFile != "" {
		if err := godotenv.Load(envFile); err == nil {
			loaded = true
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("lecture %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("configuration invalide: %w", err)
	}
	cfg.EnvFileLoaded = loaded
	cfg.Scylla.Hosts = splitList(cfg.Scylla.Hosts)
	cfg.CORSOrigins = splitList(cfg.CORSOrigins)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// splitList accepte aussi une liste passée en une seule chaîne "a, b".
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (c *Config) Validate() error {
	switch c.StorageBackend {
	case BackendMemory:
	case BackendRedis:
		if c.Redis.Host == "" {
			return errors.New("REDIS_HOST requis pour STORAGE_BACKEND=redis")
		}
	case BackendScylla:
		if len(c.Scylla.Hosts) == 0 {
			return errors.New("SCYLLA_HOSTS requis pour STORAGE_BACKEND=scylla")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND inconnu: %q", c.StorageBackend)
	}

	if strings.EqualFold(c.TokenFormat, "jwt") && c.JWTSecret == "" {
		return errors.New("JWT_SECRET requis pour TOKEN_FORMAT=jwt")
	}
	if c.TaxRate < 0 || c.FreeShippingThreshold < 0 || c.PageSize < 0 {
		return errors.New("TAX_RATE, FREE_SHIPPING_THRESHOLD et PAGE_SIZE doivent être positifs")
	}
	return nil
}

func (c *Config) Debug() bool {
	return c.GinMode == "debug"
}

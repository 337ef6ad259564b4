package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const DefaultPath = "./configs/config.local.yaml"

type HTTP struct {
	Host            string
	Port            int
	ReadTimeoutSec  int
	WriteTimeoutSec int
	IdleTimeoutSec  int
}
type AdminHTTP struct {
	Host string
	Port int
}

type App struct {
	Name  string
	Env   string
	HTTP  HTTP
	Admin AdminHTTP
}

type Rotate struct {
	Enable     bool
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

type Log struct {
	Level  string
	JSON   bool
	Rotate Rotate
}

// JWT 设备令牌（只标识设备，不携带用户身份）
type JWT struct {
	Secret            string
	Issuer            string
	AccessTokenTTLMin int
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type DB struct {
	Driver             string
	DSN                string
	Username           string
	Password           string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	AutoMigrate        bool
	LogLevel           string
}

type Session struct {
	Store       string `mapstructure:"store"` // redis | memory
	KeyPrefix   string `mapstructure:"key_prefix"`
	IOTimeoutMs int    `mapstructure:"io_timeout_ms"`
	MaxSessions int    `mapstructure:"max_sessions"`
}

func (s Session) IOTimeout() time.Duration { return time.Duration(s.IOTimeoutMs) * time.Millisecond }

type Directory struct {
	Source string `mapstructure:"source"` // static | database
}

type Cache struct {
	Prefix          string `mapstructure:"prefix"`
	DashboardTTLSec int    `mapstructure:"dashboard_ttl_sec"`
}

func (c Cache) DashboardTTL() time.Duration { return time.Duration(c.DashboardTTLSec) * time.Second }

type CORS struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

type Config struct {
	App       App
	Log       Log
	JWT       JWT
	DB        DB
	Redis     Redis     `mapstructure:"redis"`
	Session   Session   `mapstructure:"session"`
	Directory Directory `mapstructure:"directory"`
	Cache     Cache     `mapstructure:"cache"`
	CORS      CORS      `mapstructure:"cors"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "freshtrack")
	v.SetDefault("app.env", "local")
	v.SetDefault("app.http.host", "0.0.0.0")
	v.SetDefault("app.http.port", 8080)
	v.SetDefault("app.http.readtimeoutsec", 5)
	v.SetDefault("app.http.writetimeoutsec", 10)
	v.SetDefault("app.http.idletimeoutsec", 60)
	v.SetDefault("app.admin.host", "127.0.0.1")
	v.SetDefault("app.admin.port", 8081)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("log.rotate.filename", "logs/freshtrack.log")
	v.SetDefault("log.rotate.maxsizemb", 100)
	v.SetDefault("log.rotate.maxbackups", 7)
	v.SetDefault("log.rotate.maxagedays", 30)

	v.SetDefault("jwt.issuer", "freshtrack")
	v.SetDefault("jwt.accesstokenttlmin", 60*24*30)

	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "file:freshtrack.db?_pragma=foreign_keys(1)")
	v.SetDefault("db.automigrate", true)
	v.SetDefault("db.loglevel", "warn")

	v.SetDefault("redis.addr", "127.0.0.1:6379")

	v.SetDefault("session.store", "redis")
	v.SetDefault("session.key_prefix", "restaurant_")
	v.SetDefault("session.io_timeout_ms", 3000)
	v.SetDefault("session.max_sessions", 1024)

	v.SetDefault("directory.source", "static")

	v.SetDefault("cache.prefix", "freshtrack:cache:")
	v.SetDefault("cache.dashboard_ttl_sec", 30)
}

// Load 读取 YAML + APP_ 前缀环境变量。未显式指定路径且默认文件不存在时只用默认值。
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		path = os.Getenv("CONFIG_PATH")
		explicit = path != ""
	}
	if path == "" {
		path = DefaultPath
	}
	if _, err := os.Stat(path); err == nil || explicit {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Session.Store {
	case "redis", "memory":
	default:
		errs = append(errs, fmt.Errorf("session.store: unsupported %q", c.Session.Store))
	}
	switch c.Directory.Source {
	case "static", "database":
	default:
		errs = append(errs, fmt.Errorf("directory.source: unsupported %q", c.Directory.Source))
	}
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("jwt.secret: required"))
	}
	if c.Session.MaxSessions <= 0 {
		errs = append(errs, errors.New("session.max_sessions: must be positive"))
	}
	return errors.Join(errs...)
}

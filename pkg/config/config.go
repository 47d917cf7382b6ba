package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPath    = "config/mirror.yaml"
	DefaultFeedURL = "https://gallery.azure.com/Microsoft.Gallery/galleryitems/"

	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

type StoreConfig struct {
	Driver     string        `yaml:"driver"`
	Endpoint   string        `yaml:"endpoint"` // mongodb://host:port
	Key        string        `yaml:"key"`      // 读写凭据
	Username   string        `yaml:"username"`
	AuthSource string        `yaml:"authSource"`
	Database   string        `yaml:"database"`
	Collection string        `yaml:"collection"`
	Timeout    time.Duration `yaml:"timeout"`
}

type FeedConfig struct {
	URL            string        `yaml:"url"`
	APIVersion     string        `yaml:"apiVersion"`
	IncludePreview *bool         `yaml:"includePreview"`
	Timeout        time.Duration `yaml:"timeout"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

type APIConfig struct {
	Address string `yaml:"address"`
}

type Config struct {
	Store StoreConfig `yaml:"store"`
	Feed  FeedConfig  `yaml:"feed"`
	Log   LogConfig   `yaml:"log"`
	API   APIConfig   `yaml:"api"`
}

const envPrefix = "MIRROR"

// newEnv 读取 MIRROR_ 前缀的环境变量，store.endpoint 对应 MIRROR_STORE_ENDPOINT
func newEnv() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Path 返回配置文件路径：MIRROR_CONFIG 优先
func Path() string {
	if p := newEnv().GetString("config"); p != "" {
		return p
	}
	return DefaultPath
}

// LoadConfig 读取 yaml 配置，文件不存在时只用默认值和环境变量
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// applyEnv 用非空环境变量覆盖文件中的值
func applyEnv(cfg *Config) {
	v := newEnv()
	overrides := map[string]*string{
		"store.endpoint": &cfg.Store.Endpoint,
		"store.key":      &cfg.Store.Key,
		"store.username": &cfg.Store.Username,
		"store.driver":   &cfg.Store.Driver,
		"feed.url":       &cfg.Feed.URL,
		"log.level":      &cfg.Log.Level,
	}
	for key, dst := range overrides {
		if val := v.GetString(key); val != "" {
			*dst = val
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = DriverMongo
	}
	if cfg.Store.AuthSource == "" {
		cfg.Store.AuthSource = "admin"
	}
	if cfg.Store.Database == "" {
		cfg.Store.Database = "AzureMPDB"
	}
	if cfg.Store.Collection == "" {
		cfg.Store.Collection = "azureMPCollection"
	}
	if cfg.Store.Timeout <= 0 {
		cfg.Store.Timeout = 10 * time.Second
	}
	if cfg.Feed.URL == "" {
		cfg.Feed.URL = DefaultFeedURL
	}
	if cfg.Feed.APIVersion == "" {
		cfg.Feed.APIVersion = "2015-04-01"
	}
	if cfg.Feed.IncludePreview == nil {
		preview := true
		cfg.Feed.IncludePreview = &preview
	}
	if cfg.Feed.Timeout <= 0 {
		cfg.Feed.Timeout = 60 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.API.Address == "" {
		cfg.API.Address = ":8080"
	}
}

func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverMongo:
		if c.Store.Endpoint == "" {
			return errors.New("store.endpoint is required (set MIRROR_STORE_ENDPOINT)")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("store.driver must be %q or %q, got %q", DriverMongo, DriverMemory, c.Store.Driver)
	}
	if (c.Store.Username == "") != (c.Store.Key == "") {
		return errors.New("store.username and store.key must be set together")
	}
	return nil
}

// 包 config 负责加载与校验应用配置（settings.yaml），
// 对外提供结构体 Config 及默认值/合法性校验；
// 支持 .env 与环境变量覆盖数据库/向量库连接参数。
package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// 仅保留当前需要的字段，避免过度设计（KISS/YAGNI）。
type Config struct {
	Sources      []Source    `yaml:"SOURCES"`
	DaysBack     int         `yaml:"DAYS_BACK"`
	Database     Database    `yaml:"DATABASE"`
	Qdrant       Qdrant      `yaml:"QDRANT"`
	Fetch        Fetch       `yaml:"FETCH"`
	Proxy        Proxy       `yaml:"PROXY"`
	DryRun       bool        `yaml:"DRY_RUN"`
	ResetOnStart bool        `yaml:"RESET_ON_START"`
	LogLevel     string      `yaml:"LOG_LEVEL"`
	LogFormat    string      `yaml:"LOG_FORMAT"` // text|json|pretty
	LogLocale    string      `yaml:"LOG_LOCALE"` // zh-CN|en
	LogColor     string      `yaml:"LOG_COLOR"`  // auto|always|never
}

type Source struct {
	// Name：来源标识（sanskriti|pib）；Theme：rules.yaml 中的解析预设名
	// Disabled 零值即启用，便于 YAML 省略
	Name     string `yaml:"name"`
	Theme    string `yaml:"theme"`
	Disabled bool   `yaml:"disabled"`
	// FeedURL：仅 RSS 型来源使用（如 PIB），HTML 型来源留空
	FeedURL string `yaml:"feed_url"`
	// BaseURL：HTML 型来源的日期页前缀
	BaseURL string `yaml:"base_url"`
}

type Database struct {
	Type string `yaml:"type"` // sqlite (default)
	DSN  string `yaml:"dsn"`  // ./articles.db
}

type Qdrant struct {
	// Enabled 显式开启才写向量库；URL 可被 CAS_QDRANT_URL 覆盖
	Enabled    bool   `yaml:"enabled"`
	URL        string `yaml:"url"`
	Collection string `yaml:"collection"`
	VectorSize int    `yaml:"vector_size"`
}

type Fetch struct {
	Retry      int `yaml:"retry"`
	TimeoutSec int `yaml:"timeout_sec"`
	// DelayMS：同一来源连续请求间的最小礼貌间隔（毫秒）
	DelayMS int `yaml:"delay_ms"`
}

type Proxy struct {
	HTTP  string `yaml:"http"`
	HTTPS string `yaml:"https"`
}

func Load(path string) (*Config, error) {
	// Load 从文件读取 YAML 并反序列化为 Config，同时进行基础校验与默认值填充。
	// .env 若存在则先加载（不存在不报错），随后应用环境变量覆盖。
	_ = godotenv.Load()
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("unmarshal config %s: %w", path, err)
	}
	c.applyEnv()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// applyEnv 用环境变量覆盖连接类配置（部署环境优先于文件）。
func (c *Config) applyEnv() {
	if v := os.Getenv("CAS_DB_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("CAS_QDRANT_URL"); v != "" {
		c.Qdrant.URL = v
	}
}

func (c *Config) Validate() error {
	// Validate 负责合法性检查与默认值设置，避免在业务层分散判空逻辑。
	if c.DaysBack < 0 {
		return errors.New("DAYS_BACK must be >= 0")
	}
	if c.DaysBack == 0 {
		c.DaysBack = 7
	}
	if len(c.Sources) == 0 {
		c.Sources = []Source{
			{Name: "sanskriti", Theme: "sanskriti"},
			{Name: "pib", Theme: "pib"},
		}
	}
	for i := range c.Sources {
		if c.Sources[i].Name == "" {
			return fmt.Errorf("SOURCES[%d]: name required", i)
		}
		if c.Sources[i].Theme == "" {
			c.Sources[i].Theme = c.Sources[i].Name
		}
	}
	if c.Database.Type == "" {
		c.Database.Type = "sqlite"
	}
	if c.Database.Type != "sqlite" {
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}
	if c.Database.DSN == "" {
		c.Database.DSN = "./articles.db"
	}
	if c.Qdrant.URL == "" {
		c.Qdrant.URL = "http://localhost:6333"
	}
	if c.Qdrant.Collection == "" {
		c.Qdrant.Collection = "current_affairs"
	}
	if c.Qdrant.VectorSize <= 0 {
		c.Qdrant.VectorSize = 768
	}
	if c.Fetch.Retry < 0 {
		c.Fetch.Retry = 2
	}
	if c.Fetch.TimeoutSec <= 0 {
		c.Fetch.TimeoutSec = 25
	}
	if c.Fetch.DelayMS <= 0 {
		// 对第三方站点的强制礼貌间隔，默认 1 秒
		c.Fetch.DelayMS = 1000
	}
	if c.LogFormat == "" {
		c.LogFormat = "pretty"
	}
	if c.LogLocale == "" {
		c.LogLocale = "zh-CN"
	}
	if c.LogColor == "" {
		c.LogColor = "auto"
	}
	// ResetOnStart/DryRun 默认为 false，显式开启时才生效
	return nil
}

// EnabledSources 返回未被禁用的来源配置。
func (c *Config) EnabledSources() []Source {
	out := make([]Source, 0, len(c.Sources))
	for _, s := range c.Sources {
		if !s.Disabled {
			out = append(out, s)
		}
	}
	return out
}

// 包 config：集中读取 .env、可选 YAML 文件与环境变量，产出运行配置
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"newsmap/internal/feed"
	"newsmap/internal/gazetteer"
	"newsmap/internal/utils"
)

// ErrInvalid：配置校验失败
var ErrInvalid = errors.New("invalid config")

// GazetteerConfig：Places 非空时替换内置地名表，Extra 追加到地名表
type GazetteerConfig struct {
	Places []string `yaml:"places"`
	Extra  []string `yaml:"extra"`
}

// BoundaryConfig：选区边界文件与名称列
type BoundaryConfig struct {
	File       string `yaml:"file"`
	NameColumn string `yaml:"name_column"`
}

// GeocoderConfig：外部地理编码服务参数
type GeocoderConfig struct {
	URL          string        `yaml:"url"`
	UserAgent    string        `yaml:"user_agent"`
	CountryCodes string        `yaml:"country_codes"`
	MinInterval  time.Duration `yaml:"min_interval"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxAttempts  int           `yaml:"max_attempts"`
	BackoffStep  time.Duration `yaml:"backoff_step"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type PostgresConfig struct {
	Enabled bool   `yaml:"enabled"`
	DSN     string `yaml:"dsn"`
}

type RateLimitConfig struct {
	Enabled bool `yaml:"enabled"`
	QPS     int  `yaml:"qps"`
}

type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertPath string `yaml:"cert_path"`
	KeyPath  string `yaml:"key_path"`
}

// 文档注释：运行配置
// 背景：默认值 → YAML 文件（NEWSMAP_CONFIG）→ 环境变量，后者覆盖前者。
// 约束：Load 返回前必定经过 Validate；远端存储（Redis/PostgreSQL）默认关闭。
type Config struct {
	Addr        string        `yaml:"addr"`
	APIBase     string        `yaml:"api_base"`
	UIDist      string        `yaml:"ui_dist"`
	CacheTTL    time.Duration `yaml:"cache_ttl"`
	RefreshCron string        `yaml:"refresh_cron"`

	Sources    []feed.SourceConfig `yaml:"sources"`
	Gazetteer  GazetteerConfig     `yaml:"gazetteer"`
	Boundaries BoundaryConfig      `yaml:"boundaries"`
	Geocoder   GeocoderConfig      `yaml:"geocoder"`

	Redis     RedisConfig     `yaml:"redis"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	TLS       TLSConfig       `yaml:"tls"`
}

// DefaultUserAgent：地理编码请求的应用标识
const DefaultUserAgent = "singapore_news_mapper_app_v0.5"

// Default：内置默认配置
func Default() *Config {
	return &Config{
		Addr:     ":8080",
		APIBase:  "/api",
		UIDist:   filepath.Join("ui", "dist"),
		CacheTTL: 30 * time.Minute,
		Sources:  feed.DefaultSources(),
		Boundaries: BoundaryConfig{
			File:       filepath.Join("data", "doc.kml"),
			NameColumn: "Name",
		},
		Geocoder: GeocoderConfig{
			UserAgent:   DefaultUserAgent,
			MinInterval: time.Second,
			Timeout:     10 * time.Second,
			MaxAttempts: 3,
			BackoffStep: 2 * time.Second,
		},
		RateLimit: RateLimitConfig{QPS: 200},
		TLS: TLSConfig{
			CertPath: filepath.Join("data", "certs", "server.crt"),
			KeyPath:  filepath.Join("data", "certs", "server.key"),
		},
	}
}

// Load：读取 .env 与 data/env/.env（缺失忽略），再合并 YAML 与环境变量
func Load() (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
	cfg := Default()
	if p := os.Getenv("NEWSMAP_CONFIG"); p != "" {
		if err := cfg.MergeFile(p); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MergeFile：把 YAML 文件中出现的字段覆盖到当前配置
func (c *Config) MergeFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("%w: parse %s: %v", ErrInvalid, path, err)
	}
	return nil
}

// ApplyEnv：环境变量覆盖；数值解析失败时保留原值
func (c *Config) ApplyEnv() {
	setStr(&c.Addr, "ADDR")
	setStr(&c.APIBase, "API_BASE")
	setStr(&c.UIDist, "UI_DIST")
	setSeconds(&c.CacheTTL, "CACHE_TTL_S")
	setStr(&c.RefreshCron, "REFRESH_CRON")

	setStr(&c.Boundaries.File, "BOUNDARIES_FILE")
	setStr(&c.Boundaries.NameColumn, "CONSTITUENCY_COLUMN")

	setStr(&c.Geocoder.URL, "GEOCODER_URL")
	setStr(&c.Geocoder.UserAgent, "GEOCODER_USER_AGENT")
	setStr(&c.Geocoder.CountryCodes, "GEOCODER_COUNTRY_CODES")
	if v, ok := lookupInt("GEOCODER_MIN_INTERVAL_MS"); ok && v >= 0 {
		c.Geocoder.MinInterval = time.Duration(v) * time.Millisecond
	}
	setSeconds(&c.Geocoder.Timeout, "GEOCODER_TIMEOUT_S")
	if v, ok := lookupInt("GEOCODER_MAX_ATTEMPTS"); ok {
		c.Geocoder.MaxAttempts = v
	}
	if v, ok := lookupInt("GEOCODER_BACKOFF_MS"); ok && v >= 0 {
		c.Geocoder.BackoffStep = time.Duration(v) * time.Millisecond
	}

	if host := os.Getenv("REDIS_HOST"); host != "" {
		port := os.Getenv("REDIS_PORT")
		if port == "" {
			port = "6379"
		}
		c.Redis.Enabled = true
		c.Redis.Addr = host + ":" + port
	}
	setStr(&c.Redis.Password, "REDIS_PASS")
	if v, ok := lookupInt("REDIS_DB"); ok && v >= 0 {
		c.Redis.DB = v
	}

	if dsn := os.Getenv("PG_DSN"); dsn != "" {
		c.Postgres.Enabled, c.Postgres.DSN = true, dsn
	} else if os.Getenv("PG_HOST") != "" {
		c.Postgres.Enabled, c.Postgres.DSN = true, utils.BuildPostgresDSNFromEnv()
	}

	setBool(&c.RateLimit.Enabled, "RATE_LIMIT_ENABLED")
	if v, ok := lookupInt("RATE_LIMIT_QPS"); ok && v > 0 {
		c.RateLimit.QPS = v
	}

	setBool(&c.TLS.Enabled, "TLS_ENABLE")
	setStr(&c.TLS.CertPath, "TLS_CERT_PATH")
	setStr(&c.TLS.KeyPath, "TLS_KEY_PATH")
}

// Validate：拒绝无法运行的配置
func (c *Config) Validate() error {
	var errs []string
	if strings.TrimSpace(c.Geocoder.UserAgent) == "" {
		errs = append(errs, "geocoder user agent is empty")
	}
	if c.Geocoder.MaxAttempts < 1 {
		errs = append(errs, fmt.Sprintf("geocoder max attempts %d < 1", c.Geocoder.MaxAttempts))
	}
	if strings.TrimSpace(c.Boundaries.NameColumn) == "" {
		errs = append(errs, "boundary name column is empty")
	}
	if c.CacheTTL <= 0 {
		errs = append(errs, "cache ttl must be positive")
	}
	if !strings.HasPrefix(c.APIBase, "/") {
		errs = append(errs, fmt.Sprintf("api base %q must start with /", c.APIBase))
	} else if strings.HasSuffix(c.APIBase, "/") {
		// 挂载点为 base+"/"，尾部斜杠会让 StripPrefix 之后的路径失去前导 /
		errs = append(errs, fmt.Sprintf("api base %q must not end with /", c.APIBase))
	}
	if c.RefreshCron != "" {
		if _, err := cron.ParseStandard(c.RefreshCron); err != nil {
			errs = append(errs, fmt.Sprintf("refresh cron %q: %v", c.RefreshCron, err))
		}
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		errs = append(errs, "redis enabled without addr")
	}
	if c.Postgres.Enabled && c.Postgres.DSN == "" {
		errs = append(errs, "postgres enabled without dsn")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(errs, "; "))
	}
	return nil
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setSeconds(dst *time.Duration, key string) {
	if v, ok := lookupInt(key); ok && v > 0 {
		*dst = time.Duration(v) * time.Second
	}
}

func lookupInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, false
	}
	return n, true
}

// Names：最终地名表（Places 或内置表，再追加 Extra）
func (g GazetteerConfig) Names() []string {
	base := g.Places
	if len(base) == 0 {
		base = gazetteer.DefaultEntries()
	}
	out := make([]string, 0, len(base)+len(g.Extra))
	out = append(out, base...)
	return append(out, g.Extra...)
}

// Matcher：按配置构建地名匹配器，国家名作为兜底表项
func (g GazetteerConfig) Matcher() *gazetteer.Matcher {
	return gazetteer.New(g.Names(), gazetteer.Fallback(gazetteer.CountryName))
}

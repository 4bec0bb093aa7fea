package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	commoncfg "github.com/nikhilnt1234/Digital-Twin-sub001/common/config"

	"gopkg.in/yaml.v3"
)

const (
	DefaultMedGemmaTimeoutMS = 20000
	DefaultLatestCacheTTL    = 24 * time.Hour
)

// Config digital-twin-api（HTTP API）配置
// 加载顺序：默认值 -> CONFIG_FILE（YAML，可选）-> 环境变量
type Config struct {
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	DBEnabled bool                     `yaml:"db_enabled"`
	Database  commoncfg.DatabaseConfig `yaml:"database"`

	RedisEnabled bool                  `yaml:"redis_enabled"`
	Redis        commoncfg.RedisConfig `yaml:"redis"`

	MQTT MQTTConfig `yaml:"mqtt"`

	Clinical  ClinicalConfig  `yaml:"clinical"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Cache     CacheConfig     `yaml:"cache"`
}

// MQTTConfig caregiver 短信网关（默认禁用）
type MQTTConfig struct {
	Enabled              bool `yaml:"enabled"`
	commoncfg.MQTTConfig `yaml:",inline"`
}

// ClinicalConfig 分析 provider 配置（MEDGEMMA_*）
type ClinicalConfig struct {
	DemoMode  bool   `yaml:"demo_mode"`  // true: 直接使用规则分析器
	Endpoint  string `yaml:"endpoint"`   // 远端模型服务地址，空则总是 fallback
	TimeoutMS int    `yaml:"timeout_ms"` // 远端调用超时
}

// Timeout 远端调用超时（非正数时使用默认 20s）
func (c ClinicalConfig) Timeout() time.Duration {
	if c.TimeoutMS <= 0 {
		return DefaultMedGemmaTimeoutMS * time.Millisecond
	}
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// RateLimitConfig /api/clinical/analyze 限流
type RateLimitConfig struct {
	PerSecond float64 `yaml:"per_second"`
	Burst     int     `yaml:"burst"`
}

// CacheConfig 最新 summary 缓存
type CacheConfig struct {
	LatestKeyPrefix string        `yaml:"latest_key_prefix"`
	LatestTTL       time.Duration `yaml:"latest_ttl"`
	TriageStream    string        `yaml:"triage_stream"`
}

// Default 返回默认配置
func Default() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = ":8080"
	cfg.Log.Level = "info"
	cfg.Log.Format = "json"

	cfg.DBEnabled = false
	cfg.Database = commoncfg.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		Database: "digital_twin",
		SSLMode:  "disable",
	}

	cfg.RedisEnabled = false
	cfg.Redis = commoncfg.RedisConfig{Addr: "localhost:6379"}

	cfg.MQTT.Enabled = false
	cfg.MQTT.Broker = "tcp://localhost:1883"
	cfg.MQTT.ClientID = "digital-twin-api"
	cfg.MQTT.Topic = "digital-twin/caregiver/sms"
	cfg.MQTT.QoS = 1

	cfg.Clinical = ClinicalConfig{
		DemoMode:  true,
		Endpoint:  "",
		TimeoutMS: DefaultMedGemmaTimeoutMS,
	}

	cfg.RateLimit = RateLimitConfig{PerSecond: 5, Burst: 10}
	cfg.Cache = CacheConfig{
		LatestKeyPrefix: "clinical:session:",
		LatestTTL:       DefaultLatestCacheTTL,
		TriageStream:    "clinical:triage:events",
	}
	return cfg
}

// Load 加载配置
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// LoadFile 读取 YAML 配置文件覆盖当前值
func (c *Config) LoadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.HTTP.Addr = getEnv("HTTP_ADDR", c.HTTP.Addr)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)

	c.DBEnabled = parseBool(os.Getenv("DB_ENABLED"), c.DBEnabled)
	c.Database.LoadFromEnv("DB")

	c.RedisEnabled = parseBool(os.Getenv("REDIS_ENABLED"), c.RedisEnabled)
	c.Redis.LoadFromEnv("REDIS")

	c.MQTT.Enabled = parseBool(os.Getenv("MQTT_ENABLED"), c.MQTT.Enabled)
	c.MQTT.MQTTConfig.LoadFromEnv("MQTT")

	// MEDGEMMA_ENDPOINT 优先，兼容旧的 MEDGEMMA_URL
	c.Clinical.DemoMode = parseBool(os.Getenv("MEDGEMMA_DEMO_MODE"), c.Clinical.DemoMode)
	if v := strings.TrimSpace(os.Getenv("MEDGEMMA_ENDPOINT")); v != "" {
		c.Clinical.Endpoint = v
	} else if v := strings.TrimSpace(os.Getenv("MEDGEMMA_URL")); v != "" {
		c.Clinical.Endpoint = v
	}
	c.Clinical.TimeoutMS = parseInt(os.Getenv("MEDGEMMA_TIMEOUT_MS"), c.Clinical.TimeoutMS)
	if c.Clinical.TimeoutMS <= 0 {
		c.Clinical.TimeoutMS = DefaultMedGemmaTimeoutMS
	}

	if v, err := strconv.ParseFloat(os.Getenv("ANALYZE_RATE_PER_SEC"), 64); err == nil && v > 0 {
		c.RateLimit.PerSecond = v
	}
	c.RateLimit.Burst = parseInt(os.Getenv("ANALYZE_RATE_BURST"), c.RateLimit.Burst)

	if d, err := time.ParseDuration(os.Getenv("CACHE_LATEST_TTL")); err == nil && d > 0 {
		c.Cache.LatestTTL = d
	}
	c.Cache.TriageStream = getEnv("TRIAGE_STREAM", c.Cache.TriageStream)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return i
}

// parseBool 宽松解析布尔字符串（true/1/yes/on），无法识别时返回 def
func parseBool(s string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MQTTConfig MQTT配置
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	QoS      byte
}

// 设备数据源模式
const (
	DeviceModePostgres  = "postgres"  // wearable_samples 表
	DeviceModeMQTT      = "mqtt"      // MQTT 推送缓冲
	DeviceModeSimulated = "simulated" // 演示数据
)

// 床位数据来源
const (
	UnitsSourceMemory   = "memory"
	UnitsSourcePostgres = "postgres"
)

var validMergeStrategies = map[string]bool{
	"all":         true,
	"prioritized": true,
	"average":     true,
	"latest":      true,
}

// Config 健康服务配置
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	MQTT     MQTTConfig

	Health struct {
		MergeStrategy  string // all | prioritized | average | latest
		RefreshMinutes int    // 没有启用数据源时的兜底刷新间隔（分钟）
		PolicyFile     string // 策略表 JSON 文件（可选）

		// 定时刷新（0 表示关闭）
		ScheduleIntervalMinutes int
		MaxConcurrentProviders  int
		MetricsReportSeconds    int
	}

	// 数据源配置
	Providers struct {
		Device struct {
			Enabled        bool
			Mode           string // postgres | mqtt | simulated
			Priority       int    // 数值越小优先级越高
			RefreshMinutes int
			LookbackDays   int
			SampleLimit    int
			MQTTTopic      string // wearable/{person_id}/samples
		}
		Clinical struct {
			Enabled        bool
			BaseURL        string
			APIKey         string
			Priority       int
			TimeoutSec     int
			RetryCount     int
			RefreshMinutes int
		}
	}

	// Redis 快照
	Snapshot struct {
		Enabled   bool
		KeyPrefix string // health:person:
		TTLHours  int
	}

	// Redis Streams 事件
	Events struct {
		Enabled     bool
		AlertStream string
		MaxLen      int64
	}

	// 床位数据
	Units struct {
		Source       string // memory | postgres
		CacheSeconds int
	}

	HTTP struct {
		Addr                string
		ReadTimeoutSeconds  int
		WriteTimeoutSeconds int // 需大于数据源超时，同步请求会等待全部数据源返回
		IdleTimeoutSeconds  int
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置
func Load() (*Config, error) {
	cfg := &Config{}

	// 从环境变量加载（默认值）
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "owlrd")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = 10
	cfg.Database.MaxIdle = 5

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "wisefido-health")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = 1

	cfg.Health.MergeStrategy = strings.ToLower(getEnv("HEALTH_MERGE_STRATEGY", "prioritized"))
	cfg.Health.RefreshMinutes = getEnvInt("HEALTH_REFRESH_MINUTES", 30)
	cfg.Health.PolicyFile = getEnv("HEALTH_POLICY_FILE", "")
	cfg.Health.ScheduleIntervalMinutes = getEnvInt("HEALTH_SCHEDULE_INTERVAL_MINUTES", 0)
	cfg.Health.MaxConcurrentProviders = getEnvInt("HEALTH_MAX_CONCURRENT_PROVIDERS", 4)
	cfg.Health.MetricsReportSeconds = getEnvInt("HEALTH_METRICS_REPORT_SECONDS", 60)

	cfg.Providers.Device.Enabled = getEnvBool("DEVICE_PROVIDER_ENABLED", true)
	cfg.Providers.Device.Mode = strings.ToLower(getEnv("DEVICE_PROVIDER_MODE", DeviceModeSimulated))
	cfg.Providers.Device.Priority = getEnvInt("DEVICE_PROVIDER_PRIORITY", 2)
	cfg.Providers.Device.RefreshMinutes = getEnvInt("DEVICE_REFRESH_MINUTES", 15)
	cfg.Providers.Device.LookbackDays = getEnvInt("DEVICE_LOOKBACK_DAYS", 7)
	cfg.Providers.Device.SampleLimit = getEnvInt("DEVICE_SAMPLE_LIMIT", 500)
	cfg.Providers.Device.MQTTTopic = getEnv("DEVICE_MQTT_TOPIC", "wearable/+/samples")

	cfg.Providers.Clinical.Enabled = getEnvBool("CLINICAL_PROVIDER_ENABLED", false)
	cfg.Providers.Clinical.BaseURL = getEnv("CLINICAL_BASE_URL", "")
	cfg.Providers.Clinical.APIKey = getEnv("CLINICAL_API_KEY", "")
	cfg.Providers.Clinical.Priority = getEnvInt("CLINICAL_PROVIDER_PRIORITY", 1)
	cfg.Providers.Clinical.TimeoutSec = getEnvInt("CLINICAL_TIMEOUT_SEC", 10)
	cfg.Providers.Clinical.RetryCount = getEnvInt("CLINICAL_RETRY_COUNT", 2)
	cfg.Providers.Clinical.RefreshMinutes = getEnvInt("CLINICAL_REFRESH_MINUTES", 240)

	cfg.Snapshot.Enabled = getEnvBool("HEALTH_SNAPSHOT_ENABLED", true)
	cfg.Snapshot.KeyPrefix = getEnv("HEALTH_SNAPSHOT_PREFIX", "health:person:")
	cfg.Snapshot.TTLHours = getEnvInt("HEALTH_SNAPSHOT_TTL_HOURS", 72)

	cfg.Events.Enabled = getEnvBool("HEALTH_EVENTS_ENABLED", true)
	cfg.Events.AlertStream = getEnv("HEALTH_ALERT_STREAM", "health:alerts:stream")
	cfg.Events.MaxLen = int64(getEnvInt("HEALTH_ALERT_STREAM_MAXLEN", 10000))

	cfg.Units.Source = strings.ToLower(getEnv("UNITS_SOURCE", UnitsSourceMemory))
	cfg.Units.CacheSeconds = getEnvInt("UNITS_CACHE_SECONDS", 60)

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8090")
	cfg.HTTP.ReadTimeoutSeconds = getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)
	cfg.HTTP.WriteTimeoutSeconds = getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 60)
	cfg.HTTP.IdleTimeoutSeconds = getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 120)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置（配置错误在启动时返回，不在调用时返回）
func (c *Config) Validate() error {
	if !validMergeStrategies[c.Health.MergeStrategy] {
		return fmt.Errorf("invalid HEALTH_MERGE_STRATEGY: %q", c.Health.MergeStrategy)
	}
	if c.Health.RefreshMinutes <= 0 {
		return errors.New("HEALTH_REFRESH_MINUTES must be positive")
	}
	if c.Health.ScheduleIntervalMinutes < 0 {
		return errors.New("HEALTH_SCHEDULE_INTERVAL_MINUTES must not be negative")
	}
	if c.Health.MaxConcurrentProviders <= 0 {
		return errors.New("HEALTH_MAX_CONCURRENT_PROVIDERS must be positive")
	}

	device := c.Providers.Device
	clinical := c.Providers.Clinical
	if !device.Enabled && !clinical.Enabled {
		return errors.New("at least one health provider must be enabled")
	}

	if device.Enabled {
		switch device.Mode {
		case DeviceModePostgres, DeviceModeMQTT, DeviceModeSimulated:
		default:
			return fmt.Errorf("invalid DEVICE_PROVIDER_MODE: %q", device.Mode)
		}
		if device.Priority < 0 {
			return fmt.Errorf("invalid DEVICE_PROVIDER_PRIORITY: %d", device.Priority)
		}
		if device.RefreshMinutes <= 0 {
			return errors.New("DEVICE_REFRESH_MINUTES must be positive")
		}
		if device.LookbackDays <= 0 {
			return errors.New("DEVICE_LOOKBACK_DAYS must be positive")
		}
		if device.Mode == DeviceModeMQTT && device.MQTTTopic == "" {
			return errors.New("DEVICE_MQTT_TOPIC is required in mqtt mode")
		}
	}

	if clinical.Enabled {
		if clinical.BaseURL == "" {
			return errors.New("CLINICAL_BASE_URL is required when the clinical provider is enabled")
		}
		if clinical.Priority < 0 {
			return fmt.Errorf("invalid CLINICAL_PROVIDER_PRIORITY: %d", clinical.Priority)
		}
		if clinical.TimeoutSec <= 0 {
			return errors.New("CLINICAL_TIMEOUT_SEC must be positive")
		}
		if clinical.RefreshMinutes <= 0 {
			return errors.New("CLINICAL_REFRESH_MINUTES must be positive")
		}
	}

	switch c.Units.Source {
	case UnitsSourceMemory, UnitsSourcePostgres:
	default:
		return fmt.Errorf("invalid UNITS_SOURCE: %q", c.Units.Source)
	}

	return nil
}

// StaleAfter 缓存过期时间：已启用数据源中最短的刷新间隔
func (c *Config) StaleAfter() time.Duration {
	minutes := 0
	if c.Providers.Device.Enabled {
		minutes = c.Providers.Device.RefreshMinutes
	}
	if c.Providers.Clinical.Enabled {
		if minutes == 0 || c.Providers.Clinical.RefreshMinutes < minutes {
			minutes = c.Providers.Clinical.RefreshMinutes
		}
	}
	if minutes <= 0 {
		minutes = c.Health.RefreshMinutes
	}
	return time.Duration(minutes) * time.Minute
}

// SnapshotTTL 快照过期时间
func (c *Config) SnapshotTTL() time.Duration {
	return time.Duration(c.Snapshot.TTLHours) * time.Hour
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

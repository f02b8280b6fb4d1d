package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"shop-service/pkg/database"

	"go.uber.org/zap"
)

type Config struct {
	HTTPPort string
	GRPCPort string
	DB       DB
	Redis    Redis
	Kafka    Kafka
	JWT      JWT
	Gateway  Gateway
	Shop     Shop
}

type DB struct {
	database.Config
}

type Redis struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

type Kafka struct {
	Brokers    []string
	TopicEmail string
}

type JWT struct {
	AccessSecret string
	Issuer       string
}

// Gateway: настройки платёжного шлюза ZarinPal
type Gateway struct {
	MerchantID  string
	Sandbox     bool
	CallbackURL string
	Timeout     time.Duration
}

type Shop struct {
	CookieDomain      string
	CookieSecure      bool
	CartTTL           time.Duration
	PaymentSessionTTL time.Duration
	PaymentStaleAfter time.Duration
	NotificationTTL   time.Duration
	CORSOrigins       []string

	PaymentRequestsPerMinute int
	MetricsEnabled           bool
}

func Load(log *zap.Logger) *Config {
	return &Config{
		HTTPPort: getEnv("APP_PORT", log),
		GRPCPort: getEnvDefault("GRPC_PORT", ":9090"),
		DB:       *LoadDB(log),
		Redis: Redis{
			Enabled:  getEnv("REDIS_ENABLED", log) == "true",
			Addr:     getEnvDefault("REDIS_ADDR", "localhost:6379"),
			Password: getEnvDefault("REDIS_PASSWORD", ""),
			DB:       atoiDefault(getEnvDefault("REDIS_DB", "0"), 0),
		},
		Kafka: Kafka{
			Brokers:    splitAndTrim(os.Getenv("KAFKA_BROKERS")),
			TopicEmail: getEnvDefault("KAFKA_TOPIC_EMAIL", "shop.email"),
		},
		JWT: JWT{
			AccessSecret: getEnv("JWT_ACCESS_SECRET", log),
			Issuer:       getEnvDefault("JWT_ISSUER", ""),
		},
		Gateway: Gateway{
			MerchantID:  getEnv("ZARINPAL_MERCHANT_ID", log),
			Sandbox:     getEnvDefault("ZARINPAL_SANDBOX", "false") == "true",
			CallbackURL: getEnv("ZARINPAL_CALLBACK_URL", log),
			Timeout:     parseDuration(getEnvDefault("ZARINPAL_TIMEOUT", "30s"), 30*time.Second),
		},
		Shop: Shop{
			CookieDomain:      getEnvDefault("COOKIE_DOMAIN", ""),
			CookieSecure:      getEnvDefault("COOKIE_SECURE", "false") == "true",
			CartTTL:           parseDuration(getEnvDefault("CART_TTL", "336h"), 14*24*time.Hour),
			PaymentSessionTTL: parseDuration(getEnvDefault("PAYMENT_SESSION_TTL", "30m"), 30*time.Minute),
			PaymentStaleAfter: parseDuration(getEnvDefault("PAYMENT_STALE_AFTER", "30m"), 30*time.Minute),
			NotificationTTL:   parseDuration(getEnvDefault("NOTIFICATION_TTL", "2160h"), 90*24*time.Hour),
			CORSOrigins:       splitAndTrim(getEnvDefault("CORS_ORIGINS", "*")),

			PaymentRequestsPerMinute: atoiDefault(getEnvDefault("PAYMENT_REQUESTS_PER_MINUTE", "10"), 10),
			MetricsEnabled:           getEnvDefault("METRICS_ENABLED", "true") == "true",
		},
	}
}

// LoadDB читает только настройки БД, для миграций
func LoadDB(log *zap.Logger) *DB {
	return &DB{
		Config: database.Config{
			Host:     getEnv("DB_HOST", log),
			Port:     getEnv("DB_PORT", log),
			User:     getEnv("DB_USER", log),
			Password: getEnv("DB_PASSWORD", log),
			Name:     getEnv("DB_NAME", log),
			SSLMode:  getEnv("DB_SSLMODE", log),
		},
	}
}

// NotifierConfig: конфигурация сервиса отправки писем
type NotifierConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string

	TMPLDir string

	KafkaBrokers []string
	KafkaGroupID string
	KafkaTopic   string
}

func LoadNotifier(log *zap.Logger) *NotifierConfig {
	return &NotifierConfig{
		SMTPHost:     getEnv("SMTP_HOST", log),
		SMTPPort:     getEnvInt("SMTP_PORT", log),
		SMTPUser:     getEnv("SMTP_USER", log),
		SMTPPassword: getEnv("SMTP_PASSWORD", log),
		SMTPFrom:     getEnv("SMTP_FROM", log),
		TMPLDir:      getEnv("TMPL_DIR", log),
		KafkaBrokers: splitAndTrim(os.Getenv("KAFKA_BROKERS")),
		KafkaGroupID: getEnv("KAFKA_GROUP_ID", log),
		KafkaTopic:   getEnvDefault("KAFKA_TOPIC_EMAIL", "shop.email"),
	}
}

func getEnv(key string, log *zap.Logger) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	log.Error("Обязательная переменная окружения не установлена", zap.String("key", key))
	panic("missing required environment variable: " + key)
}

func getEnvDefault(key, def string) string {
	if val, exists := os.LookupEnv(key); exists && val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, log *zap.Logger) int {
	valStr := getEnv(key, log)
	val, err := strconv.Atoi(valStr)
	if err != nil {
		log.Error("Ошибка преобразования переменной окружения в int", zap.String("key", key), zap.Error(err))
		panic("invalid int value for environment variable: " + key)
	}
	return val
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := []string{}
	for _, p := range strings.Split(s, ",") {
		pt := strings.TrimSpace(p)
		if pt != "" {
			parts = append(parts, pt)
		}
	}
	return parts
}

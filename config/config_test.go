package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setRequired(t *testing.T) {
	t.Helper()
	for k, v := range map[string]string{
		"APP_PORT":              ":8080",
		"DB_HOST":               "localhost",
		"DB_PORT":               "5432",
		"DB_USER":               "shop",
		"DB_PASSWORD":           "secret",
		"DB_NAME":               "shop",
		"DB_SSLMODE":            "disable",
		"REDIS_ENABLED":         "true",
		"JWT_ACCESS_SECRET":     "access",
		"ZARINPAL_MERCHANT_ID":  "merchant",
		"ZARINPAL_CALLBACK_URL": "http://localhost:8080/payment/verify",
	} {
		t.Setenv(k, v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)
	t.Setenv("KAFKA_BROKERS", " kafka1:9092, ,kafka2:9092 ")

	cfg := Load(zap.NewNop())

	require.Equal(t, ":8080", cfg.HTTPPort)
	require.Equal(t, ":9090", cfg.GRPCPort)
	require.True(t, cfg.Redis.Enabled)
	require.Equal(t, []string{"kafka1:9092", "kafka2:9092"}, cfg.Kafka.Brokers)
	require.Equal(t, 30*time.Second, cfg.Gateway.Timeout)
	require.Equal(t, 30*time.Minute, cfg.Shop.PaymentSessionTTL)
	require.False(t, cfg.Gateway.Sandbox)
}

func TestLoad_MissingRequiredPanics(t *testing.T) {
	setRequired(t)
	t.Setenv("DB_HOST", "")
	// пустое значение допустимо, отсутствие: нет
	require.NotPanics(t, func() { Load(zap.NewNop()) })

	require.Panics(t, func() { getEnv("SHOP_TEST_DEFINITELY_MISSING", zap.NewNop()) })
}

func TestParseDuration_Fallback(t *testing.T) {
	require.Equal(t, time.Minute, parseDuration("bogus", time.Minute))
	require.Equal(t, time.Minute, parseDuration("-5s", time.Minute))
	require.Equal(t, 5*time.Second, parseDuration("5s", time.Minute))
}

func TestLoadNotifier(t *testing.T) {
	for k, v := range map[string]string{
		"SMTP_HOST":      "smtp.example.com",
		"SMTP_PORT":      "465",
		"SMTP_USER":      "shop",
		"SMTP_PASSWORD":  "secret",
		"SMTP_FROM":      "shop@example.com",
		"TMPL_DIR":       "./templates",
		"KAFKA_GROUP_ID": "notifier",
		"KAFKA_BROKERS":  "kafka:9092",
	} {
		t.Setenv(k, v)
	}

	cfg := LoadNotifier(zap.NewNop())
	require.Equal(t, 465, cfg.SMTPPort)
	require.Equal(t, "shop.email", cfg.KafkaTopic)
	require.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)

	t.Setenv("SMTP_PORT", "smtp")
	require.Panics(t, func() { LoadNotifier(zap.NewNop()) })
}

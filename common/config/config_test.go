package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDatabaseConfig_GetDSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", Database: "twin", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=twin sslmode=disable", c.GetDSN())
}

func TestDatabaseConfig_LoadFromEnv_OnlyOverridesSetValues(t *testing.T) {
	t.Setenv("DB_HOST", "pg.internal")
	t.Setenv("DB_PORT", "not-a-number")
	t.Setenv("DB_MAX_CONNS", "20")

	c := DatabaseConfig{Host: "localhost", Port: 5432, User: "postgres"}
	c.LoadFromEnv("DB")

	assert.Equal(t, "pg.internal", c.Host)
	assert.Equal(t, 5432, c.Port)
	assert.Equal(t, "postgres", c.User)
	assert.Equal(t, 20, c.MaxConns)
}

func TestRedisConfig_LoadFromEnv(t *testing.T) {
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("REDIS_DB", "3")

	var c RedisConfig
	c.LoadFromEnv("REDIS")

	assert.Equal(t, "cache:6380", c.Addr)
	assert.Equal(t, 3, c.DB)
	assert.Equal(t, "", c.Password)
}

func TestMQTTConfig_LoadFromEnv_IgnoresInvalidQoS(t *testing.T) {
	t.Setenv("MQTT_BROKER", "tcp://broker:1883")
	t.Setenv("MQTT_TOPIC", "caregiver/sms")
	t.Setenv("MQTT_QOS", "7")

	c := MQTTConfig{QoS: 1}
	c.LoadFromEnv("MQTT")

	assert.Equal(t, "tcp://broker:1883", c.Broker)
	assert.Equal(t, "caregiver/sms", c.Topic)
	assert.Equal(t, byte(1), c.QoS)
}

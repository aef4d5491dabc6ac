package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("SAGA_PORTS", "")
	cfg := Load("payment-service")

	assert.Equal(t, "payment-service", cfg.ServiceName)
	assert.Equal(t, ":8082", cfg.HTTPAddr)
	assert.Equal(t, PortsHTTP, cfg.Ports)
	assert.Equal(t, 5*time.Second, cfg.PortTimeout)
	assert.EqualValues(t, 8, cfg.PostgresMaxConns)
	assert.Equal(t, ":8081", Load("something-else").HTTPAddr)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", " k1:9092, ,k2:9092 ")
	t.Setenv("PORT_TIMEOUT", "750ms")
	t.Setenv("SAGA_PORTS", "LOCAL")
	t.Setenv("PROJECTOR_WORKERS", "nope")
	t.Setenv("SAGA_SWEEP_INTERVAL", "1m")

	cfg := Load("order-api")
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 750*time.Millisecond, cfg.PortTimeout)
	assert.Equal(t, PortsLocal, cfg.Ports)
	assert.Equal(t, 4, cfg.ProjectorWorkers, "bad ints fall back to default")
	assert.Equal(t, time.Minute, cfg.SweepInterval)
}

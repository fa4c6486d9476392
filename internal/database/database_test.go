package database

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-triage-service/internal/config"
)

func testConfig() *config.DatabaseConfig {
	return &config.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		Name:     "paper_triage",
		User:     "triage",
		Password: "p@ss word",
		SSLMode:  "disable",
	}
}

func TestHealthStatus(t *testing.T) {
	h := HealthStatus{Status: StatusHealthy, TotalConns: 3, MaxConns: 10}
	assert.True(t, h.Healthy())

	data, err := json.Marshal(h)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"healthy","total_conns":3,"acquired_conns":0,"idle_conns":0,"constructing_conns":0,"max_conns":10}`, string(data))

	h = HealthStatus{Status: StatusUnhealthy, Error: "connection refused"}
	assert.False(t, h.Healthy())
	data, err = json.Marshal(h)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"error":"connection refused"`)
}

func TestPoolConfig(t *testing.T) {
	t.Run("applies configured limits", func(t *testing.T) {
		cfg := testConfig()
		cfg.MaxConns = 15
		cfg.MinConns = 3
		cfg.MaxConnLifetime = 45 * time.Minute
		cfg.MaxConnIdleTime = 5 * time.Minute
		cfg.HealthCheckPeriod = 20 * time.Second
		cfg.ConnectTimeout = 4 * time.Second

		pc, err := poolConfig(cfg)
		require.NoError(t, err)
		assert.Equal(t, int32(15), pc.MaxConns)
		assert.Equal(t, int32(3), pc.MinConns)
		assert.Equal(t, 45*time.Minute, pc.MaxConnLifetime)
		assert.Equal(t, 5*time.Minute, pc.MaxConnIdleTime)
		assert.Equal(t, 20*time.Second, pc.HealthCheckPeriod)
		assert.Equal(t, 4*time.Second, pc.ConnConfig.ConnectTimeout)
		assert.Equal(t, "p@ss word", pc.ConnConfig.Password)
		assert.Equal(t, applicationName, pc.ConnConfig.RuntimeParams["application_name"])
	})

	t.Run("zero values keep pgx defaults", func(t *testing.T) {
		pc, err := poolConfig(testConfig())
		require.NoError(t, err)
		assert.Positive(t, pc.MaxConns)
		assert.Positive(t, pc.MaxConnLifetime)
		assert.Equal(t, "paper_triage", pc.ConnConfig.Database)
	})
}

func TestDB_NilPool(t *testing.T) {
	db := &DB{logger: zerolog.Nop()}

	assert.NotPanics(t, db.Close)

	h := db.Health(context.Background())
	assert.False(t, h.Healthy())
	assert.Equal(t, "database pool not initialized", h.Error)
}

func TestNew_Unreachable(t *testing.T) {
	if testing.Short() {
		t.Skip("dials the network")
	}

	// 192.0.2.1 is TEST-NET-1 and never routes.
	cfg := testConfig()
	cfg.Host = "192.0.2.1"
	cfg.ConnectTimeout = time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	db, err := New(ctx, cfg, zerolog.Nop())
	require.Error(t, err)
	assert.Nil(t, db)
}

package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jzx17/gotube/pkg/fiber"
	"github.com/jzx17/gotube/pkg/tube"
	"github.com/jzx17/gotube/pkg/types"
	"github.com/jzx17/gotube/pkg/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(LoadOptions{Path: filepath.Join(t.TempDir(), "missing.yaml"), EnvPrefix: "GOTUBE_DEFAULTS_TEST_"})
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	path := writeFile(t, "config.yaml", `
engine:
  id: orders
  container: orders-container
  submit_attempts: 5
  backoff:
    kind: linear
    base: 2ms
    max_delay: 40ms
pool:
  kind: dynamic
  min_workers: 1
  max_workers: 4
  queue_size: 32
  submit_timeout: 250ms
log:
  level: debug
  format: text
`)
	t.Setenv("GOTUBE_POOL__MAX_WORKERS", "6")
	t.Setenv("GOTUBE_SERVER__ADDR", ":9090")

	cfg, err := Load(LoadOptions{Path: path})
	require.NoError(t, err)

	assert.Equal(t, "orders", cfg.Engine.ID)
	assert.Equal(t, "orders-container", cfg.Engine.Container)
	assert.Equal(t, 5, cfg.Engine.SubmitAttempts)
	assert.Equal(t, BackoffConfig{Kind: "linear", Base: 2 * time.Millisecond, MaxDelay: 40 * time.Millisecond}, cfg.Engine.Backoff)

	assert.Equal(t, PoolDynamic, cfg.Pool.Kind)
	assert.Equal(t, 1, cfg.Pool.MinWorkers)
	assert.Equal(t, 6, cfg.Pool.MaxWorkers, "environment overrides the file")
	assert.Equal(t, 32, cfg.Pool.QueueSize)
	assert.Equal(t, 250*time.Millisecond, cfg.Pool.SubmitTimeout)

	assert.Equal(t, LogConfig{Level: "debug", Format: "text"}, cfg.Log)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.Server.RequestTimeout, "untouched keys keep their default")
}

func TestLoad_DotEnv(t *testing.T) {
	const key = "GOTUBE_DOTENV_TEST_POOL__SIZE"
	t.Cleanup(func() { _ = os.Unsetenv(key) })

	dotenv := writeFile(t, ".env", key+"=3\n")
	cfg, err := Load(LoadOptions{
		DotEnv:    []string{dotenv, filepath.Join(t.TempDir(), "absent.env")},
		EnvPrefix: "GOTUBE_DOTENV_TEST_",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Pool.Size)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "malformed yaml", yaml: "pool: [unclosed"},
		{name: "unknown pool kind", yaml: "pool:\n  kind: elastic\n"},
		{name: "zero fixed size", yaml: "pool:\n  size: 0\n"},
		{name: "inverted dynamic bounds", yaml: "pool:\n  kind: dynamic\n  min_workers: 4\n  max_workers: 2\n"},
		{name: "zero queue", yaml: "pool:\n  queue_size: 0\n"},
		{name: "negative attempts", yaml: "engine:\n  submit_attempts: -1\n"},
		{name: "bad level", yaml: "log:\n  level: loud\n"},
		{name: "bad format", yaml: "log:\n  format: xml\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "config.yaml", tt.yaml)
			_, err := Load(LoadOptions{Path: path, EnvPrefix: "GOTUBE_ERRORS_TEST_"})
			assert.Error(t, err)
		})
	}
}

func TestLogConfig_NewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := LogConfig{Level: "warn", Format: "json"}.NewLogger(&buf)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	buf.Reset()
	logger, err = LogConfig{Level: "debug", Format: "text"}.NewLogger(&buf)
	require.NoError(t, err)
	logger.Debug("details")
	assert.Contains(t, buf.String(), "msg=details")

	_, err = LogConfig{Level: "verbose"}.NewLogger(&buf)
	assert.Error(t, err)
}

func TestPoolConfig_NewPool(t *testing.T) {
	fixed, err := Default().Pool.NewPool(nil)
	require.NoError(t, err)
	assert.IsType(t, &worker.FixedWorkerPool{}, fixed)

	dyn := Default().Pool
	dyn.Kind = PoolDynamic
	pool, err := dyn.NewPool(nil)
	require.NoError(t, err)
	require.IsType(t, &worker.DynamicWorkerPool{}, pool)

	require.NoError(t, pool.Start(context.Background()))
	defer func() { _ = pool.Close() }()
	assert.Equal(t, dyn.MinWorkers, pool.Size())

	_, err = PoolConfig{Kind: "elastic"}.NewPool(nil)
	assert.Error(t, err)
}

func TestEngineConfig_Build(t *testing.T) {
	cfg := Default()
	cfg.Engine.ID = "configured"

	exec := worker.NewInlineExecutor(nil)
	engineCfg, err := cfg.Engine.Build(exec, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, engineCfg.SubmitAttempts)
	assert.Equal(t, time.Millisecond, engineCfg.SubmitBackoff.NextDelay(1))

	engine, err := fiber.NewEngine(engineCfg)
	require.NoError(t, err)
	assert.Equal(t, "configured", engine.ID())
	assert.Equal(t, "gotube", engine.Container().Name())

	var got *types.Packet
	cb := fiber.CallbackFuncs{Success: func(p *types.Packet) { got = p }}
	request := types.NewPacket("ping")
	require.NoError(t, engine.CreateFiber().Start(context.Background(), tube.NewTerminal("echo", nil), request, cb))
	assert.Same(t, request, got)

	cfg.Engine.Backoff.Kind = "random"
	_, err = cfg.Engine.Build(exec, nil)
	assert.Error(t, err)
}

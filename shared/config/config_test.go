package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPublic = `
http_port: 8080
requests_per_second: 10
request_burst: 20
ban_refresh_interval: 60
queue:
  name: submissions
  result_ttl: 86400
worker:
  concurrency: 4
  poll_timeout: 5
moderation:
  dnsbl_providers: ["xbl.spamhaus.org"]
  dnsbl_timeout: 2
`

const testPrivate = `
ident_secret: s3cret
pg:
  host: localhost
  port: 5432
  user: user
  dbname: itboard
redis:
  addr: localhost:6379
`

func writeConfig(t *testing.T, public, private string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "public.yaml"), []byte(public), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "private.yaml"), []byte(private), 0o600))
	return dir
}

func TestMustLoad(t *testing.T) {
	cfg := MustLoad(writeConfig(t, testPublic, testPrivate))

	assert.Equal(t, 8080, cfg.Public.HTTPPort)
	assert.Equal(t, "submissions", cfg.Public.Queue.Name)
	assert.Equal(t, 24*time.Hour, cfg.Public.ResultTTL())
	assert.Equal(t, 5*time.Second, cfg.Public.PollTimeout())
	assert.Equal(t, time.Minute, cfg.Public.BanRefresh())
	assert.Equal(t, []string{"xbl.spamhaus.org"}, cfg.Public.Moderation.DnsblProviders)
	assert.Equal(t, "localhost", cfg.Private.Pg.Host)
	assert.Equal(t, "localhost:6379", cfg.Private.Redis.Addr)
}

func TestMustLoad_EnvOverridesSecrets(t *testing.T) {
	t.Setenv("PG_PASSWORD", "from-env")
	t.Setenv("REDIS_ADDR", "redis:6379")

	cfg := MustLoad(writeConfig(t, testPublic, testPrivate))

	assert.Equal(t, "from-env", cfg.Private.Pg.Password)
	assert.Equal(t, "redis:6379", cfg.Private.Redis.Addr)
}

func TestMustLoad_RequiredFields(t *testing.T) {
	// ident_secret is intentionally missing
	private := "pg: {host: h, port: 1, user: u, dbname: d}\nredis: {addr: a}\n"
	dir := writeConfig(t, testPublic, private)

	assert.Panics(t, func() { _ = MustLoad(dir) })
}

func TestMustLoad_MissingFile(t *testing.T) {
	assert.Panics(t, func() { _ = MustLoad(t.TempDir()) })
}

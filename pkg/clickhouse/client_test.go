package clickhouse

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDSN(t *testing.T) {
	cfg := defaultClientConfig()
	cfg.Host = "ch.local"
	cfg.Database = "smartloan"
	cfg.Password = "p@ss"
	cfg.AsyncInsert = true
	cfg.MaxExecTime = 30 * time.Second

	dsn := BuildDSN(cfg)
	u, err := url.Parse(dsn)
	require.NoError(t, err)

	assert.Equal(t, "clickhouse", u.Scheme)
	assert.Equal(t, "ch.local:9000", u.Host)
	assert.Equal(t, "/smartloan", u.Path)
	assert.Equal(t, "default", u.User.Username())
	pw, _ := u.User.Password()
	assert.Equal(t, "p@ss", pw)

	q := u.Query()
	assert.Equal(t, "5s", q.Get("dial_timeout"))
	assert.Equal(t, "30", q.Get("max_execution_time"))
	assert.Equal(t, "1", q.Get("async_insert"))
	assert.Equal(t, "0", q.Get("wait_for_async_insert"))

	cfg.UseHTTP = true
	cfg.AsyncInsert = false
	u, err = url.Parse(BuildDSN(cfg))
	require.NoError(t, err)
	assert.Equal(t, "http", u.Scheme)
	assert.Empty(t, u.Query().Get("async_insert"))
}

func TestNewClientRequiresHost(t *testing.T) {
	_, err := NewClient(context.Background())
	assert.ErrorIs(t, err, ErrNoHost)
}

package cache

import (
	"context"
	"net"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryAdapterRoundTrip(t *testing.T) {
	a := NewMemoryAdapter(0, 0)
	defer a.Close()
	ctx := context.Background()

	value := []byte("thumb")
	require.NoError(t, a.Set(ctx, "k", value, time.Minute))
	value[0] = 'X'

	got, found, err := a.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("thumb"), got, "stored value must be a copy")

	require.NoError(t, a.Delete(ctx, "k"))
	_, found, err = a.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryAdapterExpiry(t *testing.T) {
	a := NewMemoryAdapter(0, 0)
	defer a.Close()
	now := time.Unix(1000, 0)
	a.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, a.Set(ctx, "k", []byte("v"), time.Second))
	now = now.Add(2 * time.Second)

	_, found, _ := a.Get(ctx, "k")
	assert.False(t, found)

	a.sweep()
	assert.Equal(t, 0, a.Len())
}

func TestMemoryAdapterEviction(t *testing.T) {
	a := NewMemoryAdapter(2, 0)
	defer a.Close()
	ctx := context.Background()

	require.NoError(t, a.Set(ctx, "short", []byte("1"), time.Second))
	require.NoError(t, a.Set(ctx, "long", []byte("2"), time.Hour))
	require.NoError(t, a.Set(ctx, "new", []byte("3"), time.Hour))

	assert.Equal(t, 2, a.Len())
	_, found, _ := a.Get(ctx, "short")
	assert.False(t, found)
}

func TestMemoryAdapterIgnoresZeroTTL(t *testing.T) {
	a := NewMemoryAdapter(0, 0)
	defer a.Close()

	require.NoError(t, a.Set(context.Background(), "k", []byte("v"), 0))
	assert.Equal(t, 0, a.Len())
}

func TestKey(t *testing.T) {
	digest := Digest([]byte("source"))
	assert.Len(t, digest, 64)

	a := Key("thumb:", digest, "image/png", "image/jpeg", "nfnt/lanczos3", []string{"small", "medium"}, 85)
	b := Key("thumb:", digest, "image/png", "image/jpeg", "nfnt/lanczos3", []string{"medium", "small"}, 85)
	assert.NotEqual(t, a, b, "preset order is part of the result")

	c := Key("thumb:", digest, "image/png", "image/jpeg", "nfnt/bilinear", []string{"small", "medium"}, 85)
	d := Key("thumb:", digest, "image/png", "image/jpeg", "imaging/lanczos3", []string{"small", "medium"}, 85)
	assert.NotEqual(t, a, c, "filter is part of the result")
	assert.NotEqual(t, a, d, "engine is part of the result")
	assert.Contains(t, a, ":nfnt/lanczos3:")
	assert.True(t, strings.HasPrefix(a, "thumb:"+digest))
	assert.True(t, strings.HasSuffix(a, ":q85"))
}

func TestNewDrivers(t *testing.T) {
	a, err := New(context.Background(), Config{Driver: DriverNone})
	require.NoError(t, err)
	assert.Nil(t, a)

	a, err = New(context.Background(), Config{Driver: DriverMemory, MaxEntries: 4})
	require.NoError(t, err)
	assert.IsType(t, &MemoryAdapter{}, a)
	require.NoError(t, a.Close())

	_, err = New(context.Background(), Config{Driver: "memcached"})
	assert.Error(t, err)
}

func TestRedisConfigStringRedactsPassword(t *testing.T) {
	cfg := RedisConfig{Host: "127.0.0.1", Port: "6379", Password: "super-secret", DB: 2}

	s := cfg.String()
	assert.NotContains(t, s, cfg.Password)
	assert.Contains(t, s, "password=[REDACTED]")
	assert.Contains(t, RedisConfig{Host: "h", Port: "1"}.String(), "password=<empty>")
}

func integrationRedisConfig(t *testing.T) RedisConfig {
	t.Helper()

	addr := strings.TrimSpace(os.Getenv("REDIS_TEST_ADDR"))
	if addr == "" {
		t.Skip("set REDIS_TEST_ADDR to run redis integration tests")
	}
	host, port, err := net.SplitHostPort(addr)
	require.NoError(t, err)

	db := 0
	if raw := strings.TrimSpace(os.Getenv("REDIS_TEST_DB")); raw != "" {
		db, err = strconv.Atoi(raw)
		require.NoError(t, err)
	}
	return RedisConfig{Host: host, Port: port, Password: os.Getenv("REDIS_TEST_PASSWORD"), DB: db}
}

func TestRedisAdapterIntegration(t *testing.T) {
	cfg := integrationRedisConfig(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := NewRedisClient(ctx, cfg)
	require.NoError(t, err)
	a := NewRedisAdapter(client)
	defer a.Close()

	key := "thumbnailer:test:" + strconv.FormatInt(time.Now().UnixNano(), 10)
	require.NoError(t, a.Set(ctx, key, []byte("v"), time.Minute))

	got, found, err := a.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, a.Delete(ctx, key))
	_, found, err = a.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)
}

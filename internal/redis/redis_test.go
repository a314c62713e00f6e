package redis

import (
	"context"
	"net"
	"testing"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// closedAddr returns an address nothing is listening on.
func closedAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestPing_GivesUpAfterAttempts(t *testing.T) {
	client := redislib.NewClient(&redislib.Options{Addr: closedAddr(t), MaxRetries: -1})
	defer client.Close()

	start := time.Now()
	err := ping(context.Background(), client, 3, time.Millisecond)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestPing_StopsOnContextCancel(t *testing.T) {
	client := redislib.NewClient(&redislib.Options{Addr: closedAddr(t), MaxRetries: -1})
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := ping(ctx, client, 5, time.Hour)
	require.ErrorIs(t, err, context.Canceled)
}

func TestNew_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	client, err := New(ctx, Config{Addr: closedAddr(t)})
	require.Error(t, err)
	assert.Nil(t, client)
}

package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/praxis/server/internal/shared/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisClient(t *testing.T) {
	t.Run("disabled without address", func(t *testing.T) {
		client, err := NewRedisClient(context.Background(), &config.RedisConfig{})
		require.NoError(t, err)
		assert.Nil(t, client)
	})

	t.Run("connects", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client, err := NewRedisClient(context.Background(), &config.RedisConfig{Address: mr.Addr()})
		require.NoError(t, err)
		require.NotNil(t, client)
		defer client.Close()
		assert.NoError(t, client.Ping(context.Background()).Err())
	})

	t.Run("unreachable", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()

		_, err := NewRedisClient(context.Background(), &config.RedisConfig{Address: addr})
		assert.Error(t, err)
	})
}

package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medtrack-app/entitlements/pkg/redis"
)

func TestConnect_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  redis.Config
		want error
	}{
		{
			name: "empty url",
			cfg:  redis.Config{},
			want: redis.ErrEmptyConnectionURL,
		},
		{
			name: "malformed url",
			cfg:  redis.Config{ConnectionURL: "http://not-redis"},
			want: redis.ErrFailedToParseRedisConnString,
		},
		{
			name: "unreachable",
			cfg: redis.Config{
				ConnectionURL:  "redis://127.0.0.1:1/0",
				RetryAttempts:  2,
				RetryInterval:  10 * time.Millisecond,
				ConnectTimeout: time.Second,
			},
			want: redis.ErrRedisNotReady,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			client, err := redis.Connect(context.Background(), tt.cfg)
			require.Error(t, err)
			assert.Nil(t, client)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

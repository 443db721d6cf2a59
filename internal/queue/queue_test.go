package queue

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T) (*RedisQueue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisQueue(client, "scan_queue"), mr
}

func TestEnqueueAppendsEnvelopeToTail(t *testing.T) {
	q, mr := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, "scan-1", "openapi: 3.0.0"))
	require.NoError(t, q.Enqueue(ctx, "scan-2", `{"openapi":"3.1.0"}`))

	items, err := mr.List("scan_queue")
	require.NoError(t, err)
	require.Len(t, items, 2)

	var first map[string]string
	require.NoError(t, json.Unmarshal([]byte(items[0]), &first))
	assert.Equal(t, map[string]string{"scanId": "scan-1", "specContent": "openapi: 3.0.0"}, first)

	var second Job
	require.NoError(t, json.Unmarshal([]byte(items[1]), &second))
	assert.Equal(t, "scan-2", second.ScanID)

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestEnqueueReportsConnectionFailure(t *testing.T) {
	q, mr := newTestQueue(t)
	mr.Close()

	err := q.Enqueue(context.Background(), "scan-1", "openapi: 3.0.0")
	assert.ErrorContains(t, err, "failed to push job onto scan_queue")
}

package redis_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-planner/leave"
	"github.com/warp/leave-planner/store/redis"
)

func setup(t *testing.T) (*miniredis.Miniredis, *redis.Store) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, redis.New(client, "planner:")
}

func TestGet_Missing(t *testing.T) {
	_, s := setup(t)

	_, err := s.Get(context.Background(), "nope")

	assert.ErrorIs(t, err, leave.ErrBlobNotFound)
}

func TestPut_UsesPrefix(t *testing.T) {
	ctx := context.Background()
	mr, s := setup(t)

	require.NoError(t, s.Put(ctx, leave.DefaultSnapshotKey, []byte(`{"a":1}`)))

	raw, err := mr.Get("planner:" + leave.DefaultSnapshotKey)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, raw)

	got, err := s.Get(ctx, leave.DefaultSnapshotKey)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(got))
}

func TestDial(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := redis.Dial(context.Background(), mr.Addr())
	require.NoError(t, err)
	client.Close()

	addr := mr.Addr()
	mr.Close()
	_, err = redis.Dial(context.Background(), addr)
	assert.Error(t, err)
}

func TestBackendFailure_Wrapped(t *testing.T) {
	mr, s := setup(t)
	mr.SetError("READONLY")

	err := s.Put(context.Background(), "k", []byte("x"))

	assert.Error(t, err)
	assert.NotErrorIs(t, err, leave.ErrBlobNotFound)
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	_, s := setup(t)

	src := leave.NewStore()
	src.SetMonthlyBalance(leave.MonthlyBalance{Month: leave.MustParseMonth("2024-03"), Accrual: leave.SomeFloat(5), Notes: "n"})
	require.NoError(t, src.Save(ctx, s, leave.DefaultSnapshotKey))

	dst := leave.NewStore()
	require.NoError(t, dst.Load(ctx, s, leave.DefaultSnapshotKey))

	ov, err := dst.MonthlyBalance(leave.MustParseMonth("2024-03"))
	require.NoError(t, err)
	v, ok := ov.Accrual.Get()
	require.True(t, ok)
	assert.InDelta(t, 5, v.Float64(), 1e-9)
	assert.Equal(t, "n", ov.Notes)
}

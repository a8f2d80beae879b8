package geocode

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsmap/internal/model"
)

func TestMemoryCache_NegativeEntry(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	_, ok := c.Get(ctx, "x")
	assert.False(t, ok)

	c.Set(ctx, "x", nil)
	v, ok := c.Get(ctx, "x")
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestMemoryCache_CopiesValues(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()
	in := &model.Coords{Lat: 1, Lon: 2}
	c.Set(ctx, "k", in)
	in.Lat = 9

	v, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, 1.0, v.Lat)
}

func TestEntryCodec(t *testing.T) {
	v, ok := decodeEntry(encodeEntry(nil))
	assert.True(t, ok)
	assert.Nil(t, v)

	v, ok = decodeEntry(encodeEntry(&model.Coords{Lat: 1.3521, Lon: 103.8198}))
	require.True(t, ok)
	assert.Equal(t, 103.8198, v.Lon)

	_, ok = decodeEntry("{broken")
	assert.False(t, ok)
}

func TestRedisCache_NilClientMisses(t *testing.T) {
	c := NewRedisCache(nil)
	c.Set(context.Background(), "k", &model.Coords{})
	_, ok := c.Get(context.Background(), "k")
	assert.False(t, ok)
}

type fakeStore struct {
	m   map[string]*model.Coords
	err error
}

func (f *fakeStore) GetGeocode(_ context.Context, key string) (*model.Coords, bool, error) {
	if f.err != nil {
		return nil, false, f.err
	}
	v, ok := f.m[key]
	return v, ok, nil
}

func (f *fakeStore) PutGeocode(_ context.Context, key string, c *model.Coords) error {
	if f.err != nil {
		return f.err
	}
	f.m[key] = c
	return nil
}

func TestStoreCache(t *testing.T) {
	st := &fakeStore{m: map[string]*model.Coords{}}
	c := NewStoreCache(st)
	ctx := context.Background()

	c.Set(ctx, "tampines", &model.Coords{Lat: 1.35, Lon: 103.94})
	v, ok := c.Get(ctx, "tampines")
	require.True(t, ok)
	assert.Equal(t, 1.35, v.Lat)

	st.err = errors.New("db down")
	_, ok = c.Get(ctx, "tampines")
	assert.False(t, ok)
}

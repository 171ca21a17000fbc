package directory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"channel_chat_server/internal/model"
	"channel_chat_server/pkg/errorx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannelRepo struct {
	mu       sync.Mutex
	channels map[string]model.Channel
	lookups  int
	err      error
}

func (f *fakeChannelRepo) FindByID(ctx context.Context, id string) (*model.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	if f.err != nil {
		return nil, f.err
	}
	c, ok := f.channels[id]
	if !ok {
		return nil, errorx.New(errorx.CodeNotFound, "record not found")
	}
	return &c, nil
}

func (f *fakeChannelRepo) FindByName(ctx context.Context, name string) (*model.Channel, error) {
	return nil, errorx.New(errorx.CodeNotFound, "record not found")
}

func (f *fakeChannelRepo) List(ctx context.Context) ([]model.Channel, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]model.Channel, 0, len(f.channels))
	for _, c := range f.channels {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeChannelRepo) Create(ctx context.Context, channel *model.Channel) error {
	f.channels[channel.ID] = *channel
	return nil
}

type mapCache struct {
	mu   sync.Mutex
	data map[string]string
	err  error
}

func newMapCache() *mapCache { return &mapCache{data: map[string]string{}} }

func (m *mapCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data[key] = value
	return nil
}

func (m *mapCache) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	return m.data[key], nil
}

func (m *mapCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *mapCache) DeleteByPattern(ctx context.Context, pattern string) error { return nil }

func newRepo() *fakeChannelRepo {
	return &fakeChannelRepo{channels: map[string]model.Channel{
		"text-1":  {ID: "text-1", Name: "general", Type: model.ChannelTypeText},
		"voice-1": {ID: "voice-1", Name: "lounge", Type: model.ChannelTypeVoice, Position: 1},
	}}
}

func TestResolveType(t *testing.T) {
	svc := NewChannelService(newRepo(), nil, time.Second, time.Minute)

	typ, err := svc.ResolveType(context.Background(), "text-1")
	require.NoError(t, err)
	assert.Equal(t, model.ChannelTypeText, typ)

	typ, err = svc.ResolveType(context.Background(), "voice-1")
	require.NoError(t, err)
	assert.Equal(t, model.ChannelTypeVoice, typ)

	_, err = svc.ResolveType(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, errorx.CodeNotFound, errorx.GetCode(err))
}

func TestResolveTypeUsesCache(t *testing.T) {
	repo := newRepo()
	cache := newMapCache()
	svc := NewChannelService(repo, cache, time.Second, time.Minute)

	for i := 0; i < 3; i++ {
		typ, err := svc.ResolveType(context.Background(), "text-1")
		require.NoError(t, err)
		assert.Equal(t, model.ChannelTypeText, typ)
	}
	assert.Equal(t, 1, repo.lookups)
	assert.Equal(t, "TEXT", cache.data["channel_type_text-1"])
}

func TestResolveTypeDegradesOnCacheFailure(t *testing.T) {
	repo := newRepo()
	cache := newMapCache()
	cache.err = errorx.New(errorx.CodeCacheError, "redis down")
	svc := NewChannelService(repo, cache, time.Second, time.Minute)

	typ, err := svc.ResolveType(context.Background(), "voice-1")
	require.NoError(t, err)
	assert.Equal(t, model.ChannelTypeVoice, typ)
}

func TestResolveTypeStorageFailure(t *testing.T) {
	repo := newRepo()
	repo.err = errorx.Wrap(errors.New("conn refused"), errorx.CodeDBError, "查询频道")
	svc := NewChannelService(repo, nil, time.Second, time.Minute)

	_, err := svc.ResolveType(context.Background(), "text-1")
	require.Error(t, err)
	assert.Equal(t, errorx.CodeDBError, errorx.GetCode(err))
}

func TestGetAndListChannels(t *testing.T) {
	svc := NewChannelService(newRepo(), nil, time.Second, time.Minute)

	ch, err := svc.GetChannel(context.Background(), "voice-1")
	require.NoError(t, err)
	assert.Equal(t, "lounge", ch.Name)
	assert.Equal(t, "VOICE", ch.Type)

	list, err := svc.ListChannels(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"channel_chat_server/internal/config"
	"channel_chat_server/internal/dao/gormdb/repository"
	myredis "channel_chat_server/internal/dao/redis"
	"channel_chat_server/internal/dto/event"
	"channel_chat_server/internal/handler"
	"channel_chat_server/internal/https_server"
	"channel_chat_server/internal/infrastructure/metrics"
	"channel_chat_server/internal/model"
	"channel_chat_server/internal/seed"
	"channel_chat_server/internal/service"
	"channel_chat_server/internal/service/chat"
	"channel_chat_server/internal/validation"
	"channel_chat_server/internal/chatclient"
	"channel_chat_server/pkg/errorx"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 3 * time.Second
	tick    = 10 * time.Millisecond
)

// memStore 内存版存储，满足三个 Repository 接口
type memStore struct {
	mu       sync.Mutex
	users    map[string]model.User
	channels map[string]model.Channel
	messages []model.Message
}

func newMemStore() *memStore {
	return &memStore{users: map[string]model.User{}, channels: map[string]model.Channel{}}
}

func (s *memStore) repositories() *repository.Repositories {
	return &repository.Repositories{
		User:    memUsers{s},
		Channel: memChannels{s},
		Message: memMessages{s},
	}
}

func notFound() error {
	return errorx.New(errorx.CodeNotFound, "record not found")
}

type memUsers struct{ s *memStore }

func (m memUsers) FindByID(ctx context.Context, id string) (*model.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	u, ok := m.s.users[id]
	if !ok {
		return nil, notFound()
	}
	return &u, nil
}

func (m memUsers) FindByIDs(ctx context.Context, ids []string) ([]model.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []model.User
	for _, id := range ids {
		if u, ok := m.s.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m memUsers) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, u := range m.s.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, notFound()
}

func (m memUsers) Create(ctx context.Context, user *model.User) error {
	if err := user.BeforeCreate(nil); err != nil {
		return err
	}
	if err := user.BeforeSave(nil); err != nil {
		return err
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.users[user.ID] = *user
	return nil
}

type memChannels struct{ s *memStore }

func (m memChannels) FindByID(ctx context.Context, id string) (*model.Channel, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	c, ok := m.s.channels[id]
	if !ok {
		return nil, notFound()
	}
	return &c, nil
}

func (m memChannels) FindByName(ctx context.Context, name string) (*model.Channel, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, c := range m.s.channels {
		if c.Name == name {
			return &c, nil
		}
	}
	return nil, notFound()
}

func (m memChannels) List(ctx context.Context) ([]model.Channel, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	out := make([]model.Channel, 0, len(m.s.channels))
	for _, c := range m.s.channels {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (m memChannels) Create(ctx context.Context, channel *model.Channel) error {
	if err := channel.BeforeCreate(nil); err != nil {
		return err
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.channels[channel.ID] = *channel
	return nil
}

type memMessages struct{ s *memStore }

func (m memMessages) Create(ctx context.Context, message *model.Message) error {
	if err := message.BeforeCreate(nil); err != nil {
		return err
	}
	now := time.Now()
	message.CreatedAt, message.UpdatedAt = now, now
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.messages = append(m.s.messages, *message)
	return nil
}

func (m memMessages) FindLatestByChannel(ctx context.Context, channelID string, limit int) ([]model.Message, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []model.Message
	for i := len(m.s.messages) - 1; i >= 0 && len(out) < limit; i-- {
		if m.s.messages[i].ChannelID == channelID {
			out = append(out, m.s.messages[i])
		}
	}
	return out, nil
}

type apiEnvelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// stack 组装完整的服务：存储、Service、ChatServer 与 HTTP 路由
type stack struct {
	server   *httptest.Server
	chat     *chat.ChatServer
	users    map[string]model.User
	channels map[string]model.Channel
}

func newStack(t *testing.T, repos *repository.Repositories, cache myredis.AsyncCacheService, seeded *seed.Result) *stack {
	t.Helper()
	conf := config.Default()

	v, err := validation.New(conf.Locale)
	require.NoError(t, err)
	v.Install()

	svc := service.NewServices(repos, cache, &conf.ChatConfig)
	m := metrics.New(prometheus.NewRegistry())
	chatServer, err := chat.NewChatServer(chat.ChatServerConfig{
		Mode:      chat.ModeChannel,
		Channels:  svc.Channel,
		Messages:  svc.Message,
		Validator: v,
		Metrics:   m,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = chatServer.Start(ctx) }()

	engine := https_server.Init(conf, handler.NewHandlers(svc, chatServer, false), https_server.Options{Metrics: m.Handler()})
	srv := httptest.NewServer(engine)
	t.Cleanup(func() {
		srv.Close()
		cancel()
		_ = chatServer.Close()
	})

	st := &stack{server: srv, chat: chatServer, users: map[string]model.User{}, channels: map[string]model.Channel{}}
	for _, u := range seeded.Users {
		st.users[u.Username] = u
	}
	for _, c := range seeded.Channels {
		st.channels[c.Name] = c
	}
	return st
}

func (st *stack) do(t *testing.T, method, path string, body any) (int, apiEnvelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, st.server.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := st.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env apiEnvelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func (st *stack) client(t *testing.T, username, channel string, onError func(event.ErrorPayload)) *chatclient.Reconciler {
	t.Helper()
	r := chatclient.New(chatclient.Config{
		BaseURL:      st.server.URL,
		UserId:       st.users[username].ID,
		ChannelId:    st.channels[channel].ID,
		HistoryLimit: 20,
		NewBackOff:   func() backoff.BackOff { return backoff.NewConstantBackOff(20 * time.Millisecond) },
		OnError:      onError,
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = r.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return r
}

func contents(r *chatclient.Reconciler) []string {
	var out []string
	for _, m := range r.View().Messages() {
		if m.Content != nil {
			out = append(out, *m.Content)
		}
	}
	return out
}

func seedMemory(t *testing.T) (*repository.Repositories, *seed.Result) {
	t.Helper()
	repos := newMemStore().repositories()
	seeded, err := seed.Apply(context.Background(), repos.User, repos.Channel, seed.DefaultPlan())
	require.NoError(t, err)
	return repos, seeded
}

func TestSmoke_HTTPRoutes(t *testing.T) {
	repos, seeded := seedMemory(t)
	st := newStack(t, repos, nil, seeded)
	general := st.channels["general"].ID
	alice := st.users["alice"].ID

	status, env := st.do(t, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, errorx.CodeSuccess, env.Code)

	status, env = st.do(t, http.MethodGet, "/api/channels", nil)
	require.Equal(t, http.StatusOK, status)
	var channels []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &channels))
	require.Len(t, channels, 3)
	assert.Equal(t, "general", channels[0]["name"])

	status, _ = st.do(t, http.MethodGet, "/api/channels/"+general, nil)
	assert.Equal(t, http.StatusOK, status)

	status, env = st.do(t, http.MethodGet, "/api/channels/33333333-3333-4333-8333-333333333333", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, errorx.CodeNotFound, env.Code)

	status, _ = st.do(t, http.MethodPost, "/api/messages", map[string]any{
		"channelId": general, "userId": alice, "content": "  ",
	})
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = st.do(t, http.MethodPost, "/api/messages", map[string]any{
		"channelId": general, "userId": alice, "content": "hello over http",
	})
	require.Equal(t, http.StatusCreated, status)
	var created map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "hello over http", created["content"])

	status, env = st.do(t, http.MethodGet, "/api/channels/"+general+"/messages?limit=5", nil)
	require.Equal(t, http.StatusOK, status)
	var history []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &history))
	require.Len(t, history, 1)
	assert.Equal(t, "alice", history[0]["user"].(map[string]any)["username"])

	status, _ = st.do(t, http.MethodGet, "/api/realtime/stats", nil)
	assert.Equal(t, http.StatusOK, status)

	resp, err := st.server.Client().Get(st.server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), "channel_chat_connections_active"))
}

func TestSmoke_RealtimeRoundTrip(t *testing.T) {
	repos, seeded := seedMemory(t)
	st := newStack(t, repos, nil, seeded)
	general := st.channels["general"].ID

	status, _ := st.do(t, http.MethodPost, "/api/messages", map[string]any{
		"channelId": general, "userId": st.users["alice"].ID, "content": "earlier",
	})
	require.Equal(t, http.StatusCreated, status)

	alice := st.client(t, "alice", "general", nil)
	bob := st.client(t, "bob", "general", nil)
	require.Eventually(t, func() bool {
		return alice.State() == chatclient.StateJoined && bob.State() == chatclient.StateJoined
	}, waitFor, tick)
	require.Eventually(t, func() bool { return alice.View().Len() == 1 }, waitFor, tick)

	require.NoError(t, bob.Send("hi from bob", ""))
	require.Eventually(t, func() bool { return alice.View().Len() == 2 && bob.View().Len() == 2 }, waitFor, tick)
	assert.Equal(t, []string{"earlier", "hi from bob"}, contents(alice))

	last := alice.View().Messages()[1]
	assert.Equal(t, st.users["bob"].ID, last.UserId)
	assert.Equal(t, "bob", last.User.Username)

	// HTTP 写入不会推送给在线订阅者
	status, _ = st.do(t, http.MethodPost, "/api/messages", map[string]any{
		"channelId": general, "userId": st.users["bob"].ID, "content": "silent",
	})
	require.Equal(t, http.StatusCreated, status)
	assert.Never(t, func() bool { return alice.View().Len() > 2 }, 200*time.Millisecond, tick)

	stats := st.chat.Registry().Stats()
	assert.Equal(t, 2, stats.Connections)
	assert.Equal(t, 2, stats.Subscriptions)
}

func TestSmoke_VoiceChannelRejected(t *testing.T) {
	repos, seeded := seedMemory(t)
	st := newStack(t, repos, nil, seeded)

	errs := make(chan event.ErrorPayload, 4)
	r := st.client(t, "alice", "lounge", func(p event.ErrorPayload) { errs <- p })

	select {
	case p := <-errs:
		assert.Equal(t, event.JoinChannel, p.Event)
		assert.Equal(t, errorx.ErrVoiceChannel.Code, p.Code)
	case <-time.After(waitFor):
		t.Fatal("no error event for voice channel")
	}
	assert.NotEqual(t, chatclient.StateJoined, r.State())
	assert.Equal(t, 0, st.chat.Registry().Stats().Subscriptions)

	// HTTP 写入同样拒绝语音频道
	status, env := st.do(t, http.MethodPost, "/api/messages", map[string]any{
		"channelId": st.channels["lounge"].ID, "userId": st.users["alice"].ID, "content": "hello",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, errorx.CodeUnsupported, env.Code)
}

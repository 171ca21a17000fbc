package chat

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"channel_chat_server/internal/dto/event"
	"channel_chat_server/internal/dto/respond"
	"channel_chat_server/internal/model"
	"channel_chat_server/internal/validation"
	"channel_chat_server/pkg/errorx"

	"github.com/stretchr/testify/require"
)

const (
	textChannel  = "6f1c2d3e-0000-4000-8000-000000000001"
	otherChannel = "6f1c2d3e-0000-4000-8000-000000000002"
	voiceChannel = "6f1c2d3e-0000-4000-8000-000000000003"
	missingChan  = "6f1c2d3e-0000-4000-8000-0000000000ff"
	alice        = "a11ce000-0000-4000-8000-000000000001"
	bob          = "b0b00000-0000-4000-8000-000000000002"
)

type fakeConn struct {
	id      string
	mu      sync.Mutex
	frames  [][]byte
	closed  bool
	full    bool
	onClose func(string)
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id}
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnClosed
	}
	if c.full {
		return ErrSendBufferFull
	}
	c.frames = append(c.frames, append([]byte(nil), frame...))
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()
	if c.onClose != nil {
		c.onClose(c.id)
	}
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) events() []event.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]event.Envelope, 0, len(c.frames))
	for _, f := range c.frames {
		env, err := event.Decode(f)
		if err == nil {
			out = append(out, env)
		}
	}
	return out
}

func (c *fakeConn) eventsNamed(name string) []event.Envelope {
	var out []event.Envelope
	for _, env := range c.events() {
		if env.Event == name {
			out = append(out, env)
		}
	}
	return out
}

func (c *fakeConn) lastError(t *testing.T) event.ErrorPayload {
	t.Helper()
	errs := c.eventsNamed(event.Error)
	require.NotEmpty(t, errs, "expected an error event on %s", c.id)
	var payload event.ErrorPayload
	require.NoError(t, json.Unmarshal(errs[len(errs)-1].Data, &payload))
	return payload
}

func (c *fakeConn) newMessages(t *testing.T) []respond.MessageWithUser {
	t.Helper()
	var out []respond.MessageWithUser
	for _, env := range c.eventsNamed(event.NewMessage) {
		var m respond.MessageWithUser
		require.NoError(t, json.Unmarshal(env.Data, &m))
		out = append(out, m)
	}
	return out
}

type fakeChannels struct {
	mu    sync.Mutex
	types map[string]model.ChannelType
	err   error
	calls int
}

func newFakeChannels() *fakeChannels {
	return &fakeChannels{types: map[string]model.ChannelType{
		textChannel:  model.ChannelTypeText,
		otherChannel: model.ChannelTypeText,
		voiceChannel: model.ChannelTypeVoice,
	}}
}

func (f *fakeChannels) ResolveType(ctx context.Context, channelId string) (model.ChannelType, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	t, ok := f.types[channelId]
	if !ok {
		return "", errorx.Newf(errorx.CodeNotFound, "频道 %s 不存在", channelId)
	}
	return t, nil
}

func (f *fakeChannels) GetChannel(ctx context.Context, channelId string) (*respond.ChannelRespond, error) {
	return nil, errorx.New(errorx.CodeNotFound, "not used")
}

func (f *fakeChannels) ListChannels(ctx context.Context) ([]respond.ChannelRespond, error) {
	return nil, nil
}

type fakeMessages struct {
	mu        sync.Mutex
	appended  []model.Message
	users     map[string]string
	appendErr error
	authorErr error
	// afterAppend 在写入成功后调用
	afterAppend func()
}

func newFakeMessages() *fakeMessages {
	return &fakeMessages{users: map[string]string{alice: "alice", bob: "bob"}}
}

func (f *fakeMessages) Append(ctx context.Context, channelId, userId, content, imageUrl string) (*model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return nil, f.appendErr
	}
	content = strings.TrimSpace(content)
	if content == "" && imageUrl == "" {
		return nil, errorx.ErrEmptyMessage
	}
	m := model.Message{
		ID:        "m" + strconv.Itoa(len(f.appended)+1),
		ChannelID: channelId,
		UserID:    userId,
		CreatedAt: time.Date(2024, 1, 1, 0, 0, len(f.appended), 0, time.UTC),
	}
	if content != "" {
		m.Content = &content
	}
	if imageUrl != "" {
		m.ImageURL = &imageUrl
	}
	m.UpdatedAt = m.CreatedAt
	f.appended = append(f.appended, m)
	if f.afterAppend != nil {
		f.afterAppend()
	}
	return &m, nil
}

func (f *fakeMessages) ResolveAuthor(ctx context.Context, userId string) (respond.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return respond.UserProfile{}, errorx.Wrap(err, errorx.CodeDBError, "查询用户失败")
	}
	if f.authorErr != nil {
		return respond.UserProfile{}, f.authorErr
	}
	name, ok := f.users[userId]
	if !ok {
		return respond.PlaceholderProfile(userId), nil
	}
	return respond.UserProfile{Id: userId, Username: name}, nil
}

func (f *fakeMessages) Create(ctx context.Context, channelId, userId, content, imageUrl string) (*respond.MessageWithUser, error) {
	m, err := f.Append(ctx, channelId, userId, content, imageUrl)
	if err != nil {
		return nil, err
	}
	author, _ := f.ResolveAuthor(ctx, userId)
	out := respond.NewMessageWithUser(m, author)
	return &out, nil
}

func (f *fakeMessages) History(ctx context.Context, channelId string, limit int) ([]respond.MessageWithUser, error) {
	return nil, nil
}

func (f *fakeMessages) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.appended)
}

type testServer struct {
	*ChatServer
	channels *fakeChannels
	messages *fakeMessages
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	v, err := validation.New("en")
	require.NoError(t, err)

	channels := newFakeChannels()
	messages := newFakeMessages()
	srv, err := NewChatServer(ChatServerConfig{
		Mode:      ModeChannel,
		Channels:  channels,
		Messages:  messages,
		Validator: v,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = srv.Start(ctx) }()
	t.Cleanup(func() {
		cancel()
		_ = srv.Close()
	})
	return &testServer{ChatServer: srv, channels: channels, messages: messages}
}

// connect 登记一个假连接
func (s *testServer) connect(t *testing.T, id string) *fakeConn {
	t.Helper()
	conn := newFakeConn(id)
	conn.onClose = s.Detach
	require.NoError(t, s.Attach(conn))
	return conn
}

func (s *testServer) emit(t *testing.T, conn *fakeConn, name string, payload any) {
	t.Helper()
	frame, err := event.Encode(name, payload)
	require.NoError(t, err)
	s.HandleFrame(context.Background(), conn, frame)
}

func (s *testServer) login(t *testing.T, conn *fakeConn, userId string) {
	t.Helper()
	s.emit(t, conn, event.Authenticate, map[string]string{"userId": userId})
	require.Len(t, conn.eventsNamed(event.Authenticated), 1)
}

func (s *testServer) join(t *testing.T, conn *fakeConn, channelId string) {
	t.Helper()
	before := len(conn.eventsNamed(event.Joined))
	s.emit(t, conn, event.JoinChannel, map[string]string{"channelId": channelId})
	require.Len(t, conn.eventsNamed(event.Joined), before+1)
}

//go:build integration
// +build integration

package repository_test

import (
	"context"
	"os"
	"testing"
	"time"

	"channel_chat_server/internal/dao/gormdb"
	"channel_chat_server/internal/dao/gormdb/repository"
	"channel_chat_server/internal/model"
	"channel_chat_server/pkg/errorx"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// 需要设置 CHAT_TEST_DRIVER 与 CHAT_TEST_DSN，例如
// CHAT_TEST_DRIVER=postgres CHAT_TEST_DSN="host=127.0.0.1 user=postgres password=postgres dbname=chat_test sslmode=disable"
func openRepos(t *testing.T) *repository.Repositories {
	t.Helper()
	driver, dsn := os.Getenv("CHAT_TEST_DRIVER"), os.Getenv("CHAT_TEST_DSN")
	if driver == "" || dsn == "" {
		t.Skip("CHAT_TEST_DRIVER / CHAT_TEST_DSN not set")
	}
	dialector, err := gormdb.Dialector(driver, dsn)
	require.NoError(t, err)
	db, err := gorm.Open(dialector, &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gormdb.Migrate(db))
	t.Cleanup(func() { _ = gormdb.Close(db) })
	return repository.NewRepositories(db)
}

func TestMessageRoundTrip(t *testing.T) {
	repos := openRepos(t)
	ctx := context.Background()
	suffix := uuid.NewString()[:8]

	user := &model.User{Username: "it_" + suffix, Email: suffix + "@example.com", RawPassword: "secret"}
	require.NoError(t, repos.User.Create(ctx, user))
	channel := &model.Channel{Name: "it-" + suffix, CreatedByID: user.ID}
	require.NoError(t, repos.Channel.Create(ctx, channel))
	assert.Equal(t, model.ChannelTypeText, channel.Type)

	for _, text := range []string{"one", "two", "three"} {
		content := text
		require.NoError(t, repos.Message.Create(ctx, &model.Message{
			Content: &content, ChannelID: channel.ID, UserID: user.ID,
		}))
		time.Sleep(5 * time.Millisecond)
	}

	latest, err := repos.Message.FindLatestByChannel(ctx, channel.ID, 2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "three", *latest[0].Content)
	assert.Equal(t, "two", *latest[1].Content)

	_, err = repos.Channel.FindByID(ctx, uuid.NewString())
	assert.Equal(t, errorx.CodeNotFound, errorx.GetCode(err))

	users, err := repos.User.FindByIDs(ctx, []string{user.ID, uuid.NewString()})
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

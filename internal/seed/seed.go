// Package seed 初始化演示用户与频道，可重复执行
package seed

import (
	"context"
	"fmt"

	"channel_chat_server/internal/dao/gormdb/repository"
	"channel_chat_server/internal/model"
	"channel_chat_server/pkg/errorx"
)

// UserSpec 待创建用户
type UserSpec struct {
	Username string
	Email    string
	Password string
}

// ChannelSpec 待创建频道
type ChannelSpec struct {
	Name     string
	Type     model.ChannelType
	Position int
}

// Plan 种子数据，频道的创建者为第一个用户
type Plan struct {
	Users    []UserSpec
	Channels []ChannelSpec
}

// Result 执行结果，包含已存在与新建的记录
type Result struct {
	Users    []model.User
	Channels []model.Channel
	Created  int
}

// DefaultPlan 两个演示用户，一个文字频道与一个语音频道
func DefaultPlan() Plan {
	return Plan{
		Users: []UserSpec{
			{Username: "alice", Email: "alice@example.com", Password: "password123"},
			{Username: "bob", Email: "bob@example.com", Password: "password123"},
		},
		Channels: []ChannelSpec{
			{Name: "general", Type: model.ChannelTypeText, Position: 0},
			{Name: "random", Type: model.ChannelTypeText, Position: 1},
			{Name: "lounge", Type: model.ChannelTypeVoice, Position: 2},
		},
	}
}

// Run 在一个事务内按用户名、频道名幂等创建
func Run(ctx context.Context, repos *repository.Repositories, plan Plan) (*Result, error) {
	var result *Result
	err := repos.Transaction(ctx, func(tx *repository.Repositories) error {
		var err error
		result, err = Apply(ctx, tx.User, tx.Channel, plan)
		return err
	})
	return result, err
}

// Apply 不带事务的执行逻辑
func Apply(ctx context.Context, users repository.UserRepository, channels repository.ChannelRepository, plan Plan) (*Result, error) {
	if len(plan.Channels) > 0 && len(plan.Users) == 0 {
		return nil, errorx.New(errorx.CodeInvalidParam, "创建频道至少需要一个用户")
	}
	result := &Result{}

	for _, spec := range plan.Users {
		user, err := users.FindByUsername(ctx, spec.Username)
		if err == nil {
			result.Users = append(result.Users, *user)
			continue
		}
		if !errorx.IsNotFound(err) {
			return nil, err
		}
		user = &model.User{Username: spec.Username, Email: spec.Email, RawPassword: spec.Password}
		if err := users.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("create user %s: %w", spec.Username, err)
		}
		result.Users = append(result.Users, *user)
		result.Created++
	}

	for _, spec := range plan.Channels {
		channel, err := channels.FindByName(ctx, spec.Name)
		if err == nil {
			result.Channels = append(result.Channels, *channel)
			continue
		}
		if !errorx.IsNotFound(err) {
			return nil, err
		}
		channel = &model.Channel{
			Name:        spec.Name,
			Type:        spec.Type,
			Position:    spec.Position,
			CreatedByID: result.Users[0].ID,
		}
		if err := channels.Create(ctx, channel); err != nil {
			return nil, fmt.Errorf("create channel %s: %w", spec.Name, err)
		}
		result.Channels = append(result.Channels, *channel)
		result.Created++
	}
	return result, nil
}

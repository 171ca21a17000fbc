package chat

import (
	"context"

	"channel_chat_server/internal/dto/request"
	"channel_chat_server/pkg/errorx"
	"channel_chat_server/pkg/util/jwt"
)

// Authenticator 将 authenticate 事件解析为用户 ID
type Authenticator interface {
	Authenticate(ctx context.Context, req *request.AuthenticateRequest) (string, error)
}

type trustAuthenticator struct{}

// NewTrustAuthenticator 直接信任客户端提供的 userId，未开启 JWT 时使用
func NewTrustAuthenticator() Authenticator {
	return trustAuthenticator{}
}

func (trustAuthenticator) Authenticate(ctx context.Context, req *request.AuthenticateRequest) (string, error) {
	if req.UserId == "" {
		return "", errorx.New(errorx.CodeInvalidParam, "userId不能为空")
	}
	return req.UserId, nil
}

type tokenAuthenticator struct {
	tokens *jwt.Manager
}

// NewTokenAuthenticator 要求携带 Access Token，userId 同时提供时必须与 Token 一致
func NewTokenAuthenticator(tokens *jwt.Manager) Authenticator {
	return &tokenAuthenticator{tokens: tokens}
}

func (a *tokenAuthenticator) Authenticate(ctx context.Context, req *request.AuthenticateRequest) (string, error) {
	if req.Token == "" {
		return "", errorx.New(errorx.CodeUnauthorized, "缺少token")
	}
	claims, err := a.tokens.ParseAccessToken(req.Token)
	if err != nil {
		return "", errorx.Wrap(err, errorx.CodeUnauthorized, "token无效或已过期")
	}
	if req.UserId != "" && req.UserId != claims.UserID {
		return "", errorx.ErrUserMismatch
	}
	return claims.UserID, nil
}

package chatclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"channel_chat_server/internal/dto/respond"
	"channel_chat_server/pkg/errorx"
)

type historyEnvelope struct {
	Code int                       `json:"code"`
	Msg  string                    `json:"msg"`
	Data []respond.MessageWithUser `json:"data"`
}

// FetchHistory 获取频道最近 limit 条消息，服务端已按时间升序返回
func FetchHistory(ctx context.Context, client *http.Client, baseURL, channelId string, limit int) ([]respond.MessageWithUser, error) {
	endpoint := strings.TrimRight(baseURL, "/") + "/api/channels/" + url.PathEscape(channelId) + "/messages"
	if limit > 0 {
		endpoint += "?limit=" + strconv.Itoa(limit)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build history request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}
	defer resp.Body.Close()

	var env historyEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode history (status %d): %w", resp.StatusCode, err)
	}
	if env.Code != errorx.CodeSuccess {
		return nil, errorx.New(env.Code, env.Msg)
	}
	return env.Data, nil
}

package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ChatConfig 聊天消息网关配置
type ChatConfig struct {
	BaseURL  string
	APIKey   string
	SenderID string
}

// ChatSender 通过 HTTP 网关发送聊天消息
type ChatSender struct {
	cfg        ChatConfig
	httpClient *http.Client
}

type chatSendRequest struct {
	SenderID string `json:"senderId,omitempty"`
	Phone    string `json:"phone"`
	Message  string `json:"message"`
}

type chatSendResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// NewChatSender 创建聊天消息发送器
func NewChatSender(cfg ChatConfig, httpClient *http.Client) (*ChatSender, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("chat api url is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &ChatSender{cfg: cfg, httpClient: httpClient}, nil
}

// Send 发送一条聊天消息
func (s *ChatSender) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(chatSendRequest{
		SenderID: s.cfg.SenderID,
		Phone:    msg.To,
		Message:  msg.Body,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal chat request: %w", err)
	}

	url := strings.TrimRight(s.cfg.BaseURL, "/") + "/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	}

	res, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send chat message: %w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if res.StatusCode >= 300 {
		return fmt.Errorf("chat api returned %d: %s", res.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out chatSendResponse
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
		if !out.Success {
			return fmt.Errorf("chat api rejected message: %s", out.Message)
		}
	}
	return nil
}

package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Resolver 定义身份服务的邮箱解析接口。
type Resolver interface {
	// ResolveEmail 解析用户的主邮箱地址。用户存在但没有任何邮箱时
	// 返回空字符串且无错误，由调用方决定如何处理。
	ResolveEmail(ctx context.Context, userID string) (string, error)
}

// Client 身份服务 HTTP 客户端（兼容 Clerk 风格的用户 API）。
type Client struct {
	baseURL   string
	secretKey string
	client    *http.Client
}

// NewClient 创建身份服务客户端。
func NewClient(baseURL, secretKey string) *Client {
	return &Client{
		baseURL:   baseURL,
		secretKey: secretKey,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// providerUser 身份服务返回的用户结构（只取邮箱相关字段）。
type providerUser struct {
	PrimaryEmailAddressID string `json:"primary_email_address_id"`
	EmailAddresses        []struct {
		ID           string `json:"id"`
		EmailAddress string `json:"email_address"`
	} `json:"email_addresses"`
}

// ResolveEmail 查询身份服务并返回用户的邮箱地址。
// 优先返回主邮箱，主邮箱缺失时退回列表中的第一个邮箱。
func (c *Client) ResolveEmail(ctx context.Context, userID string) (string, error) {
	url := fmt.Sprintf("%s/v1/users/%s", c.baseURL, userID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to get user: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var user providerUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	for _, addr := range user.EmailAddresses {
		if addr.ID == user.PrimaryEmailAddressID && addr.EmailAddress != "" {
			return addr.EmailAddress, nil
		}
	}
	if len(user.EmailAddresses) > 0 {
		return user.EmailAddresses[0].EmailAddress, nil
	}
	return "", nil
}

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/valyala/fasthttp"
)

const discordAPIBase = "https://discord.com/api/v10"

// DiscordClient calls the Discord REST API on behalf of a user who signed in
// with OAuth2.
type DiscordClient struct {
	baseURL     string
	client      *fasthttp.Client
	rateLimitMu sync.RWMutex
	rateLimit   RateLimitInfo
}

type RateLimitInfo struct {
	Bucket    string `json:"bucket"`
	Limit     int    `json:"limit"`
	Remaining int    `json:"remaining"`

	// seconds until reset
	ResetAfter float64 `json:"reset_after"`

	UpdatedAt time.Time `json:"updated_at"`
}

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("discord API error: %d %s", e.Status, e.Body)
}

func NewDiscordClient() *DiscordClient {
	return NewDiscordClientWithBase(discordAPIBase)
}

func NewDiscordClientWithBase(baseURL string) *DiscordClient {
	return &DiscordClient{
		baseURL: baseURL,
		client: &fasthttp.Client{
			MaxConnsPerHost:     50,
			ReadTimeout:         10 * time.Second,
			WriteTimeout:        10 * time.Second,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		rateLimit: RateLimitInfo{UpdatedAt: time.Now()},
	}
}

func (c *DiscordClient) GetRateLimitInfo() RateLimitInfo {
	c.rateLimitMu.RLock()
	defer c.rateLimitMu.RUnlock()
	return c.rateLimit
}

func (c *DiscordClient) updateRateLimit(resp *fasthttp.Response) {
	c.rateLimitMu.Lock()
	defer c.rateLimitMu.Unlock()

	if bucket := string(resp.Header.Peek("X-RateLimit-Bucket")); bucket != "" {
		c.rateLimit.Bucket = bucket
	}
	if limit := string(resp.Header.Peek("X-RateLimit-Limit")); limit != "" {
		if val, err := strconv.Atoi(limit); err == nil {
			c.rateLimit.Limit = val
		}
	}
	if remaining := string(resp.Header.Peek("X-RateLimit-Remaining")); remaining != "" {
		if val, err := strconv.Atoi(remaining); err == nil {
			c.rateLimit.Remaining = val
		}
	}
	if reset := string(resp.Header.Peek("X-RateLimit-Reset-After")); reset != "" {
		if val, err := strconv.ParseFloat(reset, 64); err == nil {
			c.rateLimit.ResetAfter = val
		}
	}
	c.rateLimit.UpdatedAt = time.Now()
}

type DiscordUser struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
	Avatar     string `json:"avatar"`
}

type DiscordGuild struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Owner bool   `json:"owner"`
}

func (c *DiscordClient) GetCurrentUser(ctx context.Context, accessToken string) (*DiscordUser, error) {
	return doRequest[DiscordUser](ctx, c, c.baseURL+"/users/@me", accessToken)
}

func (c *DiscordClient) GetCurrentUserGuilds(ctx context.Context, accessToken string) ([]DiscordGuild, error) {
	guilds, err := doRequest[[]DiscordGuild](ctx, c, c.baseURL+"/users/@me/guilds", accessToken)
	if err != nil {
		return nil, err
	}
	return *guilds, nil
}

func doRequest[T any](ctx context.Context, client *DiscordClient, url, accessToken string) (*T, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	deadline, ok := ctx.Deadline()
	if ok {
		if err := client.client.DoDeadline(req, resp, deadline); err != nil {
			return nil, err
		}
	} else {
		if err := client.client.Do(req, resp); err != nil {
			return nil, err
		}
	}

	client.updateRateLimit(resp)

	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, &APIError{Status: resp.StatusCode(), Body: string(resp.Body())}
	}

	var result T
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

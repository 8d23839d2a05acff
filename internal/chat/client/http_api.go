package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"campus_chat_service/internal/chat/domain"

	"github.com/valyala/fasthttp"
)

const messagesPath = "/api/chat/messages"

// HTTPAPI request/response path: history fetch and fallback compose
type HTTPAPI struct {
	base    string
	token   string
	timeout time.Duration
	client  *fasthttp.Client
}

// NewHTTPAPI base like http://localhost:5001
func NewHTTPAPI(base, token string, timeout time.Duration) *HTTPAPI {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPAPI{
		base:    strings.TrimRight(base, "/"),
		token:   token,
		timeout: timeout,
		client:  &fasthttp.Client{Name: "campus-chat-client"},
	}
}

type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Messages []json.RawMessage `json:"messages"`
		Message  json.RawMessage   `json:"message"`
	} `json:"data"`
}

// History recent window, oldest first
func (a *HTTPAPI) History(ctx context.Context) ([]Entry, error) {
	env, err := a.do(ctx, fasthttp.MethodGet, nil)
	if err != nil {
		return nil, err
	}
	return DecodeMessages(env.Data.Messages)
}

// Post compose through the fallback endpoint
func (a *HTTPAPI) Post(ctx context.Context, text, replyTo string) (Entry, error) {
	body, err := json.Marshal(struct {
		Text    string `json:"text"`
		ReplyTo string `json:"replyTo,omitempty"`
	}{text, replyTo})
	if err != nil {
		return Entry{}, err
	}

	env, err := a.do(ctx, fasthttp.MethodPost, body)
	if err != nil {
		return Entry{}, err
	}
	return DecodeMessage(env.Data.Message)
}

func (a *HTTPAPI) do(ctx context.Context, method string, body []byte) (*envelope, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, messagesPath, domain.ErrTransport)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(a.base + messagesPath)
	req.Header.SetMethod(method)
	req.Header.Set(fasthttp.HeaderAuthorization, "Bearer "+a.token)
	if body != nil {
		req.Header.SetContentType("application/json")
		req.SetBody(body)
	}

	deadline := time.Now().Add(a.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := a.client.DoDeadline(req, resp, deadline); err != nil {
		return nil, fmt.Errorf("%s %s: %v: %w", method, messagesPath, err, domain.ErrTransport)
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return nil, fmt.Errorf("%s %s: status %d: %w", method, messagesPath, resp.StatusCode(), domain.ErrStore)
	}

	switch code := resp.StatusCode(); {
	case code < 300:
		return &env, nil
	case code == fasthttp.StatusBadRequest:
		return nil, &domain.ValidationError{Msg: env.Message}
	case code == fasthttp.StatusUnauthorized:
		return nil, fmt.Errorf("%s: %w", env.Message, domain.ErrUnauthorized)
	case code == fasthttp.StatusTooManyRequests:
		return nil, fmt.Errorf("%s: %w", env.Message, domain.ErrRateLimited)
	default:
		return nil, fmt.Errorf("%s: %w", env.Message, domain.ErrStore)
	}
}

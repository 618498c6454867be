// Package telegram is a small Bot API client: it sends text messages and
// documents and defines the update types received on the webhook.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultAPIURL is the public Bot API endpoint.
const DefaultAPIURL = "https://api.telegram.org"

// APIError is an answer with ok=false.
type APIError struct {
	Method      string
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s: %d %s", e.Method, e.Code, e.Description)
}

// Client calls the Bot API for a single bot token.
type Client struct {
	apiURL     string
	token      string
	httpClient *http.Client
}

// NewClient builds a Client. Empty apiURL means DefaultAPIURL; a nil hc
// gets a 10s timeout client.
func NewClient(apiURL, token string, hc *http.Client) *Client {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		apiURL:     strings.TrimRight(apiURL, "/"),
		token:      token,
		httpClient: hc,
	}
}

func (c *Client) endpoint(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.apiURL, c.token, method)
}

// SendMessage sends text with Markdown formatting. markup may be nil.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, markup *ReplyKeyboardMarkup) error {
	params := url.Values{
		"chat_id":    {strconv.FormatInt(chatID, 10)},
		"text":       {text},
		"parse_mode": {"Markdown"},
	}
	if markup != nil {
		b, err := json.Marshal(markup)
		if err != nil {
			return err
		}
		params.Set("reply_markup", string(b))
	}

	err := c.postForm(ctx, "sendMessage", params)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusBadRequest &&
		strings.Contains(apiErr.Description, "parse entities") {
		// Payload text broke Markdown; resend it unformatted.
		params.Del("parse_mode")
		return c.postForm(ctx, "sendMessage", params)
	}
	return err
}

// SendDocument uploads data as a file named filename.
func (c *Client) SendDocument(ctx context.Context, chatID int64, filename string, data []byte, caption string) error {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	_ = w.WriteField("chat_id", strconv.FormatInt(chatID, 10))
	if caption != "" {
		_ = w.WriteField("caption", caption)
	}
	part, err := w.CreateFormFile("document", filename)
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("sendDocument"), &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.do(req, "sendDocument")
}

// DeliverText implements services.Notifier.
func (c *Client) DeliverText(ctx context.Context, chatID int64, text string) error {
	return c.SendMessage(ctx, chatID, text, nil)
}

// DeliverDocument implements services.Notifier.
func (c *Client) DeliverDocument(ctx context.Context, chatID int64, filename string, data []byte) error {
	return c.SendDocument(ctx, chatID, filename, data, "")
}

func (c *Client) postForm(ctx context.Context, method string, params url.Values) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(method), strings.NewReader(params.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, method)
}

func (c *Client) do(req *http.Request, method string) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		// The URL embeds the token; keep it out of logs and errors.
		return fmt.Errorf("telegram %s: request failed", method)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("telegram %s: read body: %w", method, err)
	}
	var out apiResponse[json.RawMessage]
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("telegram %s: http %d: decode: %w", method, resp.StatusCode, err)
	}
	if !out.Ok {
		code := out.ErrorCode
		if code == 0 {
			code = resp.StatusCode
		}
		log.Debug().Str("method", method).Int("code", code).Str("description", out.Description).Msg("telegram api error")
		return &APIError{Method: method, Code: code, Description: out.Description}
	}
	return nil
}

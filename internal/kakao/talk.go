package kakao

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"blogmate/internal/domain"
)

const memoSendPath = "/v2/api/talk/memo/default/send"

// TalkConfig holds configuration for creating a TalkClient.
type TalkConfig struct {
	// APIURL is the Kakao API root, normally https://kapi.kakao.com.
	APIURL string
	// HTTPClient is used for all requests. If nil, http.DefaultClient is used.
	HTTPClient *http.Client
}

// APIError is the error body returned by kapi.kakao.com.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       int    `json:"code"`
	Msg        string `json:"msg"`
}

func (e *APIError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return fmt.Sprintf("kakao api returned %d", e.StatusCode)
}

type link struct {
	WebURL       string `json:"web_url"`
	MobileWebURL string `json:"mobile_web_url"`
}

type textTemplate struct {
	ObjectType  string `json:"object_type"`
	Text        string `json:"text"`
	Link        link   `json:"link"`
	ButtonTitle string `json:"button_title,omitempty"`
}

var _ domain.MessageSender = (*TalkClient)(nil)

// TalkClient sends "memo" messages to the token owner's own KakaoTalk chat.
type TalkClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewTalkClient creates a TalkClient.
func NewTalkClient(c TalkConfig) (*TalkClient, error) {
	if c.APIURL == "" {
		return nil, fmt.Errorf("kakao: APIURL is required")
	}
	if _, err := url.Parse(c.APIURL); err != nil {
		return nil, fmt.Errorf("kakao: invalid APIURL %q: %w", c.APIURL, err)
	}
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &TalkClient{baseURL: strings.TrimRight(c.APIURL, "/"), httpClient: httpClient}, nil
}

// SendText posts msg as a text template. Text is sent as given; callers
// enforce the 200-character limit.
func (c *TalkClient) SendText(ctx context.Context, accessToken string, msg domain.TextMessage) error {
	tmpl, err := json.Marshal(textTemplate{
		ObjectType:  "text",
		Text:        msg.Text,
		Link:        link{WebURL: msg.LinkURL, MobileWebURL: msg.LinkURL},
		ButtonTitle: msg.ButtonTitle,
	})
	if err != nil {
		return fmt.Errorf("encode template: %w", err)
	}
	form := url.Values{"template_object": {string(tmpl)}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+memoSendPath, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send memo: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	apiErr := &APIError{StatusCode: resp.StatusCode}
	if jsonErr := json.Unmarshal(body, apiErr); jsonErr != nil {
		apiErr.Msg = strings.TrimSpace(string(body))
	}
	return apiErr
}

package kakao

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blogmate/internal/domain"
)

func newTalk(t *testing.T, handler http.HandlerFunc) *TalkClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewTalkClient(TalkConfig{APIURL: srv.URL + "/", HTTPClient: srv.Client()})
	require.NoError(t, err)
	return c
}

func TestTalkClient_SendText(t *testing.T) {
	c := newTalk(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, memoSendPath, r.URL.Path)
		assert.Equal(t, "Bearer A1", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseForm())

		var tmpl map[string]any
		require.NoError(t, json.Unmarshal([]byte(r.PostForm.Get("template_object")), &tmpl))
		assert.Equal(t, "text", tmpl["object_type"])
		assert.Equal(t, "새 글이 생성되었습니다", tmpl["text"])
		assert.Equal(t, "글 관리하기", tmpl["button_title"])
		linkObj, ok := tmpl["link"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "https://blog.example.com", linkObj["web_url"])
		assert.Equal(t, "https://blog.example.com", linkObj["mobile_web_url"])

		_, _ = w.Write([]byte(`{"result_code":0}`))
	})

	err := c.SendText(context.Background(), "A1", domain.TextMessage{
		Text: "새 글이 생성되었습니다", LinkURL: "https://blog.example.com", ButtonTitle: "글 관리하기",
	})
	require.NoError(t, err)
}

func TestTalkClient_SendTextRejected(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"kakao error body", http.StatusForbidden, `{"msg":"insufficient scopes.","code":-402}`, "insufficient scopes."},
		{"non-json body", http.StatusBadGateway, `upstream down`, "upstream down"},
		{"empty body", http.StatusInternalServerError, ``, "kakao api returned 500"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTalk(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			err := c.SendText(context.Background(), "A1", domain.TextMessage{Text: "hi"})
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantMsg, apiErr.Error())
		})
	}
}

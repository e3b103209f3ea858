package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureRequestID(captured *string) http.Handler {
	return RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*captured = RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
}

func TestRequestID_GeneratesNewID(t *testing.T) {
	var id string
	rec := httptest.NewRecorder()
	captureRequestID(&id).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotEmpty(t, id)
	assert.Equal(t, id, rec.Header().Get(RequestIDHeader))
}

func TestRequestID_InboundHeader(t *testing.T) {
	tests := []struct {
		name     string
		headerID string
		wantKeep bool
	}{
		{"valid alphanumeric with hyphens", "abc-123_DEF", true},
		{"dotted", "trace.0001", true},
		{"log forging with newline", "fake-id\nINJECTED: malicious", false},
		{"spaces", "has space", false},
		{"too long", strings.Repeat("a", 129), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var id string
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(RequestIDHeader, tt.headerID)
			rec := httptest.NewRecorder()
			captureRequestID(&id).ServeHTTP(rec, req)

			if tt.wantKeep {
				assert.Equal(t, tt.headerID, id)
			} else {
				assert.NotEqual(t, tt.headerID, id)
				assert.Len(t, id, 36)
			}
			assert.Equal(t, id, rec.Header().Get(RequestIDHeader))
		})
	}
}

func TestRequestIDFromContext_Empty(t *testing.T) {
	assert.Empty(t, RequestIDFromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context()))
}

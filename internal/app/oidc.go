package app

import (
	"context"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
)

// oidcClientContext makes go-oidc use httpClient for discovery and JWKS.
func oidcClientContext(ctx context.Context, httpClient *http.Client) context.Context {
	if httpClient == nil {
		return ctx
	}
	return oidc.ClientContext(ctx, httpClient)
}

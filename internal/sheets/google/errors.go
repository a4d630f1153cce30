package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"github.com/brandonwu32/financedashboard/internal/core"
	ports "github.com/brandonwu32/financedashboard/internal/sheets"
)

// classify maps an API failure to a core error kind. Rate limiting, server
// errors and timeouts are transient; everything else needs a human.
func classify(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == http.StatusTooManyRequests || gerr.Code >= http.StatusInternalServerError:
			return core.E(core.ErrUpstreamTransient, op, err)
		case gerr.Code == http.StatusNotFound:
			return core.E(core.ErrUpstreamPermanent, op, fmt.Errorf("%w: %w", ports.ErrNotFound, err))
		default:
			return core.E(core.ErrUpstreamPermanent, op, err)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return core.E(core.ErrUpstreamTransient, op, err)
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return core.E(core.ErrUpstreamTransient, op, err)
	}
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		if rerr.Response != nil && rerr.Response.StatusCode >= http.StatusInternalServerError {
			return core.E(core.ErrUpstreamTransient, op, err)
		}
		return core.E(core.ErrUpstreamPermanent, op, err)
	}
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return core.E(core.ErrUpstreamTransient, op, err)
	}
	return core.E(core.ErrUpstreamPermanent, op, err)
}

// readSecret returns inline content when set, otherwise the file contents.
// Both empty yields nil.
func readSecret(inline, path string) ([]byte, error) {
	if s := strings.TrimSpace(inline); s != "" {
		return []byte(s), nil
	}
	if path = strings.TrimSpace(path); path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func decodeToken(b []byte) (*oauth2.Token, error) {
	if len(b) == 0 {
		return nil, errors.New("missing OAuth token (set GOOGLE_OAUTH_TOKEN_JSON or GOOGLE_OAUTH_TOKEN_FILE, see cmd/oauth-init)")
	}
	var tok oauth2.Token
	if err := json.Unmarshal(b, &tok); err != nil {
		return nil, fmt.Errorf("decode oauth token: %w", err)
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, errors.New("oauth token has neither access nor refresh token")
	}
	return &tok, nil
}

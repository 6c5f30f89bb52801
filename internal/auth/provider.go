package auth

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Provider is the external authentication provider.
type Provider interface {
	// AuthorizeURL returns the URL that starts the OAuth flow and
	// redirects back to redirectTo.
	AuthorizeURL(redirectTo string) (string, error)
	// CompleteCallback turns the redirect URL carrying tokens into a
	// session.
	CompleteCallback(ctx context.Context, callbackURL string) (*Session, error)
	// Refresh exchanges a refresh token for a new session. It returns an
	// error wrapping ErrSessionExpired when the token is rejected.
	Refresh(ctx context.Context, refreshToken string) (*Session, error)
	// SignOut revokes the session on the provider side.
	SignOut(ctx context.Context, accessToken string) error
}

// Callback holds the parameters of an OAuth redirect.
type Callback struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	Error        string
}

// ParseCallback extracts tokens from a redirect URL. Implicit-flow
// providers put them in the fragment; others use the query string. The
// fragment wins when both are present.
func ParseCallback(raw string, now time.Time) (Callback, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Callback{}, fmt.Errorf("failed to parse callback url: %w", err)
	}

	params := u.Query()
	if u.Fragment != "" {
		frag, err := url.ParseQuery(u.Fragment)
		if err != nil {
			return Callback{}, fmt.Errorf("failed to parse callback fragment: %w", err)
		}
		for k, v := range frag {
			params[k] = v
		}
	}

	cb := Callback{
		AccessToken:  params.Get("access_token"),
		RefreshToken: params.Get("refresh_token"),
	}
	if desc := params.Get("error_description"); desc != "" {
		cb.Error = desc
	} else if e := params.Get("error"); e != "" {
		cb.Error = e
	}

	if at := params.Get("expires_at"); at != "" {
		if sec, err := strconv.ParseInt(at, 10, 64); err == nil {
			cb.ExpiresAt = time.Unix(sec, 0)
		}
	}
	if cb.ExpiresAt.IsZero() {
		if in := params.Get("expires_in"); in != "" {
			if sec, err := strconv.ParseInt(in, 10, 64); err == nil {
				cb.ExpiresAt = now.Add(time.Duration(sec) * time.Second)
			}
		}
	}

	if cb.Error == "" && cb.AccessToken == "" {
		return cb, fmt.Errorf("callback url carries no access token")
	}
	return cb, nil
}

// callbackToken returns the access token of a callback URL, or "" when it
// has none. Used to recognise duplicate deliveries.
func callbackToken(raw string) string {
	cb, err := ParseCallback(raw, time.Now())
	if err != nil {
		return ""
	}
	return strings.TrimSpace(cb.AccessToken)
}

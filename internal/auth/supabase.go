package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Supabase implements Provider against the Supabase GoTrue API.
type Supabase struct {
	baseURL  string
	provider string
	client   *resty.Client
	logger   *zap.Logger
	now      func() time.Time
}

// SupabaseConfig configures the Supabase provider.
type SupabaseConfig struct {
	URL      string
	AnonKey  string
	Provider string // OAuth provider name, "google" by default
	Timeout  time.Duration
}

// NewSupabase returns a Supabase provider. It fails with ErrNotConfigured
// when the project URL or anon key is missing.
func NewSupabase(cfg SupabaseConfig, logger *zap.Logger) (*Supabase, error) {
	if cfg.URL == "" || cfg.AnonKey == "" {
		return nil, ErrNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Provider == "" {
		cfg.Provider = "google"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}

	base := strings.TrimRight(cfg.URL, "/")
	client := resty.New().
		SetBaseURL(base).
		SetTimeout(cfg.Timeout).
		SetHeader("apikey", cfg.AnonKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Supabase{
		baseURL:  base,
		provider: cfg.Provider,
		client:   client,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// AuthorizeURL returns /auth/v1/authorize for the configured provider.
func (s *Supabase) AuthorizeURL(redirectTo string) (string, error) {
	q := url.Values{}
	q.Set("provider", s.provider)
	if redirectTo != "" {
		q.Set("redirect_to", redirectTo)
	}
	return s.baseURL + "/auth/v1/authorize?" + q.Encode(), nil
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"`
	ExpiresAt    int64        `json:"expires_at"`
	User         userResponse `json:"user"`
}

// CompleteCallback parses the redirect and looks up the user the access
// token belongs to.
func (s *Supabase) CompleteCallback(ctx context.Context, callbackURL string) (*Session, error) {
	cb, err := ParseCallback(callbackURL, s.now())
	if err != nil {
		return nil, err
	}
	if cb.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrSignInDenied, cb.Error)
	}

	user, err := s.user(ctx, cb.AccessToken)
	if err != nil {
		return nil, err
	}

	return &Session{
		UserID:       user.ID,
		Email:        user.Email,
		AccessToken:  cb.AccessToken,
		RefreshToken: cb.RefreshToken,
		ExpiresAt:    cb.ExpiresAt,
	}, nil
}

func (s *Supabase) user(ctx context.Context, accessToken string) (*userResponse, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		Get("/auth/v1/user")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("failed to fetch user: HTTP %d", resp.StatusCode())
	}

	var user userResponse
	if err := json.Unmarshal(resp.Body(), &user); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	if user.ID == "" {
		return nil, fmt.Errorf("user response carried no id")
	}
	return &user, nil
}

// Refresh exchanges a refresh token at /auth/v1/token.
func (s *Supabase) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, ErrSessionExpired
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParam("grant_type", "refresh_token").
		SetBody(map[string]string{"refresh_token": refreshToken}).
		Post("/auth/v1/token")
	if err != nil {
		return nil, fmt.Errorf("failed to refresh session: %w", err)
	}
	switch code := resp.StatusCode(); {
	case code == http.StatusBadRequest || code == http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: HTTP %d", ErrSessionExpired, code)
	case resp.IsError():
		return nil, fmt.Errorf("failed to refresh session: HTTP %d", code)
	}

	var tok tokenResponse
	if err := json.Unmarshal(resp.Body(), &tok); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if tok.AccessToken == "" || tok.User.ID == "" {
		return nil, fmt.Errorf("token response is incomplete")
	}

	expires := s.now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	if tok.ExpiresAt > 0 {
		expires = time.Unix(tok.ExpiresAt, 0)
	}
	return &Session{
		UserID:       tok.User.ID,
		Email:        tok.User.Email,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    expires,
	}, nil
}

// SignOut revokes the session at /auth/v1/logout.
func (s *Supabase) SignOut(ctx context.Context, accessToken string) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		Post("/auth/v1/logout")
	if err != nil {
		return fmt.Errorf("failed to sign out: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("failed to sign out: HTTP %d", resp.StatusCode())
	}
	return nil
}

// ABOUTME: Session bootstrap against the CRM API
// ABOUTME: Reuses a valid cached token or authenticates, registering a demo account on first run
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/harperreed/agencycrm/api"
)

// ErrUnavailable marks a session that could not be established. It is fatal for the session.
var ErrUnavailable = errors.New("unable to connect to the API")

// UnavailableBanner is shown to the user when ErrUnavailable is returned.
const UnavailableBanner = "Unable to connect to the API. Please check that the server is running and reload."

// Options configures Connect.
type Options struct {
	BaseURL  string
	Email    string
	Password string
	Timeout  time.Duration
	Tokens   *TokenStore
	Logger   zerolog.Logger
	Now      func() time.Time
}

// Connect returns an authenticated API client.
func Connect(ctx context.Context, opts Options) (*api.Client, error) {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	clientOpts := []api.Option{api.WithLogger(opts.Logger)}
	if opts.Timeout > 0 {
		clientOpts = append(clientOpts, api.WithTimeout(opts.Timeout))
	}
	base := api.New(opts.BaseURL, clientOpts...)

	if opts.Tokens != nil {
		cached, err := opts.Tokens.Load()
		if err != nil {
			opts.Logger.Warn().Err(err).Msg("ignoring unreadable token cache")
		}
		if reusable(cached, base.BaseURL(), opts.Email, now()) {
			opts.Logger.Debug().Str("email", cached.Email).Msg("reusing cached token")
			return base.WithBearer(cached.AccessToken), nil
		}
	}

	token, err := base.Authenticate(ctx, opts.Email, opts.Password)
	if err != nil {
		opts.Logger.Error().Err(err).Str("base_url", base.BaseURL()).Msg("authentication failed")
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	if opts.Tokens != nil {
		saveErr := opts.Tokens.Save(Token{
			AccessToken: token,
			Email:       opts.Email,
			BaseURL:     base.BaseURL(),
			SavedAt:     now().UTC(),
		})
		if saveErr != nil {
			opts.Logger.Warn().Err(saveErr).Msg("failed to cache token")
		}
	}

	return base.WithBearer(token), nil
}

func reusable(tok *Token, baseURL, email string, now time.Time) bool {
	if tok == nil || tok.AccessToken == "" {
		return false
	}
	if tok.BaseURL != baseURL || (email != "" && tok.Email != email) {
		return false
	}
	claims, err := Inspect(tok.AccessToken)
	if err != nil {
		// Opaque tokens carry no expiry; let the server decide.
		return true
	}
	return !claims.Expired(now)
}

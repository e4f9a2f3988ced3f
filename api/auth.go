// ABOUTME: Authentication against the CRM API
// ABOUTME: Password-grant login, demo account registration, and first-run fallback
package api

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges form-encoded credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	cfg := &oauth2.Config{
		Endpoint: oauth2.Endpoint{
			TokenURL:  c.baseURL + "/auth/login",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.base)
	token, err := cfg.PasswordCredentialsToken(ctx, email, password)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			apiErr := newStatusError(retrieveErr.Response.StatusCode, retrieveErr.Body)
			if apiErr.Message == "" {
				apiErr.Message = "Login failed"
			}
			return "", apiErr
		}
		return "", &Error{Kind: KindNetwork, Message: err.Error(), Err: err}
	}

	return token.AccessToken, nil
}

// Register creates an account. The server answers 409 when the email is taken.
func (c *Client) Register(ctx context.Context, email, password string) error {
	return c.post(ctx, "/auth/register", nil, registerRequest{Email: email, Password: password}, nil)
}

// Authenticate logs in, registering the account first when login is refused.
func (c *Client) Authenticate(ctx context.Context, email, password string) (string, error) {
	token, loginErr := c.Login(ctx, email, password)
	if loginErr == nil {
		return token, nil
	}
	if KindOf(loginErr) == KindNetwork {
		return "", loginErr
	}

	c.log.Info().Str("email", email).Msg("login refused, registering account")
	if err := c.Register(ctx, email, password); err != nil && !errors.Is(err, ErrConflict) {
		return "", fmt.Errorf("login failed (%v) and registration failed: %w", loginErr, err)
	}

	token, err := c.Login(ctx, email, password)
	if err != nil {
		return "", fmt.Errorf("login after registration failed: %w", err)
	}
	return token, nil
}

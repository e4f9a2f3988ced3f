// ABOUTME: Authentication CLI commands
// ABOUTME: Login with a hidden password prompt, logout, and showing the cached identity
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/harperreed/agencycrm/api"
	"github.com/harperreed/agencycrm/config"
	"github.com/harperreed/agencycrm/session"
)

// readPassword is swapped in tests.
var readPassword = func() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("--password is required when stdin is not a terminal")
	}
	fmt.Fprint(out, "Password: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(b), nil
}

// LoginCommand authenticates and caches the token
func LoginCommand(ctx context.Context, cfg *config.Config, args []string) error {
	fs := newFlagSet("login")
	email := fs.String("email", cfg.Email, "Account email")
	password := fs.String("password", "", "Password (prompted when omitted)")
	register := fs.Bool("register", false, "Create the account if login is refused")
	if err := fs.Parse(args); err != nil {
		return err
	}

	pw := *password
	if pw == "" {
		var err error
		if pw, err = readPassword(); err != nil {
			return err
		}
	}

	client := api.New(cfg.APIBaseURL, api.WithTimeout(cfg.HTTPTimeout))
	var (
		token string
		err   error
	)
	if *register {
		token, err = client.Authenticate(ctx, *email, pw)
	} else {
		token, err = client.Login(ctx, *email, pw)
	}
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	tokens := session.NewTokenStore(cfg.TokenPath)
	if err := tokens.Save(session.Token{
		AccessToken: token,
		Email:       *email,
		BaseURL:     client.BaseURL(),
		SavedAt:     time.Now().UTC(),
	}); err != nil {
		return err
	}

	fmt.Fprintf(out, "✓ Logged in as %s\n", *email)
	return nil
}

// LogoutCommand removes the cached token
func LogoutCommand(cfg *config.Config, args []string) error {
	fs := newFlagSet("logout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := session.NewTokenStore(cfg.TokenPath).Clear(); err != nil {
		return err
	}
	fmt.Fprintln(out, "✓ Logged out")
	return nil
}

// WhoamiCommand shows who the cached token belongs to and when it expires
func WhoamiCommand(cfg *config.Config, args []string) error {
	fs := newFlagSet("whoami")
	if err := fs.Parse(args); err != nil {
		return err
	}

	tokens := session.NewTokenStore(cfg.TokenPath)
	tok, err := tokens.Load()
	if err != nil {
		return err
	}
	if tok == nil {
		fmt.Fprintln(out, "Not logged in")
		return nil
	}

	fmt.Fprintf(out, "Email:   %s\n", tok.Email)
	fmt.Fprintf(out, "Server:  %s\n", tok.BaseURL)

	claims, err := session.Inspect(tok.AccessToken)
	if err != nil {
		fmt.Fprintln(out, "Token:   opaque (no expiry information)")
		return nil
	}
	if claims.Subject != "" && !strings.EqualFold(claims.Subject, tok.Email) {
		fmt.Fprintf(out, "Subject: %s\n", claims.Subject)
	}
	switch {
	case claims.ExpiresAt.IsZero():
		fmt.Fprintln(out, "Expires: never")
	case claims.Expired(time.Now()):
		fmt.Fprintf(out, "Expires: %s (expired, run login again)\n", claims.ExpiresAt.Local().Format("2006-01-02 15:04"))
	default:
		fmt.Fprintf(out, "Expires: %s\n", claims.ExpiresAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/taskdeck/taskdeck/internal/auth"
	"github.com/taskdeck/taskdeck/internal/config"
	"github.com/taskdeck/taskdeck/internal/logging"
	"github.com/taskdeck/taskdeck/internal/session"
)

const signinTimeout = 5 * time.Minute

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the taskdeck session",
	}

	cmd.AddCommand(newSigninCmd())
	cmd.AddCommand(newSignoutCmd())
	cmd.AddCommand(newStatusCmd())
	return cmd
}

func newSigninCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signin",
		Short: "Sign in via the browser and persist the session",
		Long: `Open the backend's authorization page in your browser, wait for the
redirect, and exchange the authorization code for tokens. The resulting
session is stored in your user cache directory and reused by every other
command until it is refreshed away or you sign out.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if cfg.OAuthClientID == "" || cfg.OAuthAuthURL == "" || cfg.OAuthTokenURL == "" {
				return fmt.Errorf("sign-in requires TASKDECK_OAUTH_CLIENT_ID, TASKDECK_OAUTH_AUTH_URL and TASKDECK_OAUTH_TOKEN_URL")
			}

			oauthCfg := &oauth2.Config{
				ClientID:     cfg.OAuthClientID,
				ClientSecret: cfg.OAuthClientSecret,
				RedirectURL:  cfg.OAuthRedirectURL,
				Endpoint: oauth2.Endpoint{
					AuthURL:  cfg.OAuthAuthURL,
					TokenURL: cfg.OAuthTokenURL,
				},
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), signinTimeout)
			defer cancel()

			tok, err := runCodeFlow(ctx, oauthCfg)
			if err != nil {
				return err
			}

			s := sessionFromToken(tok)
			if err := session.NewFileStore().Save(s); err != nil {
				return fmt.Errorf("failed to persist session: %w", err)
			}

			if s.Email != "" {
				fmt.Printf("Signed in as %s\n", logging.AnonymizeEmail(s.Email))
			} else {
				fmt.Println("Signed in")
			}
			return nil
		},
	}
}

// runCodeFlow prints the authorization URL, waits for the redirect on the
// configured localhost port, and exchanges the code for tokens.
func runCodeFlow(ctx context.Context, oauthCfg *oauth2.Config) (*oauth2.Token, error) {
	redirect, err := url.Parse(oauthCfg.RedirectURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect URL %q: %w", oauthCfg.RedirectURL, err)
	}

	listener, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s for the OAuth redirect: %w", redirect.Host, err)
	}
	defer func() { _ = listener.Close() }()

	state := uuid.NewString()

	type callback struct {
		code string
		err  error
	}
	results := make(chan callback, 1)

	mux := http.NewServeMux()
	mux.HandleFunc(redirect.Path, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			results <- callback{err: errors.New("authorization response carried a mismatched state")}
			return
		}
		if errMsg := q.Get("error"); errMsg != "" {
			http.Error(w, errMsg, http.StatusBadRequest)
			results <- callback{err: fmt.Errorf("authorization denied: %s", errMsg)}
			return
		}
		fmt.Fprintln(w, "Signed in. You can close this tab.")
		results <- callback{code: q.Get("code")}
	})

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() { _ = srv.Serve(listener) }()
	defer func() { _ = srv.Close() }()

	fmt.Println("Open the following URL in your browser to sign in:")
	fmt.Println()
	fmt.Println("  " + oauthCfg.AuthCodeURL(state, oauth2.AccessTypeOffline))
	fmt.Println()

	select {
	case cb := <-results:
		if cb.err != nil {
			return nil, cb.err
		}
		tok, err := oauthCfg.Exchange(ctx, cb.code)
		if err != nil {
			return nil, fmt.Errorf("code exchange failed: %w", err)
		}
		return tok, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("sign-in timed out: %w", ctx.Err())
	}
}

// sessionFromToken builds the persisted session from an exchanged token.
// Identity claims come from the access token when it is a decodable JWT.
func sessionFromToken(tok *oauth2.Token) *session.Session {
	s := &session.Session{
		AccessToken:   tok.AccessToken,
		RefreshToken:  tok.RefreshToken,
		TokenIssuedAt: time.Now(),
	}
	if !tok.Expiry.IsZero() {
		s.ExpiresIn = int64(time.Until(tok.Expiry).Seconds())
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok.AccessToken, claims); err == nil {
		if sub, err := claims.GetSubject(); err == nil {
			s.UserID = sub
		}
		if email, ok := claims["email"].(string); ok {
			s.Email = email
		}
	}
	if s.UserID == "" {
		s.UserID = "local"
	}
	return s
}

func newSignoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Destroy the persisted session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := session.NewFileStore().Clear(); err != nil {
				return fmt.Errorf("failed to clear session: %w", err)
			}
			fmt.Println("Signed out")
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether a session is persisted and still usable",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := auth.NewManager(auth.Config{
				Store: session.NewFileStore(),
			})
			if err != nil {
				return err
			}

			s, err := manager.Session()
			if err != nil {
				if errors.Is(err, auth.ErrNotSignedIn) {
					fmt.Println("Not signed in")
					return nil
				}
				return err
			}

			who := s.UserID
			if s.Email != "" {
				who = logging.AnonymizeEmail(s.Email)
			}

			if manager.IsExpired(s) {
				if s.RefreshToken != "" {
					fmt.Printf("Signed in as %s (access token expired, will refresh on next use)\n", who)
				} else {
					fmt.Printf("Signed in as %s (expired, sign in again)\n", who)
				}
				return nil
			}

			fmt.Printf("Signed in as %s\n", who)
			return nil
		},
	}
}

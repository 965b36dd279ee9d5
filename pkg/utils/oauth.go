package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/jakechorley/boat-hire/internal/config"
)

const (
	AuthPort       = 3000
	authTimeout    = 5 * time.Minute
	callbackPath   = "/oauth/callback"
	tokenDirName   = ".boat-hire/tokens"
	tokenFilePerms = 0600
	tokenDirPerms  = 0700
)

// ScopeGmailSend is the only Google scope the service needs
const ScopeGmailSend = "https://www.googleapis.com/auth/gmail.send"

// ErrNoToken is returned when no stored token exists for the environment
var ErrNoToken = errors.New("no stored oauth token, run the authorize command first")

// GetOAuthConfig creates an OAuth2 config from the OAuth client configuration
func GetOAuthConfig(oauthCfg *config.OAuthClientConfig) (*oauth2.Config, error) {
	oauthConfigJSON, err := json.Marshal(oauthCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal oauth config: %w", err)
	}

	googleConfig, err := google.ConfigFromJSON(oauthConfigJSON, ScopeGmailSend)
	if err != nil {
		return nil, fmt.Errorf("failed to create google config: %w", err)
	}

	googleConfig.RedirectURL = fmt.Sprintf("http://localhost:%d%s", AuthPort, callbackPath)

	return googleConfig, nil
}

// StoredToken returns a token source backed by the token saved for env. It never
// prompts; a missing token is ErrNoToken. Refreshed tokens are written back to disk.
func StoredToken(ctx context.Context, oauthConfig *oauth2.Config, env string, logger *zap.Logger) (oauth2.TokenSource, error) {
	token, err := LoadTokenFromFile(env)
	if err != nil {
		return nil, err
	}
	if token == nil {
		return nil, ErrNoToken
	}

	source := oauthConfig.TokenSource(ctx, token)
	fresh, err := source.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh stored token: %w", err)
	}
	if fresh.AccessToken != token.AccessToken {
		if err := SaveTokenToFile(env, fresh); err != nil {
			logger.Warn("Failed to save refreshed token", zap.Error(err))
		}
	}

	return oauth2.ReuseTokenSource(fresh, source), nil
}

// AuthorizeWithFlow runs the interactive consent flow and stores the resulting token
// for env. The user opens the printed URL; Google redirects back to a local listener.
func AuthorizeWithFlow(ctx context.Context, oauthConfig *oauth2.Config, env string, logger *zap.Logger) (*oauth2.Token, error) {
	authURL := oauthConfig.AuthCodeURL("state", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	fmt.Printf("\nVisit this URL to authorize the application:\n%s\n\n", authURL)

	code, err := listenForAuthCallback(ctx, fmt.Sprintf(":%d", AuthPort))
	if err != nil {
		return nil, fmt.Errorf("failed to get authorization code: %w", err)
	}

	token, err := oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code for token: %w", err)
	}

	if err := SaveTokenToFile(env, token); err != nil {
		return nil, err
	}
	logger.Info("OAuth token stored", zap.String("env", env))

	return token, nil
}

// listenForAuthCallback serves the redirect on addr and returns the authorization code
func listenForAuthCallback(ctx context.Context, addr string) (string, error) {
	codeChan := make(chan string, 1)
	errChan := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			select {
			case errChan <- fmt.Errorf("no authorization code received"):
			default:
			}
			http.Error(w, "Authorization failed", http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body><h1>Authorization successful</h1><p>You can close this window.</p></body></html>")

		select {
		case codeChan <- code:
		default:
		}
	})

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("failed to listen for oauth callback: %w", err)
	}

	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case errChan <- fmt.Errorf("server error: %w", err):
			default:
			}
		}
	}()

	timeoutCtx, cancel := context.WithTimeout(ctx, authTimeout)
	defer cancel()

	var code string
	var authErr error
	select {
	case code = <-codeChan:
	case authErr = <-errChan:
	case <-timeoutCtx.Done():
		authErr = fmt.Errorf("authorization timeout after %v", authTimeout)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)

	if authErr != nil {
		return "", authErr
	}
	return code, nil
}

// tokenFilePath returns the path to the token file for the given environment
func tokenFilePath(env string) (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	if env == "" {
		env = "default"
	}
	return filepath.Join(homeDir, tokenDirName, fmt.Sprintf("token-%s.json", env)), nil
}

// LoadTokenFromFile loads the token stored for env.
// Returns nil without error if there is none.
func LoadTokenFromFile(env string) (*oauth2.Token, error) {
	tokenPath, err := tokenFilePath(env)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(tokenPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to parse token file: %w", err)
	}

	return &token, nil
}

// SaveTokenToFile stores the token for env with owner-only permissions
func SaveTokenToFile(env string, token *oauth2.Token) error {
	tokenPath, err := tokenFilePath(env)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(tokenPath), tokenDirPerms); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	if err := os.WriteFile(tokenPath, data, tokenFilePerms); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}

	return nil
}

// DeleteTokenFile removes the token stored for env
func DeleteTokenFile(env string) error {
	tokenPath, err := tokenFilePath(env)
	if err != nil {
		return err
	}

	if err := os.Remove(tokenPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete token file: %w", err)
	}

	return nil
}

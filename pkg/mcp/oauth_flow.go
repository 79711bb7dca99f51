package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	"github.com/cortexsh/cortexrun/pkg/logger"
)

// OAuthServerMetadata is the subset of RFC 8414 authorization server
// metadata the flow needs.
type OAuthServerMetadata struct {
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	RegistrationEndpoint  string `json:"registration_endpoint,omitempty"`
}

// DiscoverOAuthMetadata fetches server metadata from the well-known
// authorization-server endpoint, falling back to OpenID Connect discovery.
func DiscoverOAuthMetadata(ctx context.Context, serverURL string) (*OAuthServerMetadata, error) {
	base, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}

	if meta, err := fetchMetadata(ctx, base, "/.well-known/oauth-authorization-server"); err == nil {
		return meta, nil
	}
	meta, err := fetchMetadata(ctx, base, "/.well-known/openid-configuration")
	if err != nil {
		return nil, fmt.Errorf("OAuth metadata not found at server %s: %w", serverURL, err)
	}
	return meta, nil
}

func fetchMetadata(ctx context.Context, base *url.URL, wellKnownPath string) (*OAuthServerMetadata, error) {
	u := *base
	u.Path = wellKnownPath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: HTTP %d", u.String(), resp.StatusCode)
	}

	var meta OAuthServerMetadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("decoding metadata: %w", err)
	}
	return &meta, nil
}

// OAuthFlowConfig identifies the MCP server and client this flow
// authenticates against.
type OAuthFlowConfig struct {
	ServerName   string
	ServerURL    string
	ClientID     string
	ClientSecret string
	Scope        string
}

// OAuthFlow drives one server's Authorization-Code-with-PKCE round trip
// against an already-discovered OAuthServerMetadata, persisting
// intermediate and final state through an OAuthStorage.
type OAuthFlow struct {
	cfg     OAuthFlowConfig
	meta    OAuthServerMetadata
	storage *OAuthStorage
}

// NewOAuthFlow builds a flow bound to the given server metadata and storage.
func NewOAuthFlow(cfg OAuthFlowConfig, meta OAuthServerMetadata, storage *OAuthStorage) *OAuthFlow {
	return &OAuthFlow{cfg: cfg, meta: meta, storage: storage}
}

// RedirectURL is the fixed loopback URI every MCP OAuth flow registers.
func RedirectURL() string {
	return fmt.Sprintf("http://127.0.0.1:%d%s", OAuthCallbackPort, OAuthCallbackPath)
}

func (f *OAuthFlow) oauth2Config() (*oauth2.Config, error) {
	clientID := f.cfg.ClientID
	if clientID == "" {
		entry, ok := f.storage.GetForURL(f.cfg.ServerName, f.cfg.ServerURL)
		if !ok || entry.ClientInfo == nil {
			return nil, errors.New("no client ID available: dynamic registration may be required, or configure clientId")
		}
		clientID = entry.ClientInfo.ClientID
	}

	clientSecret := f.cfg.ClientSecret
	if clientSecret == "" {
		if entry, ok := f.storage.GetForURL(f.cfg.ServerName, f.cfg.ServerURL); ok && entry.ClientInfo != nil {
			clientSecret = entry.ClientInfo.ClientSecret
		}
	}

	var scopes []string
	if f.cfg.Scope != "" {
		scopes = []string{f.cfg.Scope}
	}

	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  f.meta.AuthorizationEndpoint,
			TokenURL: f.meta.TokenEndpoint,
		},
		RedirectURL: RedirectURL(),
		Scopes:      scopes,
	}, nil
}

// BuildAuthorizationURL generates a fresh PKCE verifier/state pair,
// persists them, and returns the authorization URL to open in a browser.
func (f *OAuthFlow) BuildAuthorizationURL() (string, error) {
	oc, err := f.oauth2Config()
	if err != nil {
		return "", err
	}

	verifier, err := GenerateCodeVerifier()
	if err != nil {
		return "", err
	}
	state, err := GenerateOAuthState()
	if err != nil {
		return "", err
	}

	f.storage.UpdateCodeVerifier(f.cfg.ServerName, verifier)
	f.storage.UpdateOAuthState(f.cfg.ServerName, state)
	if err := f.storage.Save(); err != nil {
		return "", fmt.Errorf("persisting PKCE state: %w", err)
	}

	authURL := oc.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
	logger.InfoCF("mcp-oauth", "built authorization URL", map[string]any{"server": f.cfg.ServerName})
	return authURL, nil
}

// ExchangeCode exchanges an authorization code for tokens, validating the
// callback's state against what BuildAuthorizationURL persisted.
func (f *OAuthFlow) ExchangeCode(ctx context.Context, code, state string) (OAuthTokens, error) {
	expectedState := f.storage.GetOAuthState(f.cfg.ServerName)
	if expectedState == "" || state != expectedState {
		return OAuthTokens{}, errors.New("OAuth state mismatch: possible CSRF or stale callback")
	}

	entry, ok := f.storage.Get(f.cfg.ServerName)
	if !ok || entry.CodeVerifier == "" {
		return OAuthTokens{}, errors.New("no code verifier found for this server")
	}

	oc, err := f.oauth2Config()
	if err != nil {
		return OAuthTokens{}, err
	}

	tok, err := oc.Exchange(ctx, code, oauth2.VerifierOption(entry.CodeVerifier))
	if err != nil {
		return OAuthTokens{}, fmt.Errorf("token exchange failed: %w", err)
	}

	tokens := tokensFromOAuth2(tok)
	f.storage.UpdateTokens(f.cfg.ServerName, tokens, f.cfg.ServerURL)
	f.storage.ClearCodeVerifier(f.cfg.ServerName)
	f.storage.ClearOAuthState(f.cfg.ServerName)
	if err := f.storage.Save(); err != nil {
		return OAuthTokens{}, fmt.Errorf("persisting tokens: %w", err)
	}

	logger.InfoCF("mcp-oauth", "token exchange successful", map[string]any{"server": f.cfg.ServerName})
	return tokens, nil
}

// RefreshTokens exchanges a stored refresh token for a new access token.
func (f *OAuthFlow) RefreshTokens(ctx context.Context) (OAuthTokens, error) {
	entry, ok := f.storage.Get(f.cfg.ServerName)
	if !ok || entry.Tokens == nil || entry.Tokens.RefreshToken == "" {
		return OAuthTokens{}, errors.New("no refresh token available")
	}

	oc, err := f.oauth2Config()
	if err != nil {
		return OAuthTokens{}, err
	}

	src := oc.TokenSource(ctx, &oauth2.Token{RefreshToken: entry.Tokens.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		return OAuthTokens{}, fmt.Errorf("token refresh failed: %w", err)
	}

	tokens := tokensFromOAuth2(tok)
	f.storage.UpdateTokens(f.cfg.ServerName, tokens, f.cfg.ServerURL)
	if err := f.storage.Save(); err != nil {
		return OAuthTokens{}, fmt.Errorf("persisting refreshed tokens: %w", err)
	}

	logger.InfoCF("mcp-oauth", "token refresh successful", map[string]any{"server": f.cfg.ServerName})
	return tokens, nil
}

func tokensFromOAuth2(tok *oauth2.Token) OAuthTokens {
	tokens := OAuthTokens{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	if !tok.Expiry.IsZero() {
		tokens.ExpiresAt = tok.Expiry.Unix()
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		tokens.Scope = scope
	}
	return tokens
}

// CallbackResult is what the local loopback server reports once the
// authorization server redirects the user's browser back.
type CallbackResult struct {
	Code  string
	State string
	Err   error
}

// RunLoopbackCallbackServer starts an HTTP server on 127.0.0.1:19876,
// waits for exactly one request to OAuthCallbackPath (or ctx
// cancellation), and returns what it received. The server is shut down
// before returning either way.
func RunLoopbackCallbackServer(ctx context.Context) (CallbackResult, error) {
	resultCh := make(chan CallbackResult, 1)

	mux := http.NewServeMux()
	mux.HandleFunc(OAuthCallbackPath, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if errParam := q.Get("error"); errParam != "" {
			resultCh <- CallbackResult{Err: fmt.Errorf("authorization server returned error: %s", errParam)}
		} else {
			resultCh <- CallbackResult{Code: q.Get("code"), State: q.Get("state")}
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, "<html><body><h3>Authorization complete. You can close this tab.</h3></body></html>")
	})

	srv := &http.Server{Addr: fmt.Sprintf("127.0.0.1:%d", OAuthCallbackPort), Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var result CallbackResult
	select {
	case result = <-resultCh:
	case err := <-errCh:
		return CallbackResult{}, err
	case <-ctx.Done():
		_ = srv.Close()
		return CallbackResult{}, ctx.Err()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	return result, nil
}

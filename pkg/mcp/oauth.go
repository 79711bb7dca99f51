package mcp

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cortexsh/cortexrun/pkg/fileutil"
)

// OAuthCallbackPort is the local loopback port the authorization server
// redirects back to once the user grants access.
const OAuthCallbackPort = 19876

// OAuthCallbackPath is the path component of the loopback redirect URI.
const OAuthCallbackPath = "/mcp/oauth/callback"

// OAuthTokens is one MCP server's current access/refresh token pair.
type OAuthTokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ExpiresAt    int64  `json:"expiresAt,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// IsExpired reports whether the access token's expiry has passed. A zero
// ExpiresAt means the server never reported one, so it's treated as
// never-expiring (nothing to refresh against).
func (t *OAuthTokens) IsExpired() bool {
	if t == nil || t.ExpiresAt == 0 {
		return false
	}
	return time.Now().Unix() >= t.ExpiresAt
}

// OAuthClientInfo is the dynamically registered (or pre-configured) client
// identity used to authenticate with the authorization server.
type OAuthClientInfo struct {
	ClientID              string `json:"clientId"`
	ClientSecret          string `json:"clientSecret,omitempty"`
	ClientIDIssuedAt      int64  `json:"clientIdIssuedAt,omitempty"`
	ClientSecretExpiresAt int64  `json:"clientSecretExpiresAt,omitempty"`
}

// OAuthEntry is the persisted per-server OAuth state: tokens, client
// identity, and whatever in-flight PKCE state a not-yet-completed
// authorization round needs to survive process restarts.
type OAuthEntry struct {
	Tokens       *OAuthTokens     `json:"tokens,omitempty"`
	ClientInfo   *OAuthClientInfo `json:"clientInfo,omitempty"`
	CodeVerifier string           `json:"codeVerifier,omitempty"`
	OAuthState   string           `json:"oauthState,omitempty"`
	ServerURL    string           `json:"serverUrl,omitempty"`
}

// OAuthStorage is the on-disk store of OAuthEntry per MCP server name,
// persisted as a single flat JSON object at ~/.cortex/mcp-auth.json mode
// 0600 — deliberately the same ~/.cortex root internal/permission uses,
// not the runtime's ~/.cortexrun home, since these are security-sensitive
// credentials a user may want to inspect or back up independently.
type OAuthStorage struct {
	mu      sync.Mutex
	Entries map[string]OAuthEntry `json:"-"`
}

// OAuthStoragePath returns ~/.cortex/mcp-auth.json.
func OAuthStoragePath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = os.TempDir()
	}
	return filepath.Join(home, ".cortex", "mcp-auth.json")
}

// LoadOAuthStorage reads the storage file, returning an empty store if it
// doesn't exist yet.
func LoadOAuthStorage() (*OAuthStorage, error) {
	path := OAuthStoragePath()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &OAuthStorage{Entries: make(map[string]OAuthEntry)}, nil
		}
		return nil, err
	}

	entries := make(map[string]OAuthEntry)
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &OAuthStorage{Entries: entries}, nil
}

// Save atomically writes the storage file at mode 0600.
func (s *OAuthStorage) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(s.Entries, "", "  ")
	if err != nil {
		return err
	}
	return fileutil.WriteFileAtomic(OAuthStoragePath(), data, 0o600)
}

// Get returns the raw entry for an MCP server, with no URL validation.
func (s *OAuthStorage) Get(name string) (OAuthEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.Entries[name]
	return e, ok
}

// GetForURL returns the entry only if it records a server_url matching
// serverURL exactly. An entry with no stored server_url predates this
// check and is treated as invalid, and a changed server_url invalidates
// whatever credentials were stored for the old one.
func (s *OAuthStorage) GetForURL(name, serverURL string) (OAuthEntry, bool) {
	e, ok := s.Get(name)
	if !ok || e.ServerURL == "" || e.ServerURL != serverURL {
		return OAuthEntry{}, false
	}
	return e, true
}

func (s *OAuthStorage) mutate(name string, fn func(e *OAuthEntry)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.Entries[name]
	fn(&e)
	s.Entries[name] = e
}

// UpdateTokens records new tokens (and optionally a server_url) for name.
func (s *OAuthStorage) UpdateTokens(name string, tokens OAuthTokens, serverURL string) {
	s.mutate(name, func(e *OAuthEntry) {
		e.Tokens = &tokens
		if serverURL != "" {
			e.ServerURL = serverURL
		}
	})
}

// UpdateClientInfo records the registered client identity for name.
func (s *OAuthStorage) UpdateClientInfo(name string, info OAuthClientInfo, serverURL string) {
	s.mutate(name, func(e *OAuthEntry) {
		e.ClientInfo = &info
		if serverURL != "" {
			e.ServerURL = serverURL
		}
	})
}

// UpdateCodeVerifier stashes the PKCE verifier for an in-flight authorization.
func (s *OAuthStorage) UpdateCodeVerifier(name, verifier string) {
	s.mutate(name, func(e *OAuthEntry) { e.CodeVerifier = verifier })
}

// ClearCodeVerifier discards the PKCE verifier once the code exchange completes.
func (s *OAuthStorage) ClearCodeVerifier(name string) {
	s.mutate(name, func(e *OAuthEntry) { e.CodeVerifier = "" })
}

// UpdateOAuthState stashes the CSRF state value for an in-flight authorization.
func (s *OAuthStorage) UpdateOAuthState(name, state string) {
	s.mutate(name, func(e *OAuthEntry) { e.OAuthState = state })
}

// GetOAuthState returns the stashed CSRF state value, if any.
func (s *OAuthStorage) GetOAuthState(name string) string {
	e, _ := s.Get(name)
	return e.OAuthState
}

// ClearOAuthState discards the CSRF state value once the callback is verified.
func (s *OAuthStorage) ClearOAuthState(name string) {
	s.mutate(name, func(e *OAuthEntry) { e.OAuthState = "" })
}

// Remove deletes all stored OAuth state for an MCP server.
func (s *OAuthStorage) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.Entries, name)
}

// pkceCharset is RFC 7636's unreserved character set for a code verifier.
const pkceCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-._~"

// pkceVerifierLength is chosen within RFC 7636's 43-128 character range.
const pkceVerifierLength = 64

// GenerateCodeVerifier returns a cryptographically random PKCE code
// verifier drawn from the unreserved character set at pkceVerifierLength.
func GenerateCodeVerifier() (string, error) {
	idx := make([]byte, pkceVerifierLength)
	if _, err := rand.Read(idx); err != nil {
		return "", fmt.Errorf("generating PKCE verifier: %w", err)
	}
	out := make([]byte, pkceVerifierLength)
	for i, b := range idx {
		out[i] = pkceCharset[int(b)%len(pkceCharset)]
	}
	return string(out), nil
}

// GenerateCodeChallenge derives the S256 PKCE challenge from a verifier:
// BASE64URL(SHA256(verifier)), no padding.
func GenerateCodeChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// GenerateOAuthState returns a 32-byte URL-safe base64 CSRF nonce.
func GenerateOAuthState() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generating OAuth state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

package mcp

import (
	"testing"
)

// TestPKCE_VerifierAndChallenge covers the "PKCE" scenario: a generated
// verifier is length 64, and its S256 challenge matches the RFC 7636 test
// vector for a known verifier.
func TestPKCE_VerifierAndChallenge(t *testing.T) {
	verifier, err := GenerateCodeVerifier()
	if err != nil {
		t.Fatalf("GenerateCodeVerifier: %v", err)
	}
	if len(verifier) != pkceVerifierLength {
		t.Fatalf("len(verifier) = %d, want %d", len(verifier), pkceVerifierLength)
	}
	for _, c := range verifier {
		found := false
		for _, allowed := range pkceCharset {
			if c == allowed {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("verifier contains disallowed character %q", c)
		}
	}

	const knownVerifier = "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	const wantChallenge = "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM"
	if got := GenerateCodeChallenge(knownVerifier); got != wantChallenge {
		t.Errorf("GenerateCodeChallenge(%q) = %q, want %q", knownVerifier, got, wantChallenge)
	}
}

func TestGenerateOAuthState_URLSafe(t *testing.T) {
	state, err := GenerateOAuthState()
	if err != nil {
		t.Fatalf("GenerateOAuthState: %v", err)
	}
	if state == "" {
		t.Fatal("state must not be empty")
	}
	for _, c := range state {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '-' || c == '_') {
			t.Fatalf("state contains non-URL-safe character %q", c)
		}
	}
}

func newTestStorage() *OAuthStorage {
	return &OAuthStorage{Entries: make(map[string]OAuthEntry)}
}

func TestOAuthStorage_GetForURL_RejectsMismatchedURL(t *testing.T) {
	s := newTestStorage()
	s.UpdateTokens("docs", OAuthTokens{AccessToken: "tok"}, "https://mcp.example.com")

	if _, ok := s.GetForURL("docs", "https://mcp.example.com"); !ok {
		t.Fatal("expected entry for matching server_url")
	}
	if _, ok := s.GetForURL("docs", "https://attacker.example.com"); ok {
		t.Fatal("GetForURL should reject a mismatched server_url")
	}
}

func TestOAuthStorage_GetForURL_RejectsMissingURL(t *testing.T) {
	s := newTestStorage()
	s.Entries["legacy"] = OAuthEntry{Tokens: &OAuthTokens{AccessToken: "tok"}}

	if _, ok := s.GetForURL("legacy", "https://mcp.example.com"); ok {
		t.Fatal("an entry with no stored server_url predates this check and must be treated as invalid")
	}
}

// TestOAuthStorage_TokenRefresh_PreservesServerURLAndClientInfo covers the
// round-trip property: refreshing tokens replaces the access token but
// preserves server_url and client_info.
func TestOAuthStorage_TokenRefresh_PreservesServerURLAndClientInfo(t *testing.T) {
	s := newTestStorage()
	s.UpdateClientInfo("docs", OAuthClientInfo{ClientID: "abc123"}, "https://mcp.example.com")
	s.UpdateTokens("docs", OAuthTokens{AccessToken: "old-access", RefreshToken: "refresh-1"}, "https://mcp.example.com")

	s.UpdateTokens("docs", OAuthTokens{AccessToken: "new-access", RefreshToken: "refresh-1"}, "")

	entry, ok := s.Get("docs")
	if !ok {
		t.Fatal("entry missing after refresh")
	}
	if entry.Tokens.AccessToken != "new-access" {
		t.Errorf("AccessToken = %q, want new-access", entry.Tokens.AccessToken)
	}
	if entry.ServerURL != "https://mcp.example.com" {
		t.Errorf("ServerURL = %q, want preserved", entry.ServerURL)
	}
	if entry.ClientInfo == nil || entry.ClientInfo.ClientID != "abc123" {
		t.Errorf("ClientInfo not preserved across refresh: %+v", entry.ClientInfo)
	}
}

func TestOAuthTokens_IsExpired(t *testing.T) {
	var noExpiry *OAuthTokens
	if noExpiry.IsExpired() {
		t.Error("nil tokens should not report expired")
	}

	future := &OAuthTokens{ExpiresAt: 9999999999}
	if future.IsExpired() {
		t.Error("far-future expiry should not be expired")
	}

	past := &OAuthTokens{ExpiresAt: 1}
	if !past.IsExpired() {
		t.Error("expiry in 1970 should be expired")
	}
}

func TestOAuthStorage_CodeVerifierAndStateLifecycle(t *testing.T) {
	s := newTestStorage()
	s.UpdateCodeVerifier("docs", "verifier-value")
	s.UpdateOAuthState("docs", "state-value")

	entry, _ := s.Get("docs")
	if entry.CodeVerifier != "verifier-value" {
		t.Fatalf("CodeVerifier = %q", entry.CodeVerifier)
	}
	if s.GetOAuthState("docs") != "state-value" {
		t.Fatalf("GetOAuthState = %q", s.GetOAuthState("docs"))
	}

	s.ClearCodeVerifier("docs")
	s.ClearOAuthState("docs")

	entry, _ = s.Get("docs")
	if entry.CodeVerifier != "" {
		t.Error("CodeVerifier should be cleared")
	}
	if s.GetOAuthState("docs") != "" {
		t.Error("OAuthState should be cleared")
	}
}

package salesforceapi

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"
)

// Credential is the bearer token plus instance base URL a login yields.
type Credential struct {
	Token       string
	InstanceURL string
}

// Authenticator acquires a fresh credential from the login endpoint.
type Authenticator interface {
	Authenticate(ctx context.Context) (Credential, error)
}

// Session is the shared credential cell. It holds the current credential and
// re-acquires it on absence. Acquisition is single-flight: concurrent
// callers that find the cell empty wait for one in-flight login and then
// proceed with the populated value.
type Session struct {
	auth Authenticator

	mu   sync.RWMutex
	cred *Credential
	sf   singleflight.Group
}

// NewSession creates a session backed by the given authenticator.
func NewSession(auth Authenticator) *Session {
	return &Session{auth: auth}
}

// Get returns the current credential, logging in first if none is held.
func (s *Session) Get(ctx context.Context) (Credential, error) {
	s.mu.RLock()
	cred := s.cred
	s.mu.RUnlock()
	if cred != nil {
		return *cred, nil
	}

	v, err, _ := s.sf.Do("login", func() (any, error) {
		// Re-check: another caller may have populated the cell between the
		// read above and entering the flight.
		s.mu.RLock()
		cached := s.cred
		s.mu.RUnlock()
		if cached != nil {
			return *cached, nil
		}

		fresh, err := s.auth.Authenticate(ctx)
		if err != nil {
			return Credential{}, err
		}
		s.mu.Lock()
		s.cred = &fresh
		s.mu.Unlock()
		return fresh, nil
	})
	if err != nil {
		return Credential{}, err
	}
	return v.(Credential), nil
}

// Invalidate drops the held credential so the next Get re-authenticates.
func (s *Session) Invalidate() {
	s.mu.Lock()
	s.cred = nil
	s.mu.Unlock()
}

// =============================================================================
// SOAP username/password login (partner API)
// =============================================================================

// SOAPAuthenticator performs the classic SOAP partner login with username,
// password and security token.
type SOAPAuthenticator struct {
	LoginURL      string // defaults to https://login.salesforce.com
	APIVersion    string // e.g. "v59.0"
	Username      string
	Password      string
	SecurityToken string

	HTTPClient *http.Client
}

const soapLoginEnvelope = `<?xml version="1.0" encoding="utf-8"?>
<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/" xmlns:urn="urn:partner.soap.sforce.com">
  <soapenv:Body>
    <urn:login>
      <urn:username>%s</urn:username>
      <urn:password>%s</urn:password>
    </urn:login>
  </soapenv:Body>
</soapenv:Envelope>`

// soapLoginResult maps the subset of the login response we need. Namespace
// prefixes vary between orgs, so matching is by local element name.
type soapLoginResult struct {
	SessionID string `xml:"Body>loginResponse>result>sessionId"`
	ServerURL string `xml:"Body>loginResponse>result>serverUrl"`
}

func (a *SOAPAuthenticator) Authenticate(ctx context.Context) (Credential, error) {
	loginURL := a.LoginURL
	if loginURL == "" {
		loginURL = "https://login.salesforce.com"
	}
	version := strings.TrimPrefix(a.APIVersion, "v")
	endpoint := fmt.Sprintf("%s/services/Soap/u/%s", strings.TrimSuffix(loginURL, "/"), version)

	envelope := fmt.Sprintf(soapLoginEnvelope,
		xmlEscape(a.Username), xmlEscape(a.Password+a.SecurityToken))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(envelope))
	if err != nil {
		return Credential{}, &AuthError{Reason: "build login request", Err: err}
	}
	req.Header.Set("Content-Type", "text/xml; charset=UTF-8")
	req.Header.Set("SOAPAction", "login")

	client := a.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultCallTimeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		return Credential{}, &AuthError{Reason: "login request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return Credential{}, &AuthError{Reason: "read login response", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return Credential{}, &AuthError{Reason: fmt.Sprintf("login returned status %d", resp.StatusCode)}
	}

	return ParseSOAPLogin(body)
}

// ParseSOAPLogin extracts sessionId and serverUrl from a SOAP login response
// and derives the instance URL. Fails with AuthError when either required
// field is missing.
func ParseSOAPLogin(body []byte) (Credential, error) {
	var result soapLoginResult
	if err := xml.Unmarshal(body, &result); err != nil {
		return Credential{}, &AuthError{Reason: "parse login response", Err: err}
	}
	if result.SessionID == "" || result.ServerURL == "" {
		return Credential{}, &AuthError{Reason: "login response missing sessionId or serverUrl"}
	}

	// The server URL points at the SOAP endpoint; the instance URL is
	// everything before /services/.
	instanceURL := result.ServerURL
	if idx := strings.Index(instanceURL, "/services/"); idx >= 0 {
		instanceURL = instanceURL[:idx]
	}

	return Credential{Token: result.SessionID, InstanceURL: instanceURL}, nil
}

func xmlEscape(s string) string {
	var b strings.Builder
	// xml.EscapeText only errors on writer failure; strings.Builder never fails.
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

// =============================================================================
// OAuth 2.0 JWT bearer flow
// =============================================================================

// JWTBearerAuthenticator implements the OAuth 2.0 JWT bearer token flow: it
// signs a short-lived RS256 assertion with the connected app's private key
// and exchanges it for an access token.
type JWTBearerAuthenticator struct {
	LoginURL   string // defaults to https://login.salesforce.com
	ClientID   string // connected app consumer key
	Username   string
	PrivateKey *rsa.PrivateKey

	HTTPClient *http.Client
}

func (a *JWTBearerAuthenticator) Authenticate(ctx context.Context) (Credential, error) {
	loginURL := a.LoginURL
	if loginURL == "" {
		loginURL = "https://login.salesforce.com"
	}
	loginURL = strings.TrimSuffix(loginURL, "/")

	claims := jwt.MapClaims{
		"iss": a.ClientID,
		"sub": a.Username,
		"aud": loginURL,
		"exp": time.Now().Add(3 * time.Minute).Unix(),
	}
	assertion, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(a.PrivateKey)
	if err != nil {
		return Credential{}, &AuthError{Reason: "sign jwt assertion", Err: err}
	}

	form := url.Values{
		"grant_type": {"urn:ietf:params:oauth:grant-type:jwt-bearer"},
		"assertion":  {assertion},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		loginURL+"/services/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return Credential{}, &AuthError{Reason: "build token request", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := a.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultCallTimeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		return Credential{}, &AuthError{Reason: "token request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return Credential{}, &AuthError{Reason: "read token response", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return Credential{}, &AuthError{Reason: fmt.Sprintf("token endpoint returned status %d: %s", resp.StatusCode, truncate(string(body), 256))}
	}

	var token struct {
		AccessToken string `json:"access_token"`
		InstanceURL string `json:"instance_url"`
	}
	if err := json.Unmarshal(body, &token); err != nil {
		return Credential{}, &AuthError{Reason: "parse token response", Err: errors.Wrap(err, "decode")}
	}
	if token.AccessToken == "" || token.InstanceURL == "" {
		return Credential{}, &AuthError{Reason: "token response missing access_token or instance_url"}
	}

	return Credential{Token: token.AccessToken, InstanceURL: token.InstanceURL}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

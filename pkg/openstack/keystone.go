package openstack

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type KeystoneClient struct {
	baseURL    string
	domain     string
	httpClient *http.Client
}

type KeystoneOption func(*KeystoneClient)

func WithKeystoneInsecureTLS(insecure bool) KeystoneOption {
	return func(c *KeystoneClient) {
		tr := &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: insecure}, //nolint:gosec
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			ForceAttemptHTTP2: true,
		}
		c.httpClient.Transport = tr
	}
}

func NewKeystoneClient(baseURL, domain string, timeout time.Duration, opts ...KeystoneOption) *KeystoneClient {
	c := &KeystoneClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		domain:  domain,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				ForceAttemptHTTP2: true,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type authRequest struct {
	Auth authIdentity `json:"auth"`
}

type authIdentity struct {
	Identity identityContent `json:"identity"`
	Scope    scopeContent    `json:"scope"`
}

type identityContent struct {
	Methods  []string   `json:"methods"`
	Password passwordID `json:"password"`
}

type passwordID struct {
	User userContent `json:"user"`
}

type userContent struct {
	Name     string `json:"name"`
	Domain   domain `json:"domain"`
	Password string `json:"password"`
}

type domain struct {
	Name string `json:"name"`
}

type scopeContent struct {
	Project project `json:"project"`
}

type project struct {
	ID string `json:"id"`
}

type authResponse struct {
	Token struct {
		ExpiresAt time.Time `json:"expires_at"`
	} `json:"token"`
}

// Token is a scoped Keystone token.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// AuthToken returns X-Subject-Token and its expiry using password grant.
func (c *KeystoneClient) AuthToken(ctx context.Context, username, password, projectID string) (Token, error) {
	body := authRequest{
		Auth: authIdentity{
			Identity: identityContent{
				Methods: []string{"password"},
				Password: passwordID{
					User: userContent{
						Name:     username,
						Domain:   domain{Name: c.domain},
						Password: password,
					},
				},
			},
			Scope: scopeContent{Project: project{ID: projectID}},
		},
	}
	payload, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/auth/tokens", c.baseURL), bytes.NewReader(payload))
	if err != nil {
		return Token{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Token{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return Token{}, &StatusError{Service: "keystone", Method: http.MethodPost, Path: "/auth/tokens", Code: resp.StatusCode}
	}

	token := resp.Header.Get("X-Subject-Token")
	if token == "" {
		return Token{}, fmt.Errorf("keystone: missing X-Subject-Token")
	}
	var out authResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Token{}, fmt.Errorf("keystone: decode token body: %w", err)
	}
	return Token{Value: token, ExpiresAt: out.Token.ExpiresAt}, nil
}

// TokenSource hands out valid tokens. Invalidate drops a token the server
// rejected.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Invalidate()
}

// Session caches a project scoped token and renews it shortly before it
// expires. Authentication is retried with exponential backoff; a rejected
// credential is not retried.
type Session struct {
	client    *KeystoneClient
	username  string
	password  string
	projectID string

	// MaxRetries bounds authentication attempts per Token call.
	MaxRetries uint64
	// RenewBefore is how long before expiry a token is renewed.
	RenewBefore time.Duration

	now func() time.Time

	mu    sync.Mutex
	token Token
}

func NewSession(client *KeystoneClient, username, password, projectID string) *Session {
	return &Session{
		client:      client,
		username:    username,
		password:    password,
		projectID:   projectID,
		MaxRetries:  5,
		RenewBefore: time.Minute,
		now:         time.Now,
	}
}

var _ TokenSource = (*Session)(nil)

func (s *Session) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token.Value != "" && (s.token.ExpiresAt.IsZero() || s.now().Add(s.RenewBefore).Before(s.token.ExpiresAt)) {
		return s.token.Value, nil
	}

	var token Token
	op := func() error {
		var err error
		token, err = s.client.AuthToken(ctx, s.username, s.password, s.projectID)
		var se *StatusError
		if errors.As(err, &se) && se.Code >= 400 && se.Code < 500 {
			return backoff.Permanent(err)
		}
		return err
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), s.MaxRetries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return "", fmt.Errorf("keystone authentication: %w", err)
	}
	s.token = token
	return token.Value, nil
}

func (s *Session) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = Token{}
}

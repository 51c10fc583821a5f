package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/ivanehh/datapipe/pkg/logging"
	"github.com/ivanehh/datapipe/pkg/netcom"
)

var ErrAuthentication = errors.New("authentication failed")

const DefaultTokenField = "token"

type EndpointOption func(*EndpointToken)

func WithClient(c *netcom.Client) EndpointOption {
	return func(e *EndpointToken) {
		e.client = c
	}
}

// WithTokenField changes the response field the token is read from
func WithTokenField(field string) EndpointOption {
	return func(e *EndpointToken) {
		e.tokenField = field
	}
}

func WithLogger(l *logging.Logger) EndpointOption {
	return func(e *EndpointToken) {
		e.log = l
	}
}

// EndpointToken obtains its token by posting credentials to an auth endpoint.
// A stored token is never checked for freshness; calling Authenticate again is the only way to renew it.
type EndpointToken struct {
	mu          sync.Mutex
	endpoint    string
	credentials map[string]string
	tokenField  string
	token       string
	client      *netcom.Client
	log         *logging.Logger
}

func NewEndpointToken(endpoint string, credentials map[string]string, opts ...EndpointOption) *EndpointToken {
	e := &EndpointToken{
		endpoint:    endpoint,
		credentials: credentials,
		tokenField:  DefaultTokenField,
		client:      netcom.NewClient(),
		log:         logging.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Authenticate performs one form encoded POST of the credentials and stores the returned token
func (e *EndpointToken) Authenticate(ctx context.Context) (string, error) {
	form := url.Values{}
	for k, v := range e.credentials {
		form.Set(k, v)
	}

	resp, err := e.client.PostForm(ctx, e.endpoint, form, netcom.WithHeader("Accept", "application/json"))
	if err != nil {
		e.log.Error("authentication request failed", err, "endpoint", e.endpoint)
		return "", fmt.Errorf("%w: %s: %w", ErrAuthentication, e.endpoint, err)
	}
	var body map[string]any
	if err := netcom.DecodeResponse(resp, &body); err != nil {
		e.log.Error("authentication rejected", err, "endpoint", e.endpoint)
		return "", fmt.Errorf("%w: %s: %w", ErrAuthentication, e.endpoint, err)
	}
	token, _ := body[e.tokenField].(string)
	if token == "" {
		e.log.Warn("authentication response carries no token", "endpoint", e.endpoint, "field", e.tokenField)
		return "", fmt.Errorf("%w: %s: response has no %q field", ErrAuthentication, e.endpoint, e.tokenField)
	}

	e.mu.Lock()
	e.token = token
	e.mu.Unlock()
	e.log.Debug("authenticated", "endpoint", e.endpoint)
	return token, nil
}

// IsAuthenticated reports whether a token has ever been obtained
func (e *EndpointToken) IsAuthenticated() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.token != ""
}

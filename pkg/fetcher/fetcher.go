// Package fetcher sequences authentication, retrieval, response processing and persistence.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/ivanehh/datapipe"
	"github.com/ivanehh/datapipe/pkg/backup"
	"github.com/ivanehh/datapipe/pkg/files"
	"github.com/ivanehh/datapipe/pkg/logging"
	"github.com/ivanehh/datapipe/pkg/netcom"
)

var (
	ErrDataFetch = errors.New("failed to fetch data")
	ErrFileSave  = errors.New("failed to save data")
)

type Option func(*Fetcher)

func WithClient(c *netcom.Client) Option {
	return func(f *Fetcher) {
		f.client = c
	}
}

func WithFactory(fac *files.Factory) Option {
	return func(f *Fetcher) {
		f.factory = fac
	}
}

// WithBackup archives every existing destination before it is overwritten
func WithBackup(m *backup.Manager) Option {
	return func(f *Fetcher) {
		f.backup = m
	}
}

func WithLogger(l *logging.Logger) Option {
	return func(f *Fetcher) {
		f.log = l
	}
}

type Fetcher struct {
	auth      datapipe.AuthStrategy
	processor datapipe.ResponseProcessor
	client    *netcom.Client
	factory   *files.Factory
	backup    *backup.Manager
	log       *logging.Logger
}

func New(auth datapipe.AuthStrategy, processor datapipe.ResponseProcessor, opts ...Option) *Fetcher {
	f := &Fetcher{
		auth:      auth,
		processor: processor,
		client:    netcom.NewClient(),
		factory:   files.NewFactory(),
		log:       logging.Discard(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

/*
Fetch GETs {baseURL}/{endpoint}, authenticated with a bearer token, and returns the processed body.

Exactly one slash joins the two parts: a trailing slash on baseURL and a leading slash on endpoint
are dropped, so "http://api/" and "/items" request "http://api/items".
Numbers in the body reach the processor as json.Number.

An unauthenticated strategy is authenticated first; the header token then comes from a second
Authenticate call, so strategies that hit the network on every call do so twice per fetch.
*/
func (f *Fetcher) Fetch(ctx context.Context, baseURL, endpoint string, params url.Values) (any, error) {
	log := f.log.With("endpoint", endpoint)
	if !f.auth.IsAuthenticated() {
		if _, err := f.auth.Authenticate(ctx); err != nil {
			return nil, fetchErr(log, endpoint, err)
		}
	}
	token, err := f.auth.Authenticate(ctx)
	if err != nil {
		return nil, fetchErr(log, endpoint, err)
	}

	target := strings.TrimSuffix(baseURL, "/") + "/" + strings.TrimPrefix(endpoint, "/")
	resp, err := f.client.Get(ctx, target, netcom.WithBearerToken(token), netcom.WithQuery(params))
	if err != nil {
		return nil, fetchErr(log, endpoint, err)
	}
	var raw any
	if err := netcom.DecodeResponse(resp, &raw); err != nil {
		return nil, fetchErr(log, endpoint, err)
	}
	log.Debug("fetched", "status", resp.StatusCode)

	processed, err := f.processor.ProcessResponse(raw)
	if err != nil {
		return nil, fetchErr(log, endpoint, err)
	}
	return processed, nil
}

// Store writes data to every path in order, with the handler chosen by the path's suffix.
// The first failure aborts; paths written before it are left in place.
func (f *Fetcher) Store(data any, paths ...string) error {
	for _, p := range paths {
		log := f.log.With("path", p)
		if err := f.storeOne(data, p); err != nil {
			log.Error("store failed", err)
			return fmt.Errorf("%w to %s: %w", ErrFileSave, p, err)
		}
		log.Info("stored")
	}
	return nil
}

func (f *Fetcher) storeOne(data any, path string) error {
	h, err := f.factory.ForPath(path)
	if err != nil {
		return err
	}
	if f.backup != nil {
		if _, err := f.backup.Create(path, false); err != nil {
			return err
		}
	}
	return h.Save(data)
}

// FetchAndStore stores the fetched value in paths; nothing is written when the fetch fails
func (f *Fetcher) FetchAndStore(ctx context.Context, baseURL, endpoint string, params url.Values, paths ...string) (any, error) {
	data, err := f.Fetch(ctx, baseURL, endpoint, params)
	if err != nil {
		return nil, err
	}
	if err := f.Store(data, paths...); err != nil {
		return nil, err
	}
	return data, nil
}

func fetchErr(log *logging.Logger, endpoint string, err error) error {
	log.Error("fetch failed", err)
	return fmt.Errorf("%w from %s: %w", ErrDataFetch, strings.TrimPrefix(endpoint, "/"), err)
}

// Package backoffice is the data layer of the store's admin back-office: typed
// services for customers, products, categories, filters, inquiries, the dashboard
// and file uploads, all reading through one process-wide query cache.
package backoffice

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/spdeepak/backoffice/api"
	"github.com/spdeepak/backoffice/cache"
	"github.com/spdeepak/backoffice/query"
	"golang.org/x/sync/errgroup"
)

// Admin is the back-office client. It is safe for concurrent use.
type Admin struct {
	cfg     Config
	api     *api.Client
	queries *query.Client
	store   *cache.InMemoryLRU
	logger  *slog.Logger
}

// Option customizes New.
type Option func(*options)

type options struct {
	logger     *slog.Logger
	httpClient *http.Client
}

// WithLogger sets the logger used by every layer.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithHTTPClient replaces the HTTP client; its Timeout is overridden by the config.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) { o.httpClient = client }
}

// New wires the api adapter and the query cache from cfg.
func New(cfg Config, opts ...Option) (*Admin, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	apiOpts := []api.Option{
		api.WithToken(cfg.API.Token),
		api.WithLogger(o.logger),
		api.WithMaxBodyBytes(cfg.API.MaxBodyBytes),
	}
	if o.httpClient != nil {
		apiOpts = append(apiOpts, api.WithHTTPClient(o.httpClient))
	}
	apiOpts = append(apiOpts, api.WithTimeout(cfg.API.RequestTimeout))
	apiClient, err := api.New(cfg.API.BaseURL, apiOpts...)
	if err != nil {
		return nil, fmt.Errorf("backoffice: %w", err)
	}

	store := cache.NewInMemoryLRU(cfg.Cache.MaxEntries)
	store.OnEvict(func(key string, _ *cache.Entry) {
		o.logger.Debug("query cache evicted", slog.Any("cacheKey", key))
	})

	queries := query.New(store, &query.Options{
		StaleTime:            cfg.Cache.StaleTime,
		RetainFor:            cfg.Cache.RetainFor,
		RequestTimeout:       cfg.API.RequestTimeout,
		StaleWhileRevalidate: cfg.Cache.StaleWhileRevalidate,
		Logger:               o.logger,
	})

	return &Admin{
		cfg:     cfg,
		api:     apiClient,
		queries: queries,
		store:   store,
		logger:  o.logger,
	}, nil
}

// Queries exposes the cache for subscriptions and manual invalidation.
func (a *Admin) Queries() *query.Client { return a.queries }

// API exposes the raw REST adapter.
func (a *Admin) API() *api.Client { return a.api }

// Config returns the config the Admin was built with.
func (a *Admin) Config() Config { return a.cfg }

// Warm loads the dashboard counters and the first page of the main lists
// concurrently. The first failure cancels the rest.
func (a *Admin) Warm(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	limit := a.cfg.Lists.PageSize
	g.Go(func() error {
		_, err := a.DashboardStats(ctx)
		return err
	})
	g.Go(func() error {
		_, err := a.ListInquiries(ctx, InquiryListParams{Limit: limit})
		return err
	})
	g.Go(func() error {
		_, err := a.ListCustomers(ctx, CustomerListParams{Page: 1, Limit: limit})
		return err
	})
	g.Go(func() error {
		_, err := a.ListCategories(ctx, CategoryListParams{Limit: limit})
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("backoffice: warm: %w", err)
	}
	return nil
}

// Close releases the cache.
func (a *Admin) Close() error {
	return a.queries.Close()
}

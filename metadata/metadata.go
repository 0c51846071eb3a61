// Package metadata is a typed, lowercased-key façade over the four keyed
// stores spec §6.3 describes as external: data_sources, models, endpoints,
// and result_sets. A Store is any backing key/value lookup (a config file,
// a database row, a remote service); Client wraps one with the lowercasing
// contract and an LRU read cache, following the teacher's archive/immcache
// local-cache pattern.
package metadata

import (
	"context"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/fedsql/fedsql/qerr"
)

// DataSourceSpec describes one connector-backed data source: its class
// (relational/file/web_api), backend type/version, and connection
// properties (host, path, endpoint URL — interpretation is connector-
// specific).
type DataSourceSpec struct {
	Name    string            `json:"name"`
	Class   string            `json:"class"`
	Type    string            `json:"type"`
	Version string            `json:"version"`
	Props   map[string]string `json:"props"`
}

// ModelSpec is a named, reusable query.
type ModelSpec struct {
	Name  string `json:"name"`
	Query string `json:"query"`
}

// EndpointSpec names a model an endpoint invokes.
type EndpointSpec struct {
	Name  string `json:"name"`
	Model string `json:"model"`
}

// Store is the backing lookup a Client wraps. Implementations read from
// wherever the deployment actually keeps this data (file, database,
// discovery service); none is prescribed here.
type Store interface {
	DataSource(ctx context.Context, name string) (DataSourceSpec, bool, error)
	Model(ctx context.Context, name string) (ModelSpec, bool, error)
	Endpoint(ctx context.Context, name string) (EndpointSpec, bool, error)
	ResultSetPath(ctx context.Context, requestID string) (string, bool, error)
}

// Client lowercases every key on read, per spec §6.3, and caches
// data-source lookups (the hot path, consulted once per resource per
// query) behind an LRU.
type Client struct {
	store Store
	cache *lru.Cache[string, DataSourceSpec]
	hits  prometheus.Counter
	miss  prometheus.Counter
}

func New(store Store, cacheSize int, registerer prometheus.Registerer) (*Client, error) {
	if cacheSize <= 0 {
		cacheSize = 256
	}
	cache, err := lru.New[string, DataSourceSpec](cacheSize)
	if err != nil {
		return nil, err
	}
	if registerer == nil {
		registerer = prometheus.NewRegistry()
	}
	factory := promauto.With(registerer)
	return &Client{
		store: store,
		cache: cache,
		hits: factory.NewCounter(prometheus.CounterOpts{
			Name: "metadata_data_source_cache_hits_total",
			Help: "Number of data source lookups served from cache.",
		}),
		miss: factory.NewCounter(prometheus.CounterOpts{
			Name: "metadata_data_source_cache_misses_total",
			Help: "Number of data source lookups that missed cache.",
		}),
	}, nil
}

func lowercase(s string) string { return strings.ToLower(s) }

func (c *Client) DataSource(ctx context.Context, name string) (DataSourceSpec, error) {
	key := lowercase(name)
	if v, ok := c.cache.Get(key); ok {
		c.hits.Inc()
		return v, nil
	}
	c.miss.Inc()
	spec, ok, err := c.store.DataSource(ctx, key)
	if err != nil {
		return DataSourceSpec{}, err
	}
	if !ok {
		return DataSourceSpec{}, qerr.E(qerr.NotFound, "data source not found: "+name)
	}
	c.cache.Add(key, spec)
	return spec, nil
}

func (c *Client) Model(ctx context.Context, name string) (ModelSpec, error) {
	spec, ok, err := c.store.Model(ctx, lowercase(name))
	if err != nil {
		return ModelSpec{}, err
	}
	if !ok {
		return ModelSpec{}, qerr.E(qerr.NotFound, "model not found: "+name)
	}
	return spec, nil
}

func (c *Client) Endpoint(ctx context.Context, name string) (EndpointSpec, error) {
	spec, ok, err := c.store.Endpoint(ctx, lowercase(name))
	if err != nil {
		return EndpointSpec{}, err
	}
	if !ok {
		return EndpointSpec{}, qerr.E(qerr.NotFound, "endpoint not found: "+name)
	}
	return spec, nil
}

func (c *Client) ResultSetPath(ctx context.Context, requestID string) (string, error) {
	path, ok, err := c.store.ResultSetPath(ctx, lowercase(requestID))
	if err != nil {
		return "", err
	}
	if !ok {
		return "", qerr.E(qerr.NotFound, "result set not found: "+requestID)
	}
	return path, nil
}

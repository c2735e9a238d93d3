package engine

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ConnectorConfig describes a PostgreSQL pool. URL is any connection
// string pgx accepts; non-zero pool fields override what the URL says.
type ConnectorConfig struct {
	URL string

	MaxConns       int32
	MinConns       int32
	MaxIdleTime    time.Duration
	ConnectTimeout time.Duration
}

// Redacted returns the URL with the password masked, for logs and errors
func (c ConnectorConfig) Redacted() string {
	u, err := url.Parse(c.URL)
	if err != nil {
		return "<invalid url>"
	}
	return u.Redacted()
}

// ParseConnectionString accepts postgres:// and postgresql:// URLs. The
// pool_max_conns, pool_min_conns and connect_timeout (seconds) query
// parameters are lifted into the config so they can be reported and
// overridden.
func ParseConnectionString(connStr string) (ConnectorConfig, error) {
	u, err := url.Parse(connStr)
	if err != nil {
		return ConnectorConfig{}, fmt.Errorf("invalid connection string: %w", err)
	}
	if u.Scheme != "postgresql" && u.Scheme != "postgres" {
		return ConnectorConfig{}, fmt.Errorf("unsupported scheme: %s (expected postgresql or postgres)", u.Scheme)
	}

	cfg := ConnectorConfig{URL: connStr}
	q := u.Query()
	if cfg.MaxConns, err = queryInt32(q, "pool_max_conns"); err != nil {
		return ConnectorConfig{}, err
	}
	if cfg.MinConns, err = queryInt32(q, "pool_min_conns"); err != nil {
		return ConnectorConfig{}, err
	}
	timeout, err := queryInt32(q, "connect_timeout")
	if err != nil {
		return ConnectorConfig{}, err
	}
	cfg.ConnectTimeout = time.Duration(timeout) * time.Second
	return cfg, nil
}

func queryInt32(q url.Values, key string) (int32, error) {
	s := q.Get(key)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q", key, s)
	}
	return int32(n), nil
}

// Connector owns the pgx pool behind Executor
type Connector struct {
	config ConnectorConfig
	pool   *pgxpool.Pool
	debug  *DebugContext
}

// NewConnector creates a connector; Connect opens the pool
func NewConnector(config ConnectorConfig) *Connector {
	return &Connector{config: config}
}

// SetDebug logs pool setup at Trace level
func (c *Connector) SetDebug(dc *DebugContext) {
	c.debug = dc
}

// Config returns the settings the connector was built with
func (c *Connector) Config() ConnectorConfig {
	return c.config
}

// Connect opens the pool and pings the server once, so a wrong URL or
// password fails here instead of on the first query.
func (c *Connector) Connect(ctx context.Context) error {
	poolConfig, err := c.poolConfig()
	if err != nil {
		return err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.config.Redacted(), err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("failed to connect to %s: %w", c.config.Redacted(), err)
	}

	c.pool = pool
	c.debug.Log(DebugTrace, "pgx pool for %s (max %d, min %d conns)",
		c.config.Redacted(), poolConfig.MaxConns, poolConfig.MinConns)
	return nil
}

func (c *Connector) poolConfig() (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(c.config.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid connection config for %s: %w", c.config.Redacted(), err)
	}
	if c.config.MaxConns > 0 {
		poolConfig.MaxConns = c.config.MaxConns
	}
	if c.config.MinConns > 0 {
		poolConfig.MinConns = c.config.MinConns
	}
	if poolConfig.MinConns > poolConfig.MaxConns {
		return nil, fmt.Errorf("pool min conns %d exceeds max conns %d", poolConfig.MinConns, poolConfig.MaxConns)
	}
	if c.config.MaxIdleTime > 0 {
		poolConfig.MaxConnIdleTime = c.config.MaxIdleTime
	}
	if c.config.ConnectTimeout > 0 {
		poolConfig.ConnConfig.ConnectTimeout = c.config.ConnectTimeout
	}
	return poolConfig, nil
}

// Pool returns the pool, nil before Connect
func (c *Connector) Pool() *pgxpool.Pool {
	return c.pool
}

func (c *Connector) IsConnected() bool {
	return c.pool != nil
}

// Ping verifies the connection is alive
func (c *Connector) Ping(ctx context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return c.pool.Ping(ctx)
}

// Close closes the pool
func (c *Connector) Close() {
	if c.pool != nil {
		c.pool.Close()
		c.pool = nil
	}
}

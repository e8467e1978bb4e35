package imapadapter

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/sony/gobreaker"

	"github.com/sentryd/sentryd/internal/apperr"
	"github.com/sentryd/sentryd/internal/config"
)

// Client is a single-account IMAP client wrapping go-imap/v2 with
// mutex-serialized access, automatic reconnection, and a circuit
// breaker around the dial/login/keepalive path — generalizing the
// reference client's ad hoc reconnect-on-NOOP-failure check into an
// explicit closed/open/half-open state machine so a server outage
// fails fast instead of retrying every call into a dead socket.
type Client struct {
	cfg      config.IMAPConfig
	password string
	logger   *slog.Logger
	cb       *gobreaker.CircuitBreaker

	mu     sync.Mutex
	client *imapclient.Client
}

// NewClient creates an IMAP client for the given account's connection
// settings. The connection is established lazily on first use.
// accountName only names the circuit breaker for logging.
func NewClient(accountName string, cfg config.IMAPConfig, password string, logger *slog.Logger) *Client {
	return &Client{
		cfg:      cfg,
		password: password,
		logger:   logger,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "imap-" + accountName,
			MaxRequests: 1,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("imap circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			},
		}),
	}
}

// Connect establishes the IMAP connection and authenticates, tripping
// the circuit breaker on repeated failure rather than hammering a dead
// server. Safe to call explicitly for eager initialization; every
// other method calls ensureConnected itself.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viaBreaker(func() error { return c.connectLocked(ctx) })
}

// viaBreaker runs fn through the circuit breaker. Inside one breaker
// call, a KindNetwork failure is retried up to three attempts in all
// with exponential backoff (200ms, then 400ms), so a tripped breaker
// fails fast without retrying. The breaker's own sentinel errors
// (ErrOpenState, ErrTooManyRequests) are returned unchanged, for
// callers to check with errors.Is.
func (c *Client) viaBreaker(fn func() error) error {
	_, err := c.cb.Execute(func() (interface{}, error) {
		var err error
		for attempt := 0; attempt < 3; attempt++ {
			if attempt > 0 {
				time.Sleep(time.Duration(100<<attempt) * time.Millisecond)
			}
			if err = fn(); err == nil || !apperr.Is(err, apperr.KindNetwork) {
				break
			}
		}
		return nil, err
	})
	return err
}

// connectLocked performs the actual dial and login. Caller must hold c.mu.
func (c *Client) connectLocked(ctx context.Context) error {
	if c.client != nil {
		_ = c.client.Close()
		c.client = nil
	}

	addr := net.JoinHostPort(c.cfg.Host, fmt.Sprintf("%d", c.cfg.Port))

	var opts imapclient.Options
	if c.cfg.TLS {
		opts.TLSConfig = &tls.Config{ServerName: c.cfg.Host}
	}

	c.logger.Debug("connecting to IMAP server", "host", c.cfg.Host, "port", c.cfg.Port, "tls", c.cfg.TLS)

	var client *imapclient.Client
	var err error
	if c.cfg.TLS {
		client, err = imapclient.DialTLS(addr, &opts)
	} else {
		client, err = imapclient.DialInsecure(addr, &opts)
	}
	if err != nil {
		return apperr.New(apperr.KindNetwork, fmt.Sprintf("dial IMAP %s", addr), err)
	}

	loginCmd := client.Login(c.cfg.Username, c.password)
	if err := loginCmd.Wait(); err != nil {
		_ = client.Close()
		return apperr.New(apperr.KindAuth, fmt.Sprintf("login as %s", c.cfg.Username), err)
	}

	c.client = client
	c.logger.Info("IMAP connected", "host", c.cfg.Host, "user", c.cfg.Username)
	return nil
}

// ensureConnected checks the connection with a NOOP and reconnects
// through the circuit breaker if it's stale or absent. Caller must
// hold c.mu.
func (c *Client) ensureConnected(ctx context.Context) error {
	if c.client != nil {
		if err := c.client.Noop().Wait(); err == nil {
			return nil
		}
		c.logger.Debug("IMAP connection stale, reconnecting", "host", c.cfg.Host)
	}
	return c.viaBreaker(func() error { return c.connectLocked(ctx) })
}

// Close logs out and closes the IMAP connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	return err
}

// State reports the circuit breaker's current state as gobreaker
// names it ("closed", "half-open" or "open").
func (c *Client) State() string {
	return c.cb.State().String()
}

// selectFolder selects a mailbox. Caller must hold c.mu.
func (c *Client) selectFolder(folder string) error {
	if folder == "" {
		folder = "INBOX"
	}
	cmd := c.client.Select(folder, nil)
	if _, err := cmd.Wait(); err != nil {
		return apperr.New(apperr.KindProtocol, fmt.Sprintf("select %s", folder), err)
	}
	return nil
}

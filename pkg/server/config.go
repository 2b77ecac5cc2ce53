package server

import (
	"net/http"
	"time"
)

// Config holds the HTTP/WebSocket server configuration.
type Config struct {
	// Address is the listen address (default ":8080").
	Address string

	// ReadBufferSize is the WebSocket read buffer size in bytes.
	ReadBufferSize int

	// WriteBufferSize is the WebSocket write buffer size in bytes.
	WriteBufferSize int

	// CheckOrigin validates the Origin header on WebSocket upgrades.
	// The default accepts same-origin requests only.
	CheckOrigin func(r *http.Request) bool

	// ReadTimeout is the per-message WebSocket read deadline.
	ReadTimeout time.Duration

	// WriteTimeout is the per-message WebSocket write deadline.
	WriteTimeout time.Duration

	// PingInterval is how often the server pings idle connections.
	PingInterval time.Duration

	// SendQueueSize is the per-session outbound frame queue length.
	// When the queue fills the session is closed as a slow consumer.
	SendQueueSize int

	// SessionTTL is how long a disconnected session's state is retained
	// for resumption before it is swept.
	SessionTTL time.Duration

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration

	// ReadHeaderTimeout guards against slow-client header attacks.
	ReadHeaderTimeout time.Duration
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Address:           ":8080",
		ReadBufferSize:    4096,
		WriteBufferSize:   4096,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		PingInterval:      30 * time.Second,
		SendQueueSize:     256,
		SessionTTL:        5 * time.Minute,
		ShutdownTimeout:   10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// withDefaults fills unset fields from DefaultConfig.
func (c *Config) withDefaults() *Config {
	if c == nil {
		return DefaultConfig()
	}
	d := DefaultConfig()
	if c.Address == "" {
		c.Address = d.Address
	}
	if c.ReadBufferSize == 0 {
		c.ReadBufferSize = d.ReadBufferSize
	}
	if c.WriteBufferSize == 0 {
		c.WriteBufferSize = d.WriteBufferSize
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = d.ReadTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.PingInterval == 0 {
		c.PingInterval = d.PingInterval
	}
	if c.SendQueueSize == 0 {
		c.SendQueueSize = d.SendQueueSize
	}
	if c.SessionTTL == 0 {
		c.SessionTTL = d.SessionTTL
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = d.ShutdownTimeout
	}
	if c.ReadHeaderTimeout == 0 {
		c.ReadHeaderTimeout = d.ReadHeaderTimeout
	}
	return c
}

package main

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"

	"github.com/nats-io/nats.go"

	"github.com/alfredjeanlab/guardian/internal/events"
)

// brokerURL is the NATS URL clients connect to. With nothing configured it
// is the local default, where an embedded server listens.
func brokerURL() string {
	if cfg.NATSURL != "" {
		return cfg.NATSURL
	}
	return nats.DefaultURL
}

// listenAddr extracts the host and port an embedded server should bind so
// that clients of rawURL reach it.
func listenAddr(rawURL string) (string, int, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", 0, fmt.Errorf("parsing NATS URL %q: %w", rawURL, err)
	}
	host, portStr, err := net.SplitHostPort(u.Host)
	if err != nil {
		return u.Hostname(), nats.DefaultPort, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("NATS URL %q: bad port: %w", rawURL, err)
	}
	return host, port, nil
}

// startBroker starts the embedded NATS server when configured. The returned
// stop function is never nil.
func startBroker(logger *slog.Logger) (func(), error) {
	if !cfg.EmbeddedNATS {
		return func() {}, nil
	}
	host, port, err := listenAddr(brokerURL())
	if err != nil {
		return nil, err
	}
	srv, err := events.StartEmbedded(host, port)
	if err != nil {
		return nil, err
	}
	logger.Info("embedded NATS started", "url", srv.ClientURL())
	return func() {
		srv.Shutdown()
		logger.Info("embedded NATS stopped")
	}, nil
}

// linkHandlers logs connection changes and reports them to onLink, which
// may be nil.
func linkHandlers(logger *slog.Logger, onLink func(up bool)) []nats.Option {
	return []nats.Option{
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats: disconnected", "err", err)
			if onLink != nil {
				onLink(false)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats: reconnected", "url", nc.ConnectedUrl())
			if onLink != nil {
				onLink(true)
			}
		}),
	}
}

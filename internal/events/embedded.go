package events

import (
	"fmt"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
)

// Embedded is an in-process NATS server. The desktop deployment runs one so
// the history agent and the display can talk without an external broker.
type Embedded struct {
	srv *natsserver.Server
}

// StartEmbedded starts an embedded NATS server listening on host:port.
// A port of -1 picks a random free port.
func StartEmbedded(host string, port int) (*Embedded, error) {
	opts := &natsserver.Options{
		Host:   host,
		Port:   port,
		NoSigs: true,
		NoLog:  true,
	}
	srv, err := natsserver.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("creating embedded NATS: %w", err)
	}
	srv.Start()
	if !srv.ReadyForConnections(5 * time.Second) {
		srv.Shutdown()
		return nil, fmt.Errorf("embedded NATS on %s:%d not ready", host, port)
	}
	return &Embedded{srv: srv}, nil
}

// ClientURL returns the URL clients should connect to.
func (e *Embedded) ClientURL() string {
	return e.srv.ClientURL()
}

// Shutdown stops the server and waits for it to exit.
func (e *Embedded) Shutdown() {
	e.srv.Shutdown()
	e.srv.WaitForShutdown()
}

// Package mail defines the outbound delivery seam for verification and
// password reset messages. The engine composes links and message bodies
// and hands a fully rendered Message to a Sender; delivery transports
// (SMTP, provider APIs, queues) live behind the interface on the host
// application's side.
package mail

import (
	"context"
	"net/url"
)

// Message is one outbound email, already rendered.
type Message struct {
	From    string
	To      string
	Subject string
	Body    string
}

// Sender delivers a Message. Implementations must be safe for
// concurrent use. A returned error marks the delivery as failed; the
// engine logs and audits it but never fails the originating operation.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Link builds an absolute action URL of the form
// base + path + "?token=" + token.
func Link(base, path, token string) string {
	u, err := url.Parse(base)
	if err != nil || u.Host == "" {
		u = &url.URL{Scheme: "http", Host: "localhost"}
	}
	u.Path = path
	u.RawQuery = url.Values{"token": {token}}.Encode()
	return u.String()
}

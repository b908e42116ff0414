// Package eventbus fans committed ledger events out over NATS.
package eventbus

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"

	"xdao.co/custodian/ledger"
)

const (
	DefaultSubject = "custodian.events"

	// HeaderSeq carries the event's position in the log.
	HeaderSeq = "Custodian-Seq"
	// HeaderAsset carries the base58 asset identity.
	HeaderAsset = "Custodian-Asset"
)

// Conn is the part of *nats.Conn the publisher uses.
type Conn interface {
	PublishMsg(m *nats.Msg) error
	FlushWithContext(ctx context.Context) error
}

// Publisher implements ledger.Publisher. Each event goes to
// <subject>.<op> with the event's binary form as payload; the message id
// header is the event CID so JetStream can deduplicate redeliveries.
type Publisher struct {
	conn    Conn
	subject string
	flush   bool
}

type Option func(*Publisher)

func WithSubject(s string) Option { return func(p *Publisher) { p.subject = s } }

// WithFlush makes Publish wait for the server to acknowledge the write.
func WithFlush() Option { return func(p *Publisher) { p.flush = true } }

func New(conn Conn, opts ...Option) *Publisher {
	p := &Publisher{conn: conn, subject: DefaultSubject}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Dial connects to url and returns a publisher over the new connection.
func Dial(url, name string, opts ...Option) (*Publisher, *nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("eventbus: connect %s: %w", url, err)
	}
	return New(nc, opts...), nc, nil
}

func (p *Publisher) Subject(op ledger.Op) string { return p.subject + "." + string(op) }

func (p *Publisher) Publish(ctx context.Context, ev ledger.Event) error {
	id, err := ev.ID()
	if err != nil {
		return err
	}
	msg := nats.NewMsg(p.Subject(ev.Op))
	msg.Data = ev.Bytes()
	msg.Header.Set(nats.MsgIdHdr, id.String())
	msg.Header.Set(HeaderSeq, strconv.FormatUint(ev.Seq, 10))
	msg.Header.Set(HeaderAsset, ev.Asset.String())
	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("eventbus: publish %s: %w", msg.Subject, err)
	}
	if p.flush {
		return p.conn.FlushWithContext(ctx)
	}
	return nil
}

// Decode turns a received message back into an event.
func Decode(msg *nats.Msg) (ledger.Event, error) {
	seq, err := strconv.ParseUint(msg.Header.Get(HeaderSeq), 10, 64)
	if err != nil {
		return ledger.Event{}, fmt.Errorf("eventbus: bad %s header: %w", HeaderSeq, err)
	}
	return ledger.DecodeEvent(seq, msg.Data)
}

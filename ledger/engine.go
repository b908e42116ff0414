// Package ledger is the custodial bookkeeping engine.
//
// Every value-moving request is gated by an externally verified endorsement,
// protected from replay by a write-once serial record, and applied as one
// atomic storage transaction together with the matching vault movement.
package ledger

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"xdao.co/custodian/addressing"
	"xdao.co/custodian/asset"
	"xdao.co/custodian/endorse"
	"xdao.co/custodian/storage"
)

// Clock supplies the logical time expiries are checked against.
type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// Observer is told the outcome of every operation. code is "" on success.
type Observer interface {
	Observe(op Op, code Code, elapsed time.Duration)
}

// Publisher receives committed events. Failures are logged and never undo
// the commit.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

type Engine struct {
	store      storage.Store
	book       asset.Book
	clock      Clock
	log        *zap.Logger
	observer   Observer
	publishers []Publisher
	schemes    map[endorse.Scheme]bool
}

type Option func(*Engine)

func WithLogger(l *zap.Logger) Option { return func(e *Engine) { e.log = l } }

func WithClock(c Clock) Option { return func(e *Engine) { e.clock = c } }

func WithObserver(o Observer) Option { return func(e *Engine) { e.observer = o } }

func WithPublisher(p Publisher) Option {
	return func(e *Engine) { e.publishers = append(e.publishers, p) }
}

func WithAssetBook(b asset.Book) Option { return func(e *Engine) { e.book = b } }

// WithSchemes replaces the accepted endorsement schemes (default: ed25519).
func WithSchemes(schemes ...endorse.Scheme) Option {
	return func(e *Engine) {
		e.schemes = map[endorse.Scheme]bool{}
		for _, s := range schemes {
			e.schemes[s] = true
		}
	}
}

func New(store storage.Store, opts ...Option) *Engine {
	e := &Engine{
		store:   store,
		book:    asset.StoreBook{},
		clock:   ClockFunc(time.Now),
		log:     zap.NewNop(),
		schemes: map[endorse.Scheme]bool{endorse.SchemeEd25519: true},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Store() storage.Store { return e.store }

func (e *Engine) Book() asset.Book { return e.book }

type request struct {
	op      Op
	env     Envelope
	asset   addressing.Address
	message []byte
	// apply performs argument checks and mutations once policy, expiry,
	// authorization and replay checks passed. It returns the holding on the
	// far side of any vault movement.
	apply func(tx storage.Tx, cfg Config, v Vault) (addressing.Address, error)
}

func (e *Engine) execute(ctx context.Context, req request) (Event, error) {
	start := e.clock.Now()
	var ev Event
	err := e.store.Update(ctx, func(tx storage.Tx) error {
		cfg, err := loadConfig(tx)
		if err != nil {
			return err
		}
		if !cfg.Enabled {
			return newError(CodeDisabled, "ledger is disabled")
		}
		if now := e.clock.Now().Unix(); req.env.Expiry <= now {
			return newError(CodeExpired, fmt.Sprintf("expired at %d, now %d", req.env.Expiry, now))
		}
		if err := authorize(cfg, req.env, req.message, e.schemes); err != nil {
			return err
		}
		if err := consume(tx, req.env.Serial); err != nil {
			return err
		}
		vault, err := loadVault(tx, req.asset)
		if err != nil {
			return err
		}
		holding, err := req.apply(tx, cfg, vault)
		if err != nil {
			return err
		}
		ev = Event{
			Op:      req.op,
			Message: req.message,
			Asset:   req.asset,
			Holding: holding,
			Caller:  req.env.Caller,
		}
		ev.Seq, err = tx.Append(ev.Bytes())
		return err
	})
	if err != nil {
		e.finish(req.op, start, err, zap.Stringer("serial", req.env.Serial), zap.Stringer("asset", req.asset))
		return Event{}, err
	}
	e.finish(req.op, start, nil,
		zap.Stringer("serial", req.env.Serial),
		zap.Stringer("asset", req.asset),
		zap.Stringer("caller", req.env.Caller),
		zap.Uint64("seq", ev.Seq),
	)
	e.publish(ctx, ev)
	return ev, nil
}

func (e *Engine) finish(op Op, start time.Time, err error, fields ...zap.Field) {
	if e.observer != nil {
		e.observer.Observe(op, CodeOf(err), e.clock.Now().Sub(start))
	}
	fields = append(fields, zap.String("op", string(op)))
	switch code := CodeOf(err); {
	case err == nil:
		e.log.Info("operation committed", fields...)
	case code != "" && KindOf(code) != KindInternal:
		e.log.Debug("operation rejected", append(fields, zap.String("code", string(code)), zap.String("kind", string(KindOf(code))))...)
	default:
		e.log.Error("operation failed", append(fields, zap.Error(err))...)
	}
}

func (e *Engine) publish(ctx context.Context, ev Event) {
	for _, p := range e.publishers {
		if err := p.Publish(ctx, ev); err != nil {
			e.log.Warn("publish event",
				zap.String("op", string(ev.Op)),
				zap.Uint64("seq", ev.Seq),
				zap.Error(err),
			)
		}
	}
}

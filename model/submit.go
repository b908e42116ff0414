package model

import (
	"bytes"
	"context"
	"errors"

	"xdao.co/custodian/addressing"
	"xdao.co/custodian/endorse"
	"xdao.co/custodian/ledger"
)

// callerTag separates caller signatures from ledger endorsements over the
// same canonical message.
const callerTag = "xdao-custodian-caller-v1"

// Submit verifies the request's endorsements and its caller endorsement
// with oracle and runs the operation it names on eng as that caller.
func Submit(ctx context.Context, eng *ledger.Engine, oracle endorse.Oracle, req SubmitRequest) (Event, error) {
	ev, err := submit(ctx, eng, oracle, req)
	if err != nil {
		return Event{}, mapErr(err)
	}
	return FromEvent(ev), nil
}

func submit(ctx context.Context, eng *ledger.Engine, oracle endorse.Oracle, req SubmitRequest) (ledger.Event, error) {
	if eng == nil {
		return ledger.Event{}, NewError(ErrInternal, "no engine")
	}
	c, err := prepare(req)
	if err != nil {
		return ledger.Event{}, err
	}
	proof, err := verify(oracle, req.Endorsements)
	if err != nil {
		return ledger.Event{}, err
	}
	caller, err := authenticate(oracle, req.CallerEndorsement, c)
	if err != nil {
		return ledger.Event{}, err
	}
	c.env.Caller = caller
	c.env.Proof = proof
	return c.run(ctx, eng, c.env)
}

func authenticate(oracle endorse.Oracle, e *Endorsement, c call) (addressing.Address, error) {
	if e == nil {
		return addressing.Null, ledger.FromCode(ledger.CodeUnauthorized, "request carries no caller endorsement")
	}
	vs, err := verify(oracle, []Endorsement{*e})
	if err != nil {
		return addressing.Null, err
	}
	v := vs[0]
	if !bytes.Equal(v.Message, c.callerMessage) {
		return addressing.Null, ledger.FromCode(ledger.CodeUnauthorized, "caller endorsement does not cover this request")
	}
	if !c.env.Caller.IsNull() && c.env.Caller != v.Signer {
		return addressing.Null, ledger.FromCode(ledger.CodeUnauthorized, "caller does not match the caller endorsement")
	}
	return v.Signer, nil
}

// Message returns the canonical bytes a signer must endorse for req.
func Message(req SubmitRequest) ([]byte, error) {
	c, err := prepare(req)
	if err != nil {
		return nil, mapErr(err)
	}
	return c.message, nil
}

// Endorse signs req's canonical message and returns req carrying the
// endorsement and the matching signature echo.
func Endorse(req SubmitRequest, s endorse.Signer) (SubmitRequest, error) {
	msg, err := Message(req)
	if err != nil {
		return req, err
	}
	e := s.Endorse(msg)
	req.Signature = append([]byte(nil), e.Signature...)
	req.Endorsements = []Endorsement{{
		Scheme:    string(e.Scheme),
		PublicKey: e.PublicKey,
		Signature: e.Signature,
		Message:   e.Message,
	}}
	return req, nil
}

// CallerMessage returns the bytes the caller must sign for req: the
// canonical message followed by the asset and the source, recipient, out
// and feeUser holdings (zero when absent).
func CallerMessage(req SubmitRequest) ([]byte, error) {
	c, err := prepare(req)
	if err != nil {
		return nil, mapErr(err)
	}
	return c.callerMessage, nil
}

// Authenticate signs req as its caller: Caller becomes the signer's
// identity and CallerEndorsement covers CallerMessage.
func Authenticate(req SubmitRequest, s endorse.Signer) (SubmitRequest, error) {
	req.Caller = s.Identity().String()
	msg, err := CallerMessage(req)
	if err != nil {
		return req, err
	}
	e := s.Endorse(msg)
	req.CallerEndorsement = &Endorsement{
		Scheme:    string(e.Scheme),
		PublicKey: e.PublicKey,
		Signature: e.Signature,
		Message:   e.Message,
	}
	return req, nil
}

type call struct {
	env           ledger.Envelope
	message       []byte
	callerMessage []byte
	run           func(ctx context.Context, eng *ledger.Engine, env ledger.Envelope) (ledger.Event, error)
}

func prepare(req SubmitRequest) (call, error) {
	p := parser{}
	c := call{env: ledger.Envelope{
		Caller:    p.optional("caller", req.Caller),
		Expiry:    req.Expiry,
		Signature: req.Signature,
	}}
	assetID := p.required("asset", req.Asset)
	if req.Serial == "" {
		return c, NewError(ErrInvalidRequest, "missing serial")
	}
	serial, err := ledger.ParseSerial(req.Serial)
	if err != nil {
		return c, NewError(ErrInvalidRequest, err.Error())
	}
	c.env.Serial = serial
	exp := req.Expiry

	out, feeUser := p.optional("out", req.Out), p.optional("feeUser", req.FeeUser)
	dst := ledger.DestinationFromWire(out, feeUser)

	switch ledger.Op(req.Op) {
	case ledger.OpDeposit:
		args := ledger.DepositArgs{
			Asset:    assetID,
			Identity: p.required("identity", req.Identity),
			Amount:   req.Amount,
			Frozen:   req.Frozen,
			Source:   p.required("source", req.Source),
		}
		c.message = ledger.DepositMessage(serial, args.Identity, args.Amount, args.Frozen, exp)
		c.run = func(ctx context.Context, eng *ledger.Engine, env ledger.Envelope) (ledger.Event, error) {
			return eng.Deposit(ctx, env, args)
		}
	case ledger.OpWithdraw:
		args := ledger.WithdrawArgs{
			Asset:     assetID,
			Identity:  p.required("identity", req.Identity),
			Available: req.Available,
			Frozen:    req.Frozen,
			Recipient: p.required("recipient", req.Recipient),
		}
		c.message = ledger.WithdrawMessage(serial, args.Identity, args.Available, args.Frozen, exp)
		c.run = func(ctx context.Context, eng *ledger.Engine, env ledger.Envelope) (ledger.Event, error) {
			return eng.Withdraw(ctx, env, args)
		}
	case ledger.OpFreeze:
		args := ledger.FreezeArgs{Asset: assetID, Identity: p.required("identity", req.Identity), Amount: req.Amount}
		c.message = ledger.FreezeMessage(serial, args.Identity, args.Amount, exp)
		c.run = func(ctx context.Context, eng *ledger.Engine, env ledger.Envelope) (ledger.Event, error) {
			return eng.Freeze(ctx, env, args)
		}
	case ledger.OpUnfreeze:
		args := ledger.UnfreezeArgs{Asset: assetID, Identity: p.required("identity", req.Identity), Amount: req.Amount, Fee: req.Fee}
		c.message = ledger.UnfreezeMessage(serial, args.Identity, args.Amount, args.Fee, exp)
		c.run = func(ctx context.Context, eng *ledger.Engine, env ledger.Envelope) (ledger.Event, error) {
			return eng.Unfreeze(ctx, env, args)
		}
	case ledger.OpTransfer:
		args := ledger.TransferArgs{
			Asset:       assetID,
			From:        p.required("from", req.From),
			To:          p.required("to", req.To),
			Amount:      req.Amount,
			Fee:         req.Fee,
			Destination: dst,
		}
		c.message = ledger.TransferMessage(serial, args.From, args.To, args.Amount, args.Fee, exp)
		c.run = func(ctx context.Context, eng *ledger.Engine, env ledger.Envelope) (ledger.Event, error) {
			return eng.Transfer(ctx, env, args)
		}
	case ledger.OpSettle:
		if req.Deal == nil {
			return c, NewError(ErrInvalidRequest, "missing deal")
		}
		args := ledger.SettleArgs{Asset: assetID, Deal: p.deal(*req.Deal), Destination: dst}
		c.message = ledger.SettleMessage(serial, args.Deal, exp)
		c.run = func(ctx context.Context, eng *ledger.Engine, env ledger.Envelope) (ledger.Event, error) {
			return eng.Settle(ctx, env, args)
		}
	case "":
		return c, NewError(ErrInvalidRequest, "missing op")
	default:
		return c, NewError(ErrInvalidRequest, "unknown op "+req.Op)
	}
	if p.err != nil {
		return c, p.err
	}
	c.callerMessage = callerMessage(c.message, assetID,
		p.optional("source", req.Source), p.optional("recipient", req.Recipient), out, feeUser)
	return c, p.err
}

func callerMessage(message []byte, addrs ...addressing.Address) []byte {
	out := make([]byte, 0, len(callerTag)+len(message)+len(addrs)*addressing.Size)
	out = append(out, callerTag...)
	out = append(out, message...)
	for _, a := range addrs {
		out = append(out, a[:]...)
	}
	return out
}

func verify(oracle endorse.Oracle, in []Endorsement) ([]endorse.Verified, error) {
	if oracle == nil {
		oracle = endorse.DefaultOracle{}
	}
	es := make([]endorse.Endorsement, 0, len(in))
	for _, e := range in {
		es = append(es, endorse.Endorsement{
			Scheme:    endorse.Scheme(e.Scheme),
			PublicKey: e.PublicKey,
			Signature: e.Signature,
			Message:   e.Message,
		})
	}
	proof, err := endorse.VerifyAll(oracle, es)
	switch {
	case err == nil:
		return proof, nil
	case errors.Is(err, endorse.ErrInvalidPublicKey):
		return nil, ledger.FromCode(ledger.CodeInvalidPublicKey, err.Error())
	case errors.Is(err, endorse.ErrUnsupportedScheme):
		return nil, ledger.FromCode(ledger.CodeInvalidEd25519Instruction, err.Error())
	default:
		return nil, ledger.FromCode(ledger.CodeInvalidSignature, err.Error())
	}
}

// parser records the first bad field and keeps going so call sites stay flat.
type parser struct {
	err error
}

func (p *parser) required(field, s string) addressing.Address {
	if s == "" {
		p.fail(field, "is required")
		return addressing.Null
	}
	return p.optional(field, s)
}

func (p *parser) optional(field, s string) addressing.Address {
	if s == "" {
		return addressing.Null
	}
	a, err := addressing.Parse(s)
	if err != nil {
		p.fail(field, err.Error())
	}
	return a
}

func (p *parser) fail(field, msg string) {
	if p.err == nil {
		p.err = NewError(ErrInvalidRequest, field+" "+msg)
	}
}

func (p *parser) deal(d Deal) ledger.SettlementData {
	return ledger.SettlementData{
		From:      p.required("deal.from", d.From),
		To:        p.required("deal.to", d.To),
		Available: d.Available,
		Frozen:    d.Frozen,
		Amount:    d.Amount,
		Fee:       d.Fee,
		Paid:      d.Paid,
		ExcessFee: d.ExcessFee,
	}
}

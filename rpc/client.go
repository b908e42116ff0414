package rpc

import (
	"context"
	"encoding/json"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/custodian/addressing"
	"xdao.co/custodian/ledger"
	"xdao.co/custodian/model"
)

// Client talks to a Custodian gRPC service. Ledger rejections come back as
// *ledger.Error values that match the ledger sentinels with errors.Is.
type Client struct {
	cc     *grpc.ClientConn
	client CustodianClient

	// Timeout applies per RPC when non-zero.
	Timeout time.Duration
}

type DialOptions struct {
	// Timeout applies per RPC when non-zero.
	Timeout time.Duration

	// MaxMsgBytes sets both send/recv max sizes when non-zero.
	MaxMsgBytes int
}

func Dial(target string, opts DialOptions, extra ...grpc.DialOption) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if opts.MaxMsgBytes > 0 {
		dialOpts = append(dialOpts,
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(opts.MaxMsgBytes),
				grpc.MaxCallSendMsgSize(opts.MaxMsgBytes),
			),
		)
	}
	cc, err := grpc.NewClient(target, append(dialOpts, extra...)...)
	if err != nil {
		return nil, err
	}
	return &Client{cc: cc, client: NewCustodianClient(cc), Timeout: opts.Timeout}, nil
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

func (c *Client) Submit(ctx context.Context, req model.SubmitRequest) (model.Event, error) {
	var ev model.Event
	b, err := json.Marshal(req)
	if err != nil {
		return ev, err
	}
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	reply, err := c.client.Submit(ctx, wrapperspb.Bytes(b))
	if err != nil {
		return ev, fromStatus(err)
	}
	return ev, json.Unmarshal(reply.GetValue(), &ev)
}

func (c *Client) Config(ctx context.Context) (model.Config, error) {
	var cfg model.Config
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	reply, err := c.client.GetConfig(ctx, &emptypb.Empty{})
	if err != nil {
		return cfg, fromStatus(err)
	}
	return cfg, json.Unmarshal(reply.GetValue(), &cfg)
}

func (c *Client) Account(ctx context.Context, identity, assetID addressing.Address) (model.Account, error) {
	var acct model.Account
	b, err := json.Marshal(model.AccountQuery{Identity: identity.String(), Asset: assetID.String()})
	if err != nil {
		return acct, err
	}
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	reply, err := c.client.GetAccount(ctx, wrapperspb.Bytes(b))
	if err != nil {
		return acct, fromStatus(err)
	}
	return acct, json.Unmarshal(reply.GetValue(), &acct)
}

func (c *Client) Vault(ctx context.Context, assetID addressing.Address) (model.Vault, error) {
	var v model.Vault
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	reply, err := c.client.GetVault(ctx, wrapperspb.String(assetID.String()))
	if err != nil {
		return v, fromStatus(err)
	}
	return v, json.Unmarshal(reply.GetValue(), &v)
}

func (c *Client) Executed(ctx context.Context, serial ledger.Serial) (bool, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	reply, err := c.client.IsExecuted(ctx, wrapperspb.String(serial.String()))
	if err != nil {
		return false, fromStatus(err)
	}
	return reply.GetValue(), nil
}

func (c *Client) Events(ctx context.Context, after uint64, limit int) ([]model.Event, error) {
	b, err := json.Marshal(model.EventsQuery{After: after, Limit: limit})
	if err != nil {
		return nil, err
	}
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	reply, err := c.client.Events(ctx, wrapperspb.Bytes(b))
	if err != nil {
		return nil, fromStatus(err)
	}
	var evs []model.Event
	return evs, json.Unmarshal(reply.GetValue(), &evs)
}

func (c *Client) ctx(parent context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, c.Timeout)
}

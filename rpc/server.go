// Package rpc exposes the ledger engine over gRPC.
package rpc

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/custodian/addressing"
	"xdao.co/custodian/endorse"
	"xdao.co/custodian/ledger"
	"xdao.co/custodian/model"
)

// MaxEventsPage bounds one Events reply.
const MaxEventsPage = 1000

// Server exposes a ledger.Engine over the Custodian gRPC service.
type Server struct {
	UnimplementedCustodianServer
	Engine *ledger.Engine
	// Oracle verifies endorsements before the engine runs; nil means
	// endorse.DefaultOracle.
	Oracle endorse.Oracle
}

func (s *Server) Submit(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var req model.SubmitRequest
	if err := json.Unmarshal(in.GetValue(), &req); err != nil {
		return nil, toStatus(model.NewError(model.ErrInvalidRequest, "decode request: "+err.Error()))
	}
	ev, err := model.Submit(ctx, s.Engine, s.Oracle, req)
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(ev)
}

func (s *Server) GetConfig(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.BytesValue, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	cfg, err := s.Engine.Config(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(model.FromConfig(cfg))
}

func (s *Server) GetAccount(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var q model.AccountQuery
	if err := json.Unmarshal(in.GetValue(), &q); err != nil {
		return nil, toStatus(model.NewError(model.ErrInvalidRequest, "decode query: "+err.Error()))
	}
	identity, err := addressing.Parse(q.Identity)
	if err != nil {
		return nil, toStatus(err)
	}
	assetID, err := addressing.Parse(q.Asset)
	if err != nil {
		return nil, toStatus(err)
	}
	acct, err := s.Engine.Account(ctx, identity, assetID)
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(model.FromAccount(identity, acct))
}

func (s *Server) GetVault(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	assetID, err := addressing.Parse(in.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	vs, err := s.Engine.Vault(ctx, assetID)
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(model.FromVault(vs))
}

func (s *Server) IsExecuted(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	serial, err := ledger.ParseSerial(in.GetValue())
	if err != nil {
		return nil, toStatus(model.NewError(model.ErrInvalidRequest, err.Error()))
	}
	done, err := s.Engine.Executed(ctx, serial)
	if err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.Bool(done), nil
}

func (s *Server) Events(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var q model.EventsQuery
	if len(in.GetValue()) > 0 {
		if err := json.Unmarshal(in.GetValue(), &q); err != nil {
			return nil, toStatus(model.NewError(model.ErrInvalidRequest, "decode query: "+err.Error()))
		}
	}
	if q.Limit <= 0 || q.Limit > MaxEventsPage {
		q.Limit = MaxEventsPage
	}
	evs, err := s.Engine.Events(ctx, q.After, q.Limit)
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(model.FromEvents(evs))
}

func (s *Server) ready() error {
	if s == nil || s.Engine == nil {
		return status.Error(codes.FailedPrecondition, "missing engine")
	}
	return nil
}

func reply(v any) (*wrapperspb.BytesValue, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode reply: "+err.Error())
	}
	return wrapperspb.Bytes(b), nil
}

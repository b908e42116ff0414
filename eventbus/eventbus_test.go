package eventbus

import (
	"context"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xdao.co/custodian/addressing"
	"xdao.co/custodian/ledger"
)

type fakeConn struct {
	msgs    []*nats.Msg
	flushes int
	err     error
}

func (f *fakeConn) PublishMsg(m *nats.Msg) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, m)
	return nil
}

func (f *fakeConn) FlushWithContext(context.Context) error {
	f.flushes++
	return nil
}

func withdrawEvent() ledger.Event {
	identity := addressing.Derive("id", []byte("alice"))
	return ledger.Event{
		Seq:     12,
		Op:      ledger.OpWithdraw,
		Message: ledger.WithdrawMessage(ledger.Serial{1, 2}, identity, 40, 5, 1_700_000_500),
		Asset:   addressing.Derive("asset", []byte("usdc")),
		Holding: addressing.Derive("holding", []byte("alice-wallet")),
		Caller:  addressing.Derive("id", []byte("relayer")),
	}
}

func TestPublishSubjectAndHeaders(t *testing.T) {
	conn := &fakeConn{}
	p := New(conn, WithSubject("ledger"))
	ev := withdrawEvent()

	require.NoError(t, p.Publish(context.Background(), ev))
	require.Len(t, conn.msgs, 1)

	msg := conn.msgs[0]
	assert.Equal(t, "ledger.withdraw", msg.Subject)
	assert.Equal(t, ev.Bytes(), msg.Data)

	id, err := ev.ID()
	require.NoError(t, err)
	assert.Equal(t, id.String(), msg.Header.Get(nats.MsgIdHdr))
	assert.Equal(t, "12", msg.Header.Get(HeaderSeq))
	assert.Equal(t, ev.Asset.String(), msg.Header.Get(HeaderAsset))
	assert.Zero(t, conn.flushes)
}

func TestDecodeRoundTrip(t *testing.T) {
	conn := &fakeConn{}
	ev := withdrawEvent()
	require.NoError(t, New(conn).Publish(context.Background(), ev))

	got, err := Decode(conn.msgs[0])
	require.NoError(t, err)
	assert.Equal(t, ev, got)
}

func TestDecodeRequiresSeqHeader(t *testing.T) {
	msg := nats.NewMsg("custodian.events.withdraw")
	msg.Data = withdrawEvent().Bytes()
	_, err := Decode(msg)
	assert.Error(t, err)
}

func TestPublishFlushes(t *testing.T) {
	conn := &fakeConn{}
	require.NoError(t, New(conn, WithFlush()).Publish(context.Background(), withdrawEvent()))
	assert.Equal(t, 1, conn.flushes)
}

func TestPublishError(t *testing.T) {
	conn := &fakeConn{err: errors.New("nats: connection closed")}
	err := New(conn).Publish(context.Background(), withdrawEvent())
	assert.ErrorContains(t, err, "custodian.events.withdraw")
}

package ledger

import (
	"fmt"

	"github.com/ipfs/go-cid"

	"xdao.co/custodian/addressing"
)

// Op names an engine operation.
type Op string

const (
	OpDeposit  Op = "deposit"
	OpWithdraw Op = "withdraw"
	OpFreeze   Op = "freeze"
	OpUnfreeze Op = "unfreeze"
	OpTransfer Op = "transfer"
	OpSettle   Op = "settle"

	OpInitialize      Op = "initialize"
	OpInitializeVault Op = "initialize_vault"
	OpChangeOwner     Op = "change_owner"
	OpChangeSigner    Op = "change_signer"
	OpChangeFeeTo     Op = "change_fee_to"
	OpSetEnabled      Op = "set_enabled"
)

var eventKinds = map[Op]byte{
	OpDeposit:  1,
	OpWithdraw: 2,
	OpFreeze:   3,
	OpUnfreeze: 4,
	OpTransfer: 5,
	OpSettle:   6,
}

var messageSizes = map[Op]int{
	OpDeposit:  88,
	OpWithdraw: 88,
	OpFreeze:   80,
	OpUnfreeze: 88,
	OpTransfer: 120,
	OpSettle:   32 + settlementDataSize + 8,
}

// Event is the append-only record of one committed value-moving operation.
//
// Its binary form is kind(1) || canonical message || asset(32) ||
// holding(32) || caller(32), so indexers can decode it with the same field
// layouts the signer used.
type Event struct {
	Seq     uint64
	Op      Op
	Message []byte
	Asset   addressing.Address
	// Holding is the holding on the far side of a vault movement: the
	// deposit source, the withdraw recipient or the external payout. Null
	// when value stayed in custody.
	Holding addressing.Address
	Caller  addressing.Address
}

func (e Event) Serial() Serial {
	var s Serial
	copy(s[:], e.Message)
	return s
}

// Deal returns the settlement a settle event applied.
func (e Event) Deal() (SettlementData, bool) {
	if e.Op != OpSettle || len(e.Message) != messageSizes[OpSettle] {
		return SettlementData{}, false
	}
	return parseSettlementData(e.Message[32 : 32+settlementDataSize]), true
}

// ID is the content identifier of the event's binary form.
func (e Event) ID() (cid.Cid, error) { return addressing.CID(e.Bytes()) }

func (e Event) Bytes() []byte {
	out := make([]byte, 0, 1+len(e.Message)+3*addressing.Size)
	out = append(out, eventKinds[e.Op])
	out = append(out, e.Message...)
	out = append(out, e.Asset[:]...)
	out = append(out, e.Holding[:]...)
	return append(out, e.Caller[:]...)
}

func DecodeEvent(seq uint64, b []byte) (Event, error) {
	if len(b) == 0 {
		return Event{}, fmt.Errorf("ledger: empty event")
	}
	var op Op
	for o, k := range eventKinds {
		if k == b[0] {
			op = o
		}
	}
	size, ok := messageSizes[op]
	if !ok {
		return Event{}, fmt.Errorf("ledger: unknown event kind %d", b[0])
	}
	if len(b) != 1+size+3*addressing.Size {
		return Event{}, fmt.Errorf("ledger: %s event has %d bytes", op, len(b))
	}
	ev := Event{Seq: seq, Op: op, Message: append([]byte(nil), b[1:1+size]...)}
	rest := b[1+size:]
	copy(ev.Asset[:], rest[0:32])
	copy(ev.Holding[:], rest[32:64])
	copy(ev.Caller[:], rest[64:96])
	return ev, nil
}

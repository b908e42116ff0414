package ledger

import (
	"encoding/binary"

	"xdao.co/custodian/addressing"
)

// Canonical messages. Every message starts with the serial; identities are
// 32 raw bytes and numbers are 8-byte little-endian.

const settlementDataSize = 2*addressing.Size + 6*8

type message []byte

func newMessage(serial Serial, size int) message {
	m := make(message, 0, size)
	return append(m, serial[:]...)
}

func (m message) addr(a addressing.Address) message { return append(m, a[:]...) }

func (m message) u64(v uint64) message { return binary.LittleEndian.AppendUint64(m, v) }

func (m message) i64(v int64) message { return binary.LittleEndian.AppendUint64(m, uint64(v)) }

func DepositMessage(serial Serial, identity addressing.Address, amount, frozen uint64, expiry int64) []byte {
	return newMessage(serial, 88).addr(identity).u64(amount).u64(frozen).i64(expiry)
}

func WithdrawMessage(serial Serial, identity addressing.Address, available, frozen uint64, expiry int64) []byte {
	return newMessage(serial, 88).addr(identity).u64(available).u64(frozen).i64(expiry)
}

func FreezeMessage(serial Serial, identity addressing.Address, amount uint64, expiry int64) []byte {
	return newMessage(serial, 80).addr(identity).u64(amount).i64(expiry)
}

func UnfreezeMessage(serial Serial, identity addressing.Address, amount, fee uint64, expiry int64) []byte {
	return newMessage(serial, 88).addr(identity).u64(amount).u64(fee).i64(expiry)
}

func TransferMessage(serial Serial, from, to addressing.Address, amount, fee uint64, expiry int64) []byte {
	return newMessage(serial, 120).addr(from).addr(to).u64(amount).u64(fee).i64(expiry)
}

func SettleMessage(serial Serial, deal SettlementData, expiry int64) []byte {
	m := newMessage(serial, 32+settlementDataSize+8)
	m = append(m, deal.Bytes()...)
	return m.i64(expiry)
}

// Bytes serializes the deal as from, to, then six little-endian u64s.
func (d SettlementData) Bytes() []byte {
	m := make(message, 0, settlementDataSize)
	return m.addr(d.From).addr(d.To).
		u64(d.Available).u64(d.Frozen).u64(d.Amount).
		u64(d.Fee).u64(d.Paid).u64(d.ExcessFee)
}

func parseSettlementData(b []byte) SettlementData {
	var d SettlementData
	copy(d.From[:], b[0:32])
	copy(d.To[:], b[32:64])
	le := binary.LittleEndian
	d.Available = le.Uint64(b[64:72])
	d.Frozen = le.Uint64(b[72:80])
	d.Amount = le.Uint64(b[80:88])
	d.Fee = le.Uint64(b[88:96])
	d.Paid = le.Uint64(b[96:104])
	d.ExcessFee = le.Uint64(b[104:112])
	return d
}

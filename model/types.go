package model

// Endorsement is a detached signature over Message, checked by the
// verification step before the engine runs.
//
// JSON note: byte fields are encoded as base64 by encoding/json.
type Endorsement struct {
	Scheme    string `json:"scheme"`
	PublicKey []byte `json:"publicKey"`
	Signature []byte `json:"signature"`
	Message   []byte `json:"message"`
}

type Deal struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Available uint64 `json:"available"`
	Frozen    uint64 `json:"frozen"`
	Amount    uint64 `json:"amount"`
	Fee       uint64 `json:"fee"`
	Paid      uint64 `json:"paid"`
	ExcessFee uint64 `json:"excessFee"`
}

// SubmitRequest is one value-moving request. Which fields are read depends
// on Op:
//
//	deposit   identity, amount, frozen, source
//	withdraw  identity, available, frozen, recipient
//	freeze    identity, amount
//	unfreeze  identity, amount, fee
//	transfer  from, to, amount, fee, out, feeUser
//	settle    deal, out, feeUser
//
// An empty out keeps value in custody.
//
// CallerEndorsement is the caller's own signature over CallerMessage; its
// identity is the caller the engine sees. Caller, when set, must match it.
type SubmitRequest struct {
	Op     string `json:"op"`
	Caller string `json:"caller"`
	Serial string `json:"serial"`
	Expiry int64  `json:"expiry"`
	// Signature is echoed back and must match the endorsement's.
	Signature         []byte        `json:"signature"`
	Endorsements      []Endorsement `json:"endorsements"`
	CallerEndorsement *Endorsement  `json:"callerEndorsement,omitempty"`

	Asset     string `json:"asset"`
	Identity  string `json:"identity,omitempty"`
	From      string `json:"from,omitempty"`
	To        string `json:"to,omitempty"`
	Amount    uint64 `json:"amount,omitempty"`
	Available uint64 `json:"available,omitempty"`
	Frozen    uint64 `json:"frozen,omitempty"`
	Fee       uint64 `json:"fee,omitempty"`
	Source    string `json:"source,omitempty"`
	Recipient string `json:"recipient,omitempty"`
	Out       string `json:"out,omitempty"`
	FeeUser   string `json:"feeUser,omitempty"`
	Deal      *Deal  `json:"deal,omitempty"`
}

type Event struct {
	Seq     uint64 `json:"seq"`
	Op      string `json:"op"`
	CID     string `json:"cid"`
	Serial  string `json:"serial"`
	Asset   string `json:"asset"`
	Holding string `json:"holding,omitempty"`
	Caller  string `json:"caller"`
	Message []byte `json:"message"`
	Deal    *Deal  `json:"deal,omitempty"`
}

type Config struct {
	Owner        string `json:"owner"`
	Enabled      bool   `json:"enabled"`
	Signer       string `json:"signer"`
	FeeTo        string `json:"feeTo"`
	FeeToAccount string `json:"feeToAccount"`
}

type Account struct {
	Identity  string `json:"identity"`
	Asset     string `json:"asset"`
	Available uint64 `json:"available"`
	Frozen    uint64 `json:"frozen"`
}

type Vault struct {
	Asset   string `json:"asset"`
	Holding string `json:"holding"`
	Balance uint64 `json:"balance"`
}

type AccountQuery struct {
	Identity string `json:"identity"`
	Asset    string `json:"asset"`
}

// EventsQuery pages through the event log: events with seq > After, at most
// Limit of them (0 means no limit).
type EventsQuery struct {
	After uint64 `json:"after"`
	Limit int    `json:"limit,omitempty"`
}

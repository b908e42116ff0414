package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_SubmitRequest_JSONShape(t *testing.T) {
	req := SubmitRequest{
		Op:        "freeze",
		Caller:    "caller-b58",
		Serial:    "0a0b",
		Expiry:    1750000300,
		Signature: []byte("sig"),
		Endorsements: []Endorsement{
			{Scheme: "ed25519", PublicKey: []byte("pk"), Signature: []byte("sig"), Message: []byte("msg")},
		},
		Asset:    "asset-b58",
		Identity: "alice-b58",
		Amount:   25,
	}

	b, err := json.MarshalIndent(req, "", "  ")
	require.NoError(t, err)

	const want = "{\n" +
		"  \"op\": \"freeze\",\n" +
		"  \"caller\": \"caller-b58\",\n" +
		"  \"serial\": \"0a0b\",\n" +
		"  \"expiry\": 1750000300,\n" +
		"  \"signature\": \"c2ln\",\n" +
		"  \"endorsements\": [\n" +
		"    {\n" +
		"      \"scheme\": \"ed25519\",\n" +
		"      \"publicKey\": \"cGs=\",\n" +
		"      \"signature\": \"c2ln\",\n" +
		"      \"message\": \"bXNn\"\n" +
		"    }\n" +
		"  ],\n" +
		"  \"asset\": \"asset-b58\",\n" +
		"  \"identity\": \"alice-b58\",\n" +
		"  \"amount\": 25\n" +
		"}"
	assert.Equal(t, want, string(b))
}

func TestSnapshot_CodedError_JSONShape(t *testing.T) {
	b, err := json.Marshal(&CodedError{Code: "AlreadyExecuted", Kind: "Replay", Message: "serial used"})
	require.NoError(t, err)
	assert.Equal(t, `{"code":"AlreadyExecuted","kind":"Replay","message":"serial used"}`, string(b))

	b, err = json.Marshal(NewError(ErrNotFound, "no account"))
	require.NoError(t, err)
	assert.Equal(t, `{"code":"NOT_FOUND","message":"no account"}`, string(b))
}

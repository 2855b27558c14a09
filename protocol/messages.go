package protocol

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fairbatch/fairbatch/crypto"
)

// Signed provides authentication for protocol messages.
// Security: Uses Ed25519 signatures. Assumes private keys are secure.
// Note: Signature covers serialized object + public key to prevent substitution.
type Signed[T any] struct {
	PublicKey crypto.PublicKey `json:"public_key"`
	Signature crypto.Signature `json:"signature"`
	Object    *T               `json:"object"`
}

// NewSigned creates a signed message.
func NewSigned[T any](privkey crypto.PrivateKey, obj *T) (*Signed[T], error) {
	pubkey, err := privkey.PublicKey()
	if err != nil {
		return nil, err
	}

	serializedData, err := SerializeMessage(obj)
	if err != nil {
		return nil, err
	}

	signature, err := crypto.Sign(privkey, append(serializedData, pubkey...))
	if err != nil {
		return nil, err
	}

	return &Signed[T]{
		PublicKey: pubkey,
		Signature: signature,
		Object:    obj,
	}, nil
}

// UnsafeObject returns the object without signature verification.
func (s *Signed[T]) UnsafeObject() *T {
	return s.Object
}

// Recover verifies the signature and returns the object and signer's public key.
func (s *Signed[T]) Recover() (*T, crypto.PublicKey, error) {
	serializedData, err := SerializeMessage(s.Object)
	if err != nil {
		return nil, nil, err
	}

	ok := s.Signature.Verify(s.PublicKey, append(serializedData, s.PublicKey...))
	if !ok {
		return nil, nil, errors.New("signature not valid")
	}

	return s.Object, s.PublicKey, nil
}

// CommitRequest submits a hashed order intent with its bond.
type CommitRequest struct {
	Batch      BatchID         `json:"batch"`
	Hash       crypto.Hash     `json:"hash"`
	BondAmount decimal.Decimal `json:"bond_amount"`
	BondAsset  string          `json:"bond_asset"`
	// Context is the opaque execution-unit token this request originates
	// from. Reveals arriving with the commit's own context are rejected.
	Context string `json:"context"`
}

// RevealRequest opens a commitment.
type RevealRequest struct {
	CommitmentID uuid.UUID       `json:"commitment_id"`
	Params       OrderParams     `json:"params"`
	Secret       crypto.Secret   `json:"secret"`
	PriorityBid  decimal.Decimal `json:"priority_bid"`
	Context      string          `json:"context"`
}

// WithdrawBondRequest reclaims the bond of a revealed commitment after its
// batch settles.
type WithdrawBondRequest struct {
	CommitmentID uuid.UUID `json:"commitment_id"`
}

// UnmarshalMessage deserializes a message from JSON bytes.
func UnmarshalMessage[T any](data []byte) (*T, error) {
	var msg T
	err := json.Unmarshal(data, &msg)
	return &msg, err
}

// DecodeMessage deserializes a message from a JSON reader.
func DecodeMessage[T any](reader io.Reader) (*T, error) {
	var msg T
	err := json.NewDecoder(reader).Decode(&msg)
	return &msg, err
}

// SerializeMessage serializes a message to JSON bytes.
func SerializeMessage[T any](msg *T) ([]byte, error) {
	return json.Marshal(msg)
}

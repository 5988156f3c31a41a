// Package transaction models a signed ledger transaction on the client side:
// canonical serialization, hash derivation and signature verification. The
// client never signs; transactions arrive here already signed.
package transaction

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"

	"github.com/meridianledger/meridian-go/pkg/errors"
)

// Transaction is a signed transaction in field form. Field names follow the
// node's wire protocol.
type Transaction struct {
	TransactionType string `json:"TransactionType"`
	Account         string `json:"Account"`
	Destination     string `json:"Destination,omitempty"`
	Amount          string `json:"Amount,omitempty"`
	Fee             string `json:"Fee,omitempty"`
	Sequence        uint32 `json:"Sequence"`
	// LastLedgerSequence is the highest ledger height in which this
	// transaction is still eligible for inclusion. Reliable submission
	// requires it; without it finality cannot be decided in bounded time.
	LastLedgerSequence uint32 `json:"LastLedgerSequence,omitempty"`
	// SigningPubKey is the compressed secp256k1 public key, hex encoded.
	SigningPubKey string `json:"SigningPubKey,omitempty"`
	// TxnSignature is the DER-encoded signature, hex encoded.
	TxnSignature string `json:"TxnSignature,omitempty"`
	Memo         string `json:"Memo,omitempty"`
}

// FromJSON deserializes a transaction from its wire field form.
func FromJSON(data []byte) (*Transaction, error) {
	var tx Transaction
	if err := json.Unmarshal(data, &tx); err != nil {
		return nil, errors.NewTransactionError(errors.TransactionErrSerialization,
			"failed to deserialize transaction", err)
	}
	return &tx, nil
}

// ToJSON serializes the transaction to its wire field form.
func (tx *Transaction) ToJSON() ([]byte, error) {
	data, err := json.Marshal(tx)
	if err != nil {
		return nil, errors.NewTransactionError(errors.TransactionErrSerialization,
			"failed to serialize transaction", err)
	}
	return data, nil
}

// ToFields returns the transaction as the field mapping the submit request
// carries.
func (tx *Transaction) ToFields() (map[string]interface{}, error) {
	data, err := tx.ToJSON()
	if err != nil {
		return nil, err
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, errors.NewTransactionError(errors.TransactionErrSerialization,
			"failed to map transaction fields", err)
	}
	return fields, nil
}

// HasExpiry reports whether the transaction declares an expiry height.
func (tx *Transaction) HasExpiry() bool {
	return tx.LastLedgerSequence > 0
}

// IsSigned reports whether the transaction carries a signature.
func (tx *Transaction) IsSigned() bool {
	return tx.SigningPubKey != "" && tx.TxnSignature != ""
}

// CanonicalBytes returns the deterministic serialization of the signed
// transaction: its field mapping with keys in sorted order.
func (tx *Transaction) CanonicalBytes() ([]byte, error) {
	fields, err := tx.ToFields()
	if err != nil {
		return nil, err
	}
	return canonicalize(fields)
}

// Hash computes the transaction hash from the signed canonical bytes. This
// is the polling key for finality resolution and is always computed locally;
// an identifier echoed back by a node is never trusted in its place.
func (tx *Transaction) Hash() (string, error) {
	canonical, err := tx.CanonicalBytes()
	if err != nil {
		return "", err
	}
	digest := sha256.Sum256(canonical)
	return strings.ToUpper(hex.EncodeToString(digest[:])), nil
}

// SignableData returns the canonical bytes the signature covers: every field
// except the signature itself.
func (tx *Transaction) SignableData() ([]byte, error) {
	fields, err := tx.ToFields()
	if err != nil {
		return nil, err
	}
	delete(fields, "TxnSignature")
	return canonicalize(fields)
}

// VerifySignature checks the transaction's signature against its own
// signing key.
func (tx *Transaction) VerifySignature() error {
	if !tx.IsSigned() {
		return errors.TransactionErrorf(errors.TransactionErrMissingField,
			"transaction carries no signature")
	}

	pubKeyBytes, err := hex.DecodeString(tx.SigningPubKey)
	if err != nil {
		return errors.NewTransactionError(errors.TransactionErrInvalidSignature,
			"invalid signing key encoding", err)
	}
	pubKey, err := btcec.ParsePubKey(pubKeyBytes)
	if err != nil {
		return errors.NewTransactionError(errors.TransactionErrInvalidSignature,
			"failed to parse signing key", err)
	}

	sigBytes, err := hex.DecodeString(tx.TxnSignature)
	if err != nil {
		return errors.NewTransactionError(errors.TransactionErrInvalidSignature,
			"invalid signature encoding", err)
	}
	sig, err := ecdsa.ParseDERSignature(sigBytes)
	if err != nil {
		return errors.NewTransactionError(errors.TransactionErrInvalidSignature,
			"failed to parse signature", err)
	}

	signable, err := tx.SignableData()
	if err != nil {
		return err
	}
	digest := sha256.Sum256(signable)

	if !sig.Verify(digest[:], pubKey) {
		return errors.TransactionErrorf(errors.TransactionErrInvalidSignature,
			"signature does not match signing key")
	}
	return nil
}

// Validate checks the fields reliable submission depends on.
func (tx *Transaction) Validate() error {
	if tx.TransactionType == "" {
		return errors.TransactionErrorf(errors.TransactionErrMissingField,
			"transaction requires a TransactionType")
	}
	if tx.Account == "" {
		return errors.TransactionErrorf(errors.TransactionErrMissingField,
			"transaction requires an Account")
	}
	if !tx.IsSigned() {
		return errors.TransactionErrorf(errors.TransactionErrMissingField,
			"transaction must be signed before submission")
	}
	return nil
}

// canonicalize marshals a field mapping with sorted keys. Nested objects are
// left to encoding/json, which already sorts map keys.
func canonicalize(fields map[string]interface{}) ([]byte, error) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(',')
		}
		keyJSON, err := json.Marshal(k)
		if err != nil {
			return nil, errors.NewTransactionError(errors.TransactionErrSerialization,
				"failed to canonicalize transaction", err)
		}
		valJSON, err := json.Marshal(fields[k])
		if err != nil {
			return nil, errors.NewTransactionError(errors.TransactionErrSerialization,
				"failed to canonicalize transaction", err)
		}
		sb.Write(keyJSON)
		sb.WriteByte(':')
		sb.Write(valJSON)
	}
	sb.WriteByte('}')
	return []byte(sb.String()), nil
}

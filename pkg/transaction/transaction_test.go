package transaction

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianledger/meridian-go/pkg/errors"
)

func sampleTx() *Transaction {
	return &Transaction{
		TransactionType:    "Payment",
		Account:            "mSenderAddress",
		Destination:        "mReceiverAddress",
		Amount:             "1000000",
		Fee:                "10",
		Sequence:           12,
		LastLedgerSequence: 7212,
		SigningPubKey:      "02aabb",
		TxnSignature:       "3044",
	}
}

// signTx signs the transaction's signable data with a fresh key and fills
// in its signing fields.
func signTx(t *testing.T, tx *Transaction) {
	t.Helper()

	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	tx.SigningPubKey = hex.EncodeToString(priv.PubKey().SerializeCompressed())
	tx.TxnSignature = ""

	signable, err := tx.SignableData()
	require.NoError(t, err)
	digest := sha256.Sum256(signable)

	sig := ecdsa.Sign(priv, digest[:])
	tx.TxnSignature = hex.EncodeToString(sig.Serialize())
}

func TestHashIsDeterministic(t *testing.T) {
	tx := sampleTx()

	first, err := tx.Hash()
	require.NoError(t, err)
	second, err := tx.Hash()
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Regexp(t, regexp.MustCompile(`^[0-9A-F]{64}$`), first)
}

func TestHashChangesWithContent(t *testing.T) {
	a := sampleTx()
	b := sampleTx()
	b.Sequence = 13

	hashA, err := a.Hash()
	require.NoError(t, err)
	hashB, err := b.Hash()
	require.NoError(t, err)

	assert.NotEqual(t, hashA, hashB)
}

func TestJSONRoundTrip(t *testing.T) {
	tx := sampleTx()
	data, err := tx.ToJSON()
	require.NoError(t, err)

	decoded, err := FromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, tx, decoded)
}

func TestFromJSONRejectsGarbage(t *testing.T) {
	_, err := FromJSON([]byte(`{broken`))
	require.Error(t, err)
	assert.Equal(t, errors.TransactionErrSerialization, errors.CodeOf(err))
}

func TestHasExpiry(t *testing.T) {
	tx := sampleTx()
	assert.True(t, tx.HasExpiry())

	tx.LastLedgerSequence = 0
	assert.False(t, tx.HasExpiry())
}

func TestValidate(t *testing.T) {
	t.Run("complete transaction passes", func(t *testing.T) {
		assert.NoError(t, sampleTx().Validate())
	})

	t.Run("missing type", func(t *testing.T) {
		tx := sampleTx()
		tx.TransactionType = ""
		assert.Error(t, tx.Validate())
	})

	t.Run("missing account", func(t *testing.T) {
		tx := sampleTx()
		tx.Account = ""
		assert.Error(t, tx.Validate())
	})

	t.Run("unsigned", func(t *testing.T) {
		tx := sampleTx()
		tx.TxnSignature = ""
		err := tx.Validate()
		require.Error(t, err)
		assert.Equal(t, errors.TransactionErrMissingField, errors.CodeOf(err))
	})
}

func TestVerifySignature(t *testing.T) {
	t.Run("valid signature", func(t *testing.T) {
		tx := sampleTx()
		signTx(t, tx)
		assert.NoError(t, tx.VerifySignature())
	})

	t.Run("tampered field fails verification", func(t *testing.T) {
		tx := sampleTx()
		signTx(t, tx)
		tx.Amount = "9999999"

		err := tx.VerifySignature()
		require.Error(t, err)
		assert.Equal(t, errors.TransactionErrInvalidSignature, errors.CodeOf(err))
	})

	t.Run("wrong key fails verification", func(t *testing.T) {
		tx := sampleTx()
		signTx(t, tx)

		other, err := btcec.NewPrivateKey()
		require.NoError(t, err)
		tx.SigningPubKey = hex.EncodeToString(other.PubKey().SerializeCompressed())

		require.Error(t, tx.VerifySignature())
	})

	t.Run("undecodable signature", func(t *testing.T) {
		tx := sampleTx()
		tx.TxnSignature = "zz"
		require.Error(t, tx.VerifySignature())
	})
}

func TestCanonicalBytesSortKeys(t *testing.T) {
	canonical, err := sampleTx().CanonicalBytes()
	require.NoError(t, err)

	// Key order is fixed regardless of struct field order.
	s := string(canonical)
	account := indexOf(t, s, `"Account"`)
	fee := indexOf(t, s, `"Fee"`)
	txnType := indexOf(t, s, `"TransactionType"`)
	assert.Less(t, account, fee)
	assert.Less(t, fee, txnType)
}

func indexOf(t *testing.T, s, sub string) int {
	t.Helper()
	idx := -1
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			idx = i
			break
		}
	}
	require.GreaterOrEqual(t, idx, 0, "%q not found in canonical bytes", sub)
	return idx
}

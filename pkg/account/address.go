// Package account derives ledger addresses from secp256k1 public keys.
package account

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcutil/base58"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // protocol-mandated digest

	"github.com/meridianledger/meridian-go/pkg/errors"
)

// addressVersion is the version byte prefixed to the account digest before
// encoding.
const addressVersion = 0x23

// checksumLen is the number of double-sha256 bytes appended to the payload.
const checksumLen = 4

// FromPubKeyHex derives an address from a hex-encoded compressed public key.
func FromPubKeyHex(pubKeyHex string) (string, error) {
	pubKey, err := hex.DecodeString(pubKeyHex)
	if err != nil {
		return "", errors.NewTransactionError(errors.TransactionErrInvalidSignature,
			"invalid public key encoding", err)
	}
	return FromPubKey(pubKey), nil
}

// FromPubKey derives an address from a compressed public key: sha256, then
// ripemd160, version byte, double-sha256 checksum, base58.
func FromPubKey(pubKey []byte) string {
	sha := sha256.Sum256(pubKey)

	ripe := ripemd160.New()
	ripe.Write(sha[:])
	accountID := ripe.Sum(nil)

	payload := make([]byte, 0, 1+len(accountID)+checksumLen)
	payload = append(payload, addressVersion)
	payload = append(payload, accountID...)
	payload = append(payload, checksum(payload)...)

	return base58.Encode(payload)
}

// Verify checks that an address is well-formed: decodable, right length,
// right version, intact checksum.
func Verify(address string) error {
	decoded := base58.Decode(address)
	if len(decoded) != 1+ripemd160.Size+checksumLen {
		return fmt.Errorf("address %q has wrong length", address)
	}
	if decoded[0] != addressVersion {
		return fmt.Errorf("address %q has wrong version byte %#x", address, decoded[0])
	}
	payload := decoded[:len(decoded)-checksumLen]
	want := checksum(payload)
	got := decoded[len(decoded)-checksumLen:]
	for i := range want {
		if want[i] != got[i] {
			return fmt.Errorf("address %q has a bad checksum", address)
		}
	}
	return nil
}

func checksum(payload []byte) []byte {
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	return second[:checksumLen]
}

package chain

import (
	"crypto/ecdsa"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// Identity is a signing key and its derived address, one game participant.
type Identity struct {
	Key     *ecdsa.PrivateKey
	Address common.Address
}

// NewIdentity parses a hex encoded secp256k1 private key, with or without a
// 0x prefix.
func NewIdentity(hexKey string) (*Identity, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, errors.Wrap(err, "chain: invalid private key")
	}
	return identityFromKey(key), nil
}

// GenerateIdentity creates a fresh random identity.
func GenerateIdentity() (*Identity, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	return identityFromKey(key), nil
}

func identityFromKey(key *ecdsa.PrivateKey) *Identity {
	return &Identity{
		Key:     key,
		Address: crypto.PubkeyToAddress(key.PublicKey),
	}
}

// HexKey returns the 0x prefixed private key.
func (id *Identity) HexKey() string {
	return hexutil.Encode(crypto.FromECDSA(id.Key))
}

func (id *Identity) String() string {
	return id.Address.Hex()
}

// Short is a compact form of the address for logs and the board title.
func (id *Identity) Short() string {
	h := id.Address.Hex()
	return h[:6] + "…" + h[len(h)-4:]
}

// Package crypto provides ECDSA signing and verification primitives and
// derives the module's account ids from public keys. The binaries use a
// Signer for the operator's account id only; no order insert/delete,
// market-status update or settle_trades call in this module is signed or
// signature-checked.
//
// Grounded on the teacher's pkg/crypto/signer.go (secp256k1 via
// go-ethereum's crypto package). Account identity in this module is the
// opaque 32-byte accountid.ID rather than go-ethereum's 20-byte
// common.Address, so AccountID here is derived by hashing the uncompressed
// public key with the module's own BLAKE2-256 (internal/hash) instead of
// Keccak-truncation — keeping every account-identifying hash in the module
// on one algorithm, per spec.md §9.
package crypto

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	gethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/gsy-exchange/clearing-node/internal/accountid"
	"github.com/gsy-exchange/clearing-node/internal/hash"
)

// Signer manages an ECDSA (secp256k1) key pair and derives the module's
// AccountID from it.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	publicKey  *ecdsa.PublicKey
	account    accountid.ID
}

func accountFromPublicKey(pub *ecdsa.PublicKey) accountid.ID {
	h := hash.Sum([]byte("account"), gethcrypto.FromECDSAPub(pub))
	var id accountid.ID
	copy(id[:], h[:])
	return id
}

// GenerateKey creates a new random secp256k1 key pair.
func GenerateKey() (*Signer, error) {
	privateKey, err := gethcrypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("crypto: generate key: %w", err)
	}
	return fromPrivateKey(privateKey)
}

// FromPrivateKeyHex creates a Signer from a hex-encoded private key ("0x..."
// or bare hex, 64 chars).
func FromPrivateKeyHex(hexKey string) (*Signer, error) {
	if len(hexKey) >= 2 && hexKey[0] == '0' && (hexKey[1] == 'x' || hexKey[1] == 'X') {
		hexKey = hexKey[2:]
	}
	privateKey, err := gethcrypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("crypto: parse private key: %w", err)
	}
	return fromPrivateKey(privateKey)
}

func fromPrivateKey(privateKey *ecdsa.PrivateKey) (*Signer, error) {
	publicKey, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("crypto: public key is not ECDSA")
	}
	return &Signer{
		privateKey: privateKey,
		publicKey:  publicKey,
		account:    accountFromPublicKey(publicKey),
	}, nil
}

// AccountID returns the signer's account identity.
func (s *Signer) AccountID() accountid.ID {
	return s.account
}

// PrivateKeyHex returns the private key as a hex string (no 0x prefix).
// Never log this.
func (s *Signer) PrivateKeyHex() string {
	return fmt.Sprintf("%x", gethcrypto.FromECDSA(s.privateKey))
}

// Sign signs a 32-byte digest, returning a 65-byte [R || S || V] signature.
func (s *Signer) Sign(digest []byte) ([]byte, error) {
	if len(digest) != 32 {
		return nil, fmt.Errorf("crypto: digest must be 32 bytes, got %d", len(digest))
	}
	sig, err := gethcrypto.Sign(digest, s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("crypto: sign: %w", err)
	}
	return sig, nil
}

// SignMessage hashes message and signs the resulting digest.
func (s *Signer) SignMessage(message []byte) ([]byte, error) {
	digest := hash.Sum([]byte("message"), message)
	return s.Sign(digest[:])
}

// VerifyMessage reports whether signature over message was produced by
// account.
func VerifyMessage(account accountid.ID, message, signature []byte) bool {
	digest := hash.Sum([]byte("message"), message)
	recovered, err := RecoverAccount(digest[:], signature)
	if err != nil {
		return false
	}
	return recovered == account
}

// RecoverAccount recovers the AccountID that produced signature over digest.
func RecoverAccount(digest, signature []byte) (accountid.ID, error) {
	if len(signature) != 65 {
		return accountid.Zero, fmt.Errorf("crypto: invalid signature length: %d", len(signature))
	}
	if len(digest) != 32 {
		return accountid.Zero, fmt.Errorf("crypto: invalid digest length: %d", len(digest))
	}
	pubBytes, err := gethcrypto.Ecrecover(digest, signature)
	if err != nil {
		return accountid.Zero, fmt.Errorf("crypto: recover public key: %w", err)
	}
	pub, err := gethcrypto.UnmarshalPubkey(pubBytes)
	if err != nil {
		return accountid.Zero, fmt.Errorf("crypto: unmarshal public key: %w", err)
	}
	return accountFromPublicKey(pub), nil
}

// SignatureToRSV splits a 65-byte signature into its R, S, V components.
func SignatureToRSV(signature []byte) (r, s *big.Int, v uint8, err error) {
	if len(signature) != 65 {
		return nil, nil, 0, fmt.Errorf("crypto: invalid signature length: %d", len(signature))
	}
	r = new(big.Int).SetBytes(signature[:32])
	s = new(big.Int).SetBytes(signature[32:64])
	v = signature[64]
	return r, s, v, nil
}

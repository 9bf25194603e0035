// Package signature provides helper functions for handling the blockchain
// signature needs.
package signature

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// ZeroHash represents a hash code of zeros.
const ZeroHash string = "0000000000000000000000000000000000000000000000000000000000000000"

// ErrInvalidSignature is returned when a signature does not verify against
// the data and public key provided.
var ErrInvalidSignature = errors.New("invalid signature")

// =============================================================================

// Digest returns the sha256 of the json encoding of the value. Struct fields
// are marshaled in declaration order, so values meant to be signed declare
// their fields in lexical order to keep the encoding canonical.
func Digest(value any) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}

	hash := sha256.Sum256(data)
	return hash[:], nil
}

// Hash returns a unique string for the value.
func Hash(value any) string {
	hash, err := Digest(value)
	if err != nil {
		return ZeroHash
	}

	return hex.EncodeToString(hash)
}

// Sign uses the specified private key to sign the digest of the value. The
// signature and the compressed public key are returned hex-encoded.
func Sign(value any, privateKey *ecdsa.PrivateKey) (sig string, publicKey string, err error) {
	data, err := Digest(value)
	if err != nil {
		return "", "", err
	}

	raw, err := crypto.Sign(data, privateKey)
	if err != nil {
		return "", "", err
	}

	// Check the public key extracted from the data and signature.
	pub := crypto.CompressPubkey(&privateKey.PublicKey)
	if !crypto.VerifySignature(pub, data, raw[:crypto.RecoveryIDOffset]) {
		return "", "", ErrInvalidSignature
	}

	return hexutil.Encode(raw), hexutil.Encode(pub), nil
}

// Verify checks the hex-encoded signature against the digest of the value
// using the hex-encoded public key.
func Verify(value any, sig string, publicKey string) error {
	rawSig, err := hexutil.Decode(sig)
	if err != nil {
		return errors.New("signature is not properly encoded")
	}

	if len(rawSig) < crypto.RecoveryIDOffset {
		return errors.New("signature is too short")
	}

	pub, err := hexutil.Decode(publicKey)
	if err != nil {
		return errors.New("public key is not properly encoded")
	}

	if _, err := crypto.DecompressPubkey(pub); err != nil {
		if _, err := crypto.UnmarshalPubkey(pub); err != nil {
			return errors.New("public key is not a secp256k1 key")
		}
	}

	data, err := Digest(value)
	if err != nil {
		return err
	}

	if !crypto.VerifySignature(pub, data, rawSig[:crypto.RecoveryIDOffset]) {
		return ErrInvalidSignature
	}

	return nil
}

// PublicKeyString returns the compressed public key as a hex string.
func PublicKeyString(pk *ecdsa.PublicKey) string {
	return hexutil.Encode(crypto.CompressPubkey(pk))
}

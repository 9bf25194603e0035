package database

import "errors"

// Set of error variables for validating and storing blocks. Callers wrap
// these with context and test for them with errors.Is.
var (
	ErrStructural          = errors.New("malformed structure")
	ErrSignature           = errors.New("signature does not verify")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrHashMismatch        = errors.New("recalculated hash does not match saved hash")
	ErrProofOfWork         = errors.New("nonce does not satisfy difficulty")
	ErrDuplicateBlock      = errors.New("block already exists")
	ErrNonLinearChain      = errors.New("batch does not extend the chain linearly")
	ErrNoNonceYet          = errors.New("no nonce available yet, mine it first")
	ErrStorageIO           = errors.New("storage failure")
	ErrNotFound            = errors.New("block not found")
)

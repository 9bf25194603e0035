// Package errs maps the errors raised by the ledger to the documents and
// status codes the web api responds with.
package errs

import (
	"errors"
	"net/http"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
)

// Response is the form used for API responses from failures in the API.
type Response struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Trusted is an error whose message is safe to show to the client with the
// attached status.
type Trusted struct {
	Err    error
	Status int
}

// NewTrusted wraps a provided error with an HTTP status code. This
// function should be used when handlers encounter expected errors.
func NewTrusted(err error, status int) error {
	return &Trusted{err, status}
}

// Error implements the error interface.
func (te *Trusted) Error() string {
	return te.Err.Error()
}

// Unwrap returns the wrapped error so errors.Is sees through it.
func (te *Trusted) Unwrap() error {
	return te.Err
}

// IsTrusted checks if an error of type Trusted exists.
func IsTrusted(err error) bool {
	var te *Trusted
	return errors.As(err, &te)
}

// GetTrusted returns the Trusted error in the chain, if any.
func GetTrusted(err error) *Trusted {
	var te *Trusted
	if !errors.As(err, &te) {
		return nil
	}
	return te
}

// =============================================================================

// ledgerStatus lists the ledger errors a client can cause, checked in order.
var ledgerStatus = []struct {
	err    error
	status int
}{
	{database.ErrStructural, http.StatusBadRequest},
	{database.ErrSignature, http.StatusBadRequest},
	{database.ErrInsufficientBalance, http.StatusBadRequest},
	{database.ErrNotFound, http.StatusNotFound},
	{database.ErrDuplicateBlock, http.StatusConflict},
}

// FromLedger marks the error as trusted when the ledger rejected the
// client's input. Any other error is returned as is and answered with a 500.
func FromLedger(err error) error {
	if err == nil || IsTrusted(err) {
		return err
	}

	for _, ls := range ledgerStatus {
		if errors.Is(err, ls.err) {
			return NewTrusted(err, ls.status)
		}
	}

	return err
}

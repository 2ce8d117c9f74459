package asyncagent

import (
	"errors"
	"net/http"

	"github.com/ugmurthy/asyncAgent/types"
)

// ErrRunNotFound is wrapped into the error returned by run lookups when the
// server reports 404 for the run id. Test with errors.Is.
var ErrRunNotFound = errors.New("asyncagent: run not found")

// notFoundError couples the sentinel with the server error so callers can
// match either with errors.Is / errors.As.
type notFoundError struct {
	apiErr *types.Error
}

func (e *notFoundError) Error() string { return e.apiErr.Error() }

func (e *notFoundError) Unwrap() []error { return []error{ErrRunNotFound, e.apiErr} }

// wrapRunLookup tags 404 responses from run lookups with ErrRunNotFound.
func wrapRunLookup(err error) error {
	var apiErr *types.Error
	if errors.As(err, &apiErr) && apiErr.HTTPStatus() == http.StatusNotFound {
		return &notFoundError{apiErr: apiErr}
	}
	return err
}

package remote

import (
	"net/http"

	"github.com/oneconcern/contentstore/pkg/errors"
	"github.com/oneconcern/contentstore/pkg/provider/status"
)

// headerErrorKind carries the kind of error reported by the server
const headerErrorKind = "X-Content-Error"

type errorKind struct {
	name     string
	sentinel *errors.Error
	code     int
}

var errorKinds = []errorKind{
	{name: "not-found", sentinel: status.ErrNotFound, code: http.StatusNotFound},
	{name: "already-exists", sentinel: status.ErrAlreadyExists, code: http.StatusConflict},
	{name: "unexpected-content", sentinel: status.ErrUnexpectedContent, code: http.StatusConflict},
	{name: "corrupted-content", sentinel: status.ErrCorruptedContent, code: http.StatusUnprocessableEntity},
	{name: "unwrite-not-supported", sentinel: status.ErrUnwriteNotSupported, code: http.StatusMethodNotAllowed},
	{name: "invalid", sentinel: status.ErrInvalid, code: http.StatusBadRequest},
	{name: "configuration", sentinel: status.ErrConfiguration, code: http.StatusInternalServerError},
	{name: "io", sentinel: status.ErrIO, code: http.StatusServiceUnavailable},
}

// kindOfError finds the kind of an error reported by a provider. Unknown errors are i/o errors.
func kindOfError(err error) errorKind {
	for _, k := range errorKinds {
		if errors.Is(err, k.sentinel) {
			return k
		}
	}
	return errorKind{name: "io", sentinel: status.ErrIO, code: http.StatusInternalServerError}
}

// errorFromResponse rebuilds the error reported by the server
func errorFromResponse(resp *http.Response, msg string) error {
	if name := resp.Header.Get(headerErrorKind); name != "" {
		for _, k := range errorKinds {
			if k.name == name {
				return k.sentinel.Wrapf("remote: %s", msg)
			}
		}
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return status.ErrNotFound.Wrapf("remote: %s", msg)
	case resp.StatusCode == http.StatusRequestEntityTooLarge:
		return status.ErrInvalid.Wrapf("remote: %s", msg)
	case resp.StatusCode >= 500:
		return status.ErrIO.Wrapf("remote: %s: %s", resp.Status, msg)
	default:
		return status.ErrInvalid.Wrapf("remote: %s: %s", resp.Status, msg)
	}
}

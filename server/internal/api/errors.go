package api

import (
	"errors"
	"net/http"

	"github.com/storelens/storelens/pkg/types"
)

const missingFilesMessage = "Both files are required."

// statusFor maps an analysis error to an HTTP status and a stable error code.
func statusFor(err error) (int, string) {
	kind := types.KindOf(err)
	switch kind {
	case types.KindSchema, types.KindInput:
		return http.StatusBadRequest, kind.String()
	case types.KindDivisionByZero:
		return http.StatusUnprocessableEntity, kind.String()
	default:
		return http.StatusInternalServerError, types.KindUnexpected.String()
	}
}

// errorMessage is the message placed in a JSON error body.
func errorMessage(err error) string {
	if errors.Is(err, errMissingFiles) {
		return missingFilesMessage
	}
	return err.Error()
}

// htmlErrorMessage is the plain-text body returned to the upload form.
func htmlErrorMessage(err error) string {
	if errors.Is(err, errMissingFiles) {
		return missingFilesMessage
	}
	return "Error processing files: " + err.Error()
}

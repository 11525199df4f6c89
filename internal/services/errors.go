package services

import (
	"errors"
	"net/http"

	"github.com/yungbote/termbase-backend/internal/domain/glossary"
	"github.com/yungbote/termbase-backend/internal/platform/apierr"
)

// APIError converts glossary errors into *apierr.Error for the HTTP layer.
// Other errors pass through unchanged.
func APIError(err error) error {
	if err == nil {
		return nil
	}
	var ae *apierr.Error
	if errors.As(err, &ae) {
		return err
	}
	var ge *glossary.Error
	if !errors.As(err, &ge) {
		return err
	}
	status := http.StatusInternalServerError
	switch ge.Code {
	case glossary.CodeValidation:
		status = http.StatusBadRequest
	case glossary.CodeNotFound:
		status = http.StatusNotFound
	case glossary.CodeConflict:
		status = http.StatusConflict
	}
	code := glossary.ReasonOf(err)
	msg := ge.Message
	if msg == "" {
		msg = ge.Error()
	}
	return apierr.New(status, code, errors.New(msg))
}

func notFound(reason, op, msg string) error {
	return glossary.NewError(glossary.CodeNotFound, reason, op, msg)
}

func invalid(reason, op, msg string) error {
	return glossary.NewError(glossary.CodeValidation, reason, op, msg)
}

func conflict(reason, op, msg string) error {
	return glossary.NewError(glossary.CodeConflict, reason, op, msg)
}

// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnauthorized is returned when the session is missing or does not own the resource.
var ErrUnauthorized = errors.New("unauthorized")

// ErrTimeout marks a wait that ran past its deadline. It is logged, never fatal.
var ErrTimeout = errors.New("timed out")

// ErrNotFound is returned for a missing campaign, lead, sender account or queue item.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

func NewNotFound(resource, id string) error {
	return &ErrNotFound{Resource: resource, ID: id}
}

// NewCampaignNotFound is a helper constructor for the most common case.
func NewCampaignNotFound(id fmt.Stringer) error {
	return &ErrNotFound{Resource: "campaign", ID: id.String()}
}

// ErrNoSenderAccount is returned when no sender account is connected for the
// campaign's sending address.
type ErrNoSenderAccount struct {
	Email string
}

func (e *ErrNoSenderAccount) Error() string {
	if e.Email == "" {
		return "campaign has no sending email; connect a Gmail or SMTP account and set it on the campaign"
	}
	return fmt.Sprintf("no sender account connected for %s; connect a Gmail or SMTP account for this address", e.Email)
}

// ErrConfigurationMissing is an operator-facing error for absent settings.
type ErrConfigurationMissing struct {
	Key string
}

func (e *ErrConfigurationMissing) Error() string {
	return fmt.Sprintf("configuration missing: %s", e.Key)
}

// ErrExternalService wraps a non-2xx answer or transport failure of a third party.
type ErrExternalService struct {
	Service    string
	StatusCode int
	Err        error
}

func (e *ErrExternalService) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s returned status %d", e.Service, e.StatusCode)
	}
	return fmt.Sprintf("%s request failed: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error { return e.Err }

// ErrValidation is returned for malformed input.
type ErrValidation struct {
	Message string
}

func (e *ErrValidation) Error() string { return e.Message }

func NewValidation(format string, args ...any) error {
	return &ErrValidation{Message: fmt.Sprintf(format, args...)}
}

// HTTPStatus maps an error to the status code handlers respond with.
func HTTPStatus(err error) int {
	var (
		notFound   *ErrNotFound
		noSender   *ErrNoSenderAccount
		validation *ErrValidation
		missing    *ErrConfigurationMissing
		external   *ErrExternalService
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.As(err, &noSender), errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &external):
		return http.StatusBadGateway
	case errors.As(err, &missing):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage hides operator-only details from API users.
func PublicMessage(err error) string {
	var missing *ErrConfigurationMissing
	if errors.As(err, &missing) {
		return "service is not configured, contact support"
	}
	if HTTPStatus(err) == http.StatusInternalServerError {
		return "internal server error"
	}
	return err.Error()
}

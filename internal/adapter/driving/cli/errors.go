package cli

import (
	"errors"
	"fmt"

	"github.com/ericfisherdev/vaultpanel/internal/application"
	"github.com/ericfisherdev/vaultpanel/internal/domain/model"
	"github.com/ericfisherdev/vaultpanel/internal/domain/port/driven"
)

// errCanceled is returned when the user declines a confirmation.
var errCanceled = errors.New("canceled")

// Describe turns an error from a command into the message shown to the user.
func Describe(err error) string {
	var (
		validation *model.ValidationError
		invalidCfg *model.InvalidConfigError
		network    *driven.NetworkError
		service    *driven.ServiceError
	)

	switch {
	case errors.Is(err, errCanceled):
		return "Canceled."
	case errors.Is(err, application.ErrNoSession):
		return "You are not logged in."
	case errors.Is(err, application.ErrSessionExpired):
		return application.NoticeSessionExpired
	case errors.Is(err, application.ErrInvalidCredentials):
		return "Invalid username or password."
	case errors.Is(err, driven.ErrUnauthorized):
		return application.NoticeUnauthorized
	case errors.Is(err, driven.ErrNotFound):
		return "Entry not found. The list may be out of date; run `vaultpanel list` to refresh it."
	case errors.Is(err, application.ErrSuperseded):
		return "A newer result replaced this one."
	case errors.As(err, &validation):
		if validation.Field != "" {
			return fmt.Sprintf("Invalid %s: %s", validation.Field, validation.Message)
		}
		return validation.Message
	case errors.As(err, &invalidCfg):
		return invalidCfg.Error()
	case errors.As(err, &network):
		return fmt.Sprintf("Could not reach the vault service: %v", network.Err)
	case errors.As(err, &service):
		if service.Message != "" {
			return fmt.Sprintf("The vault service failed (status %d): %s", service.Status, service.Message)
		}
		return fmt.Sprintf("The vault service failed (status %d).", service.Status)
	default:
		return err.Error()
	}
}

package mailer

import "errors"

var (
	// ErrInvalidConfig is returned when the client configuration is incomplete
	ErrInvalidConfig = errors.New("invalid mailer configuration")

	// ErrInvalidRequest is returned when the send request is malformed
	ErrInvalidRequest = errors.New("invalid send request")

	// ErrUnauthorized is returned when the API key is rejected
	ErrUnauthorized = errors.New("unauthorized: invalid API key")

	// ErrSendFailed is returned when the email API refuses the message
	ErrSendFailed = errors.New("email send failed")
)

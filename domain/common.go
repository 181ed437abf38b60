package domain

import "errors"

var (
	MessageFailedBodyRequest = "failed to parse request body"
	MessageFailedSignature   = "failed to verify request signature"
	MessageSuccessWebhook    = "webhook processed"

	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrStoreFailed      = errors.New("inventory store failure")
)

package store

import "errors"

// Sentinel errors returned by Store implementations and the service
// layer. Handlers rely on errors.Is against these to pick status codes,
// so wrapped errors must preserve them.
var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("message not found")
	ErrLeafNotFound         = errors.New("leaf not found")

	// ErrMainLeafProtected is returned when a caller attempts to delete
	// the main leaf. Retrying never succeeds.
	ErrMainLeafProtected = errors.New("main leaf cannot be deleted")

	// ErrVersionOutOfRange is returned when a version index falls
	// outside the merged version list.
	ErrVersionOutOfRange = errors.New("version index out of range")
)

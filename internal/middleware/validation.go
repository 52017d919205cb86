package middleware

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// ValidateMessageContent validates message content.
func ValidateMessageContent(content string) error {
	if len(content) == 0 {
		return errors.New("content cannot be empty")
	}
	if len(content) > 100000 {
		return errors.New("content exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return errors.New("content must be valid UTF-8")
	}
	return nil
}

// ValidateTitle validates a conversation title.
func ValidateTitle(title string) error {
	if len(title) > 256 {
		return errors.New("title exceeds maximum length")
	}
	if !utf8.ValidString(title) {
		return errors.New("title must be valid UTF-8")
	}
	return nil
}

// ValidateAuthorID validates a message author id.
func ValidateAuthorID(id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("author_id cannot be empty")
	}
	return nil
}

// ValidateParticipantName validates a participant's display name.
func ValidateParticipantName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("participant name cannot be empty")
	}
	if !utf8.ValidString(name) {
		return errors.New("participant name must be valid UTF-8")
	}
	return nil
}

// ValidateLeafName validates a leaf name supplied on branch creation.
func ValidateLeafName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("name cannot be empty")
	}
	if len(name) > 128 {
		return errors.New("name exceeds maximum length")
	}
	return nil
}

// ValidateConcept validates a wiki concept name.
func ValidateConcept(concept string) error {
	if strings.TrimSpace(concept) == "" {
		return errors.New("concept cannot be empty")
	}
	if !utf8.ValidString(concept) {
		return errors.New("concept must be valid UTF-8")
	}
	return nil
}

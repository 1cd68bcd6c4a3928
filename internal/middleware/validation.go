package middleware

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// MaxMessageLength is the longest text WhatsApp accepts in one message.
const MaxMessageLength = 4096

const maxIDLength = 128

// ValidateMessageText validates an outgoing agent message.
func ValidateMessageText(text string) error {
	if strings.TrimSpace(text) == "" {
		return errors.New("text cannot be empty")
	}
	if !utf8.ValidString(text) {
		return errors.New("text must be valid UTF-8")
	}
	if utf8.RuneCountInString(text) > MaxMessageLength {
		return errors.New("text exceeds maximum length")
	}
	return nil
}

// ValidateConversationID validates a conversation ID from the URL.
func ValidateConversationID(id string) error {
	return validateID("conversation ID", id)
}

// ValidateMediaID validates a media ID from the URL.
func ValidateMediaID(id string) error {
	return validateID("media ID", id)
}

// ValidateBusinessID validates a business ID.
func ValidateBusinessID(id string) error {
	return validateID("business ID", id)
}

// ValidateTemplate validates a template submitted for preview.
func ValidateTemplate(template string) error {
	if strings.TrimSpace(template) == "" {
		return errors.New("template cannot be empty")
	}
	if !utf8.ValidString(template) {
		return errors.New("template must be valid UTF-8")
	}
	if len(template) > 4*MaxMessageLength {
		return errors.New("template exceeds maximum length")
	}
	return nil
}

func validateID(name, id string) error {
	if id == "" {
		return errors.New(name + " cannot be empty")
	}
	if len(id) > maxIDLength {
		return errors.New(name + " exceeds maximum length")
	}
	if strings.ContainsAny(id, "/?#% \t\n") {
		return errors.New("invalid " + name + " format")
	}
	return nil
}

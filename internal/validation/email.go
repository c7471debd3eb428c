package validation

import (
	"errors"
	"net/mail"
	"strings"
)

var ErrEmailInvalid = errors.New("invalid email address")

func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrEmailInvalid
	}
	_, err := mail.ParseAddress(email)
	if err != nil {
		return ErrEmailInvalid
	}
	return nil
}

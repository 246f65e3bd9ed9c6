package domain

import (
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// Identity is the player handle persisted across sessions. Both fields empty
// means "no player joined yet", which is a valid state, not an error.
type Identity struct {
	Code string `json:"code"`
	Nick string `json:"nick"`
}

// IsEmpty reports whether no player has joined yet.
func (i Identity) IsEmpty() bool {
	return i.Code == ""
}

// ValidateCode enforces the server's join constraint: 4-64 characters, no
// spaces. Lengths count characters, not bytes, matching the server.
func ValidateCode(code string) error {
	code = strings.TrimSpace(code)
	if n := utf8.RuneCountInString(code); n < 4 || n > 64 {
		return errors.New("code must be 4-64 characters")
	}
	if strings.ContainsRune(code, ' ') {
		return errors.New("code must not contain spaces")
	}
	return nil
}

// ValidateNick enforces the server's join constraint: 1-32 characters.
func ValidateNick(nick string) error {
	nick = strings.TrimSpace(nick)
	if n := utf8.RuneCountInString(nick); n < 1 || n > 32 {
		return errors.New("nick must be 1-32 characters")
	}
	return nil
}

// Validate checks both join constraints.
func (i Identity) Validate() error {
	if err := ValidateCode(i.Code); err != nil {
		return err
	}
	return ValidateNick(i.Nick)
}

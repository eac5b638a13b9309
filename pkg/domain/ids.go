package domain

import (
	"strings"

	dErrors "sessiongate/pkg/domain-errors"
)

// IdentityID is the opaque identifier a store assigns to an identity. The
// format depends on the backend (ObjectID hex for MongoDB, UUID for
// PostgreSQL and memory) so it is kept as a string.
type IdentityID string

// maxIdentityIDLength bounds ids read back from the session store; anything
// longer was not written by us.
const maxIdentityIDLength = 64

func (i IdentityID) String() string {
	return string(i)
}

// IsNil reports whether the id is empty.
func (i IdentityID) IsNil() bool {
	return i == ""
}

// ParseIdentityID validates an identity id coming from an untrusted source
// such as the session store.
func ParseIdentityID(s string) (IdentityID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeMalformed, "identity id is required")
	}
	if len(s) > maxIdentityIDLength {
		return "", dErrors.New(dErrors.CodeMalformed, "identity id too long")
	}
	if strings.ContainsFunc(s, isIllegalIDRune) {
		return "", dErrors.New(dErrors.CodeMalformed, "identity id contains illegal characters")
	}
	return IdentityID(s), nil
}

// Store-assigned ids are hex or UUID text; nothing else is accepted.
func isIllegalIDRune(r rune) bool {
	switch {
	case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '-':
		return false
	}
	return true
}

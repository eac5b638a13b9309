package credentials

import (
	"encoding/base64"
	"strings"

	dErrors "sessiongate/pkg/domain-errors"
)

const basicPrefix = "Basic "

// ParseBasic extracts the email and password from an Authorization header of
// the form "Basic base64(email:password)". The scheme match is case-sensitive
// and the decoded payload must hold exactly one colon.
func ParseBasic(header string) (email, password string, err error) {
	payload, ok := strings.CutPrefix(header, basicPrefix)
	if !ok || payload == "" {
		return "", "", malformed()
	}

	decoded, decErr := base64.StdEncoding.DecodeString(payload)
	if decErr != nil {
		return "", "", malformed()
	}

	pair := string(decoded)
	if strings.Count(pair, ":") != 1 {
		return "", "", malformed()
	}
	email, password, _ = strings.Cut(pair, ":")
	if email == "" || password == "" {
		return "", "", malformed()
	}
	return email, password, nil
}

func malformed() error {
	return dErrors.New(dErrors.CodeMalformed, "Malformed authorization header")
}

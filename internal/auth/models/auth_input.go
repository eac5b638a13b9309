package models

import (
	dErrors "sessiongate/pkg/domain-errors"
)

// AuthKind tells which variant an AuthInput carries.
type AuthKind int

const (
	AuthKindToken AuthKind = iota + 1
	AuthKindCredentials
)

func (k AuthKind) String() string {
	switch k {
	case AuthKindToken:
		return "token"
	case AuthKindCredentials:
		return "credentials"
	default:
		return "unknown"
	}
}

// AuthInput is exactly one of a session token or a raw Basic Authorization
// header. Build it with TokenInput, CredentialsInput or ParseAuthInput.
type AuthInput struct {
	kind          AuthKind
	token         string
	authorization string
}

func TokenInput(token string) AuthInput {
	return AuthInput{kind: AuthKindToken, token: token}
}

func CredentialsInput(authorization string) AuthInput {
	return AuthInput{kind: AuthKindCredentials, authorization: authorization}
}

func (a AuthInput) Kind() AuthKind {
	return a.kind
}

func (a AuthInput) Token() string {
	return a.token
}

func (a AuthInput) Authorization() string {
	return a.authorization
}

// ParseAuthInput picks the variant from the request headers. X-Token wins
// when both are sent.
func ParseAuthInput(authorization, token string) (AuthInput, error) {
	switch {
	case token != "":
		return TokenInput(token), nil
	case authorization != "":
		return CredentialsInput(authorization), nil
	default:
		return AuthInput{}, dErrors.New(dErrors.CodeUnauthorized, "Unauthorized")
	}
}

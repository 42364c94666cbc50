package app

import "strings"

// Identity is the opaque authenticated-session value supplied by the identity collaborator.
type Identity interface {
	Authenticated() bool
}

// StaticIdentity is a session backed by a configured display name.
type StaticIdentity struct {
	DisplayName string
}

// Authenticated reports whether a display name is present.
func (i StaticIdentity) Authenticated() bool {
	return strings.TrimSpace(i.DisplayName) != ""
}

// authenticated reports whether id grants access to the board.
func authenticated(id Identity) bool {
	return id != nil && id.Authenticated()
}

package domain

// Session holds the opaque bearer token issued by the upstream API.
// The zero value means no session.
type Session struct {
	Token string
}

// Authenticated reports whether the session carries a token.
func (s Session) Authenticated() bool {
	return s.Token != ""
}

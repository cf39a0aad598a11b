package domain

// Credential is the token/role/username triple of an active session.
// Either all three fields are set or the session does not exist.
type Credential struct {
	Token    SecretString
	Role     Role
	Username string
}

// Complete reports whether every field is present and the role is known.
func (c Credential) Complete() bool {
	return !c.Token.IsEmpty() && c.Username != "" && IsValidRole(c.Role)
}

// BearerHeader returns the Authorization header value for the credential.
func (c Credential) BearerHeader() string {
	return "Bearer " + c.Token.Expose()
}

package git

import (
	"fmt"
	"strings"
)

// Identity is a commit author or committer
type Identity struct {
	Name  string
	Email string
}

// String renders the identity as "Display Name <email>"
func (i Identity) String() string {
	return fmt.Sprintf("%s <%s>", i.Name, i.Email)
}

// IsZero reports whether neither name nor email is set
func (i Identity) IsZero() bool {
	return i.Name == "" && i.Email == ""
}

// ParseIdentity parses "Display Name <email>"
func ParseIdentity(s string) (Identity, error) {
	s = strings.TrimSpace(s)
	open := strings.LastIndex(s, "<")
	if open < 0 || !strings.HasSuffix(s, ">") {
		return Identity{}, fmt.Errorf("identity %q is not of the form \"Name <email>\"", s)
	}
	id := Identity{
		Name:  strings.TrimSpace(s[:open]),
		Email: strings.TrimSpace(s[open+1 : len(s)-1]),
	}
	if id.Name == "" || id.Email == "" {
		return Identity{}, fmt.Errorf("identity %q is missing a name or email", s)
	}
	return id, nil
}

package auth

import (
	"crypto/subtle"
	"errors"

	"github.com/medbot/medbot/internal/dataset"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type account struct {
	password string
	identity Identity
}

// Accounts is the fixed set of demo logins from the dataset. Passwords are
// plain text; this is a demo identity source, not a credential store.
type Accounts struct {
	byUsername map[string]account
}

func NewAccounts(users []dataset.Account) *Accounts {
	a := &Accounts{byUsername: make(map[string]account, len(users))}
	for _, u := range users {
		a.byUsername[u.Username] = account{
			password: u.Password,
			identity: Identity{UserID: u.Username, Role: Role(u.Role), DoctorName: u.DoctorName},
		}
	}
	return a
}

// Authenticate checks username, password and the role the user logs in as.
func (a *Accounts) Authenticate(username, password string, role Role) (Identity, error) {
	acct, ok := a.byUsername[username]
	if !ok {
		return Identity{}, ErrInvalidCredentials
	}
	if subtle.ConstantTimeCompare([]byte(acct.password), []byte(password)) != 1 {
		return Identity{}, ErrInvalidCredentials
	}
	if role != "" && acct.identity.Role != role {
		return Identity{}, ErrInvalidCredentials
	}
	return acct.identity, nil
}

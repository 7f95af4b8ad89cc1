package domain

type Role string

const (
	RoleViewer    Role = "viewer"
	RoleModerator Role = "moderator"
	RoleOverlay   Role = "overlay"
)

// Identity is the account a connection acts as. The zero value is anonymous.
type Identity struct {
	AccountID   int64
	DisplayName string
}

var Anonymous = Identity{}

func (i Identity) IsAnonymous() bool {
	return i.AccountID == 0
}

// Account is the directory record for an authenticated user.
type Account struct {
	ID       int64
	Username string
}

package crm

// Actor is the acting context threaded through the facade: who is calling,
// whose records are being touched, and which branch is selected.
type Actor struct {
	UserID   int
	Role     Role
	Target   int
	BranchID int
}

// Owner is the user id every list/create/update/delete is scoped to.
func (a Actor) Owner() int {
	if a.Role == RoleSuperadmin && a.Target > 0 {
		return a.Target
	}
	return a.UserID
}

// Impersonating reports whether a superadmin is acting for someone else.
func (a Actor) Impersonating() bool {
	return a.Owner() != a.UserID
}

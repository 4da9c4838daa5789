package domain

// Identity is the authenticated caller of a request or stream. The zero
// value is an anonymous viewer.
type Identity struct {
	UserID        string
	WalletAddress string
}

// Anonymous reports whether no user is attached.
func (i Identity) Anonymous() bool {
	return i.UserID == ""
}

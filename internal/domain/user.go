package domain

// User is a reader who signed in through the identity provider.
//
// Profile fields mirror the provider and are overwritten on every login.
type User struct {
	Record
	GoogleID   string `json:"google_id,omitempty"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	ProfilePic string `json:"profile_pic,omitempty"`
	IsAdmin    bool   `json:"is_admin"`

	// ReviewIDs lists the user's reviews, oldest first.
	ReviewIDs []string `json:"review_ids"`
}

// CanManage reports whether u may read or delete resources owned by ownerID.
func (u *User) CanManage(ownerID string) bool {
	return u.ID == ownerID || u.IsAdmin
}

// Profile is the subset of identity provider claims copied onto a User.
type Profile struct {
	GoogleID   string
	Username   string
	Email      string
	ProfilePic string
}

// Apply overwrites the provider-owned fields of u with p.
// It reports whether anything changed.
func (u *User) Apply(p Profile) bool {
	changed := u.GoogleID != p.GoogleID ||
		u.Username != p.Username ||
		u.Email != p.Email ||
		u.ProfilePic != p.ProfilePic

	u.GoogleID = p.GoogleID
	u.Username = p.Username
	u.Email = p.Email
	u.ProfilePic = p.ProfilePic
	return changed
}

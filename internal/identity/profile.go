package identity

import "fmt"

// Profile is a point-in-time view of an identity's public profile.
// Values are immutable once constructed; a new Profile replaces, never
// mutates, an old one.
type Profile struct {
	FID         int64
	Username    string
	DisplayName string
	Bio         string
	AvatarURL   string
	Location    string
	Website     string
}

// IsZero reports whether no public field is set (FID aside).
func (p Profile) IsZero() bool {
	return p.Username == "" && p.DisplayName == "" && p.Bio == "" &&
		p.AvatarURL == "" && p.Location == "" && p.Website == ""
}

// BestName returns the display name, falling back to the username.
func (p Profile) BestName() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Username
}

// Placeholder is the profile used for ids the lookup service could not
// resolve. The pipeline still renders a notification, just without names.
func Placeholder(fid int64) Profile {
	n := fmt.Sprintf("id:%d", fid)
	return Profile{FID: fid, Username: n, DisplayName: n}
}

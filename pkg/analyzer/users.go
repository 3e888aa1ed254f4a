package analyzer

import (
	"regexp"
	"strings"
	"time"
)

var viaTokenPattern = regexp.MustCompile(`via token:\s*(.+?)(?:\s*\|\|\s*(\d+))?[\r\n]*$`)

// parseTokenUser reads "via token: <email> || <id>". Either part may be
// empty; ok is false when the line carries neither.
func parseTokenUser(line string) (email, userID string, ok bool) {
	m := viaTokenPattern.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}
	email = strings.TrimSpace(m[1])
	userID = strings.TrimSpace(m[2])
	return email, userID, email != "" || userID != ""
}

// userRegistry merges token authentications by user ID, then email.
type userRegistry struct {
	users []AuthenticatedUser
}

func newUserRegistry() *userRegistry {
	return &userRegistry{users: []AuthenticatedUser{}}
}

func (r *userRegistry) observe(email, userID string, ts *time.Time) {
	for i := range r.users {
		u := &r.users[i]
		if (userID != "" && u.UserID == userID) || (email != "" && u.Email == email) {
			if ts != nil {
				u.LastSeen = ts
			}
			u.AuthCount++
			if u.UserID == "" {
				u.UserID = userID
			}
			if u.Email == "" {
				u.Email = email
			}
			return
		}
	}
	r.users = append(r.users, AuthenticatedUser{
		Email:     email,
		UserID:    userID,
		FirstSeen: ts,
		LastSeen:  ts,
		AuthCount: 1,
	})
}

package domain

import (
	"strings"
	"time"
)

// Librarian is the login response of the backend.
type Librarian struct {
	ID       string `json:"librarianId"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Role     string `json:"role,omitempty"`
}

// IsAdmin treats a missing role as admin: every librarian account may use the dashboard.
func (l Librarian) IsAdmin() bool {
	return l.Role == "" || strings.EqualFold(l.Role, "admin")
}

type Session struct {
	LibrarianID   string
	Username      string
	DisplayName   string
	Authenticated bool
	Admin         bool
	CreatedAt     time.Time
}

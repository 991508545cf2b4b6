package models

import (
	"strconv"
	"strings"
)

// Identity is the authenticated user as mirrored locally. It is owned by the
// identity provider; UID never changes.
type Identity struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

// Capabilities is what an identity may do in the UI.
type Capabilities struct {
	CanManageCatalog bool `json:"canManageCatalog"`
}

// DefaultDisplayName returns name when set, the local part of email otherwise.
func DefaultDisplayName(name, email string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	local, _, _ := strings.Cut(email, "@")
	return local
}

// Greeting is the name shown in the dashboard header.
func (i Identity) Greeting() string {
	if i.DisplayName != "" {
		return i.DisplayName
	}
	return "User"
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}

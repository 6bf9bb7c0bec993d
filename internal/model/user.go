package model

import (
    "strings"
    "time"
)

// Roles recognised by the presentation backend.  Values coming from the
// login sheet are normalised to upper case before comparison.
const (
    RoleFaculty = "FACULTY"
    RoleStaff   = "STAFF"
    RoleAdmin   = "ADMIN"
)

// Identity is the logged-in user record.  It is read once at login and
// passed explicitly to every component that attributes an action
// (message sender, edit author, approver).
//
// Fields:
//  Email     – primary identity string.
//  Role      – FACULTY, STAFF or ADMIN.
//  FirstName – given name from the login sheet.
//  LastName  – family name from the login sheet.
//  Name      – display name; derived from first and last name when empty.
type Identity struct {
    Email     string `json:"email"`
    Role      string `json:"role"`
    FirstName string `json:"firstname"`
    LastName  string `json:"lastname"`
    Name      string `json:"name"`
}

// DisplayName returns Name, falling back to "FirstName LastName".
func (i Identity) DisplayName() string {
    if strings.TrimSpace(i.Name) != "" {
        return i.Name
    }
    return strings.TrimSpace(i.FirstName + " " + i.LastName)
}

// Sender returns the identity string used on messages and seen sets:
// email, then name, then the literal "Unknown".
func (i Identity) Sender() string {
    if i.Email != "" {
        return i.Email
    }
    if n := i.DisplayName(); n != "" {
        return n
    }
    return "Unknown"
}

// IsStaff reports whether the identity may act on the staff pages.
func (i Identity) IsStaff() bool {
    return i.Role == RoleStaff || i.Role == RoleAdmin
}

// NormalizeRole upper-cases and trims a role string.
func NormalizeRole(r string) string {
    return strings.ToUpper(strings.TrimSpace(r))
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA-256 hash of the token value is stored.
//
// Fields:
//  ID        – primary key identifier.
//  Email     – owner of the token.
//  SessionID – session the token belongs to.
//  TokenHash – SHA-256 hex digest of the token value.
//  ExpiresAt – expiration timestamp of the token.
//  RevokedAt – when the token was revoked (null if still active).
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
    ID        uint64     // refresh_tokens.id
    Email     string     // refresh_tokens.email
    SessionID string     // refresh_tokens.session_id
    TokenHash string     // refresh_tokens.token_hash
    ExpiresAt time.Time  // refresh_tokens.expires_at
    RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
    CreatedAt time.Time  // refresh_tokens.created_at
}

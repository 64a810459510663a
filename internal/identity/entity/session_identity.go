package entity

// SessionIdentity is the value stored in a caller's session after a
// successful login or signup. Profile fields are nil when no profile exists.
type SessionIdentity struct {
	AccountID string  `json:"accountId"`
	Email     string  `json:"email"`
	Role      Role    `json:"role"`
	ProfileID *string `json:"profileId"`
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
}

// NewSessionIdentity builds the identity from an account and an optional profile.
func NewSessionIdentity(a *Account, p *Profile) SessionIdentity {
	id := SessionIdentity{
		AccountID: a.ID,
		Email:     a.Email,
		Role:      a.Role,
	}
	if p != nil {
		profileID, first, last := p.ID, p.FirstName, p.LastName
		id.ProfileID = &profileID
		id.FirstName = &first
		id.LastName = &last
	}
	return id
}

// IsAdmin reports whether the identity carries the admin role.
func (s SessionIdentity) IsAdmin() bool { return s.Role == RoleAdmin }

// DisplayName returns the profile first name, falling back to the email.
func (s SessionIdentity) DisplayName() string {
	if s.FirstName != nil && *s.FirstName != "" {
		return *s.FirstName
	}
	return s.Email
}

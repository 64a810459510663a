package entity

import "time"

// Profile is the participant record in `participant_info`. It may exist before
// any account does, in which case AccountID is nil and the profile is unclaimed.
type Profile struct {
	ID        string    `db:"participant_id"`
	Email     string    `db:"participant_email"`
	FirstName string    `db:"participant_first_name"`
	LastName  string    `db:"participant_last_name"`
	AccountID *string   `db:"user_id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Unclaimed reports whether no account is linked yet.
func (p *Profile) Unclaimed() bool { return p.AccountID == nil || *p.AccountID == "" }

package domain

import "time"

type PhoneVerification struct {
	ID          string    `bson:"_id" json:"id"`
	UserID      string    `bson:"user_id" json:"user_id"`
	PhoneNumber string    `bson:"phone_number" json:"phone_number"`
	CodeHash    string    `bson:"code_hash" json:"-"`
	Attempts    int       `bson:"attempts" json:"attempts"`
	ExpiresAt   time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
}

func (v *PhoneVerification) Expired(now time.Time) bool {
	return !now.Before(v.ExpiresAt)
}

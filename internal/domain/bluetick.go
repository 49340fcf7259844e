package domain

import "time"

type BlueTickStatus string

const (
	BlueTickPending  BlueTickStatus = "pending"
	BlueTickApproved BlueTickStatus = "approved"
	BlueTickRejected BlueTickStatus = "rejected"
)

type BlueTickApplication struct {
	ID          string         `bson:"_id" json:"id"`
	UserID      string         `bson:"user_id" json:"user_id"`
	Username    string         `bson:"username" json:"username"`
	FullName    string         `bson:"full_name" json:"full_name"`
	Category    string         `bson:"category" json:"category"`
	DocumentURL string         `bson:"document_url,omitempty" json:"document_url,omitempty"`
	Status      BlueTickStatus `bson:"status" json:"status"`
	ReviewerID  string         `bson:"reviewer_id,omitempty" json:"reviewer_id,omitempty"`
	ReviewNote  string         `bson:"review_note,omitempty" json:"review_note,omitempty"`
	ReviewedAt  *time.Time     `bson:"reviewed_at,omitempty" json:"reviewed_at,omitempty"`
	CreatedAt   time.Time      `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `bson:"updated_at" json:"updated_at"`
}

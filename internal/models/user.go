package models

import (
	"time"

	"github.com/google/uuid"
)

// BanReasonLowReputation is the system-generated reason attached when the
// reputation ledger triggers an automatic suspension.
const BanReasonLowReputation = "Automatic ban due to low reputation score (multiple rejected reports)"

const banThreshold = 20.0

// User is a registered reporter, created on first successful identity
// verification and never deleted by this service.
type User struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	FirebaseUID string    `gorm:"size:128;not null;uniqueIndex" json:"firebaseUid"`
	Email       string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	DisplayName *string   `gorm:"size:100" json:"displayName"`
	PhotoURL    *string   `gorm:"size:500" json:"photoUrl"`

	TotalReports    int `gorm:"not null;default:0" json:"-"`
	ApprovedReports int `gorm:"not null;default:0" json:"-"`
	RejectedReports int `gorm:"not null;default:0" json:"-"`

	ReputationScore float64 `gorm:"not null;default:100.0" json:"reputationScore"`
	IsBanned        bool    `gorm:"not null;default:false" json:"isBanned"`
	BanReason       *string `gorm:"type:text" json:"-"`

	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	LastLogin time.Time `json:"lastLogin"`
	UpdatedAt time.Time `json:"-"`

	Reports []Report `gorm:"foreignKey:UserID" json:"-"`
}

// ApplyOutcome updates the reputation ledger after one moderation verdict.
// Approval adds 0.5 (capped at 100), rejection subtracts 2.0 (floored at 0).
// Dropping below 20 suspends the account; the ban is one-way and later
// approvals never reverse it.
func (u *User) ApplyOutcome(approved bool) {
	u.TotalReports++
	if approved {
		u.ApprovedReports++
		u.ReputationScore = min(100.0, u.ReputationScore+0.5)
	} else {
		u.RejectedReports++
		u.ReputationScore = max(0.0, u.ReputationScore-2.0)
	}

	if u.ReputationScore < banThreshold && !u.IsBanned {
		reason := BanReasonLowReputation
		u.IsBanned = true
		u.BanReason = &reason
	}
}

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ReportStatus string

const (
	StatusPending  ReportStatus = "pending"
	StatusApproved ReportStatus = "approved"
	StatusRejected ReportStatus = "rejected"
)

// Verdict is the outcome of one AI moderation pass. It is embedded in the
// report row and written exactly once; ReviewedAt is set if and only if the
// report has left the pending state.
type Verdict struct {
	Approved   bool                        `gorm:"default:false" json:"approved"`
	Reason     string                      `gorm:"type:text" json:"reason"`
	Confidence float64                     `json:"confidence"`
	Flags      datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"flags"`
	ReviewedAt *time.Time                  `json:"reviewedAt"`
}

// Report is a single citizen-submitted vehicle violation report.
type Report struct {
	ID          uuid.UUID                   `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	PlateNumber string                      `gorm:"size:20;not null;index" json:"plateNumber"`
	Violations  datatypes.JSONSlice[string] `gorm:"type:jsonb;not null" json:"violations"`
	Location    string                      `gorm:"size:200;not null" json:"location"`
	Description *string                     `gorm:"type:text" json:"description"`
	PhotoURL    *string                     `gorm:"size:500" json:"photoUrl"`

	// Exactly one of UserID / ReporterIP is set: registered accounts own
	// their reports, anonymous submissions carry the caller's address.
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"userId,omitempty"`
	Reporter   *User      `gorm:"foreignKey:UserID" json:"-"`
	ReporterIP *string    `gorm:"size:45;index" json:"-"`

	Status     ReportStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`
	Moderation Verdict      `gorm:"embedded;embeddedPrefix:moderation_" json:"moderation"`

	CreatedAt time.Time `gorm:"not null;index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SetModeration applies a verdict and moves the report to its terminal
// status. The status is never re-evaluated after this call.
func (r *Report) SetModeration(v Verdict) {
	now := time.Now().UTC()
	v.ReviewedAt = &now
	if v.Flags == nil {
		v.Flags = datatypes.JSONSlice[string]{}
	}
	r.Moderation = v
	if v.Approved {
		r.Status = StatusApproved
	} else {
		r.Status = StatusRejected
	}
}

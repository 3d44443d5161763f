package dto

import (
	"github.com/google/uuid"
	"github.com/roadwatch-kerala/backend/internal/models"
)

type SubmitReportRequest struct {
	PlateNumber string   `json:"plateNumber" validate:"required"`
	Violations  []string `json:"violations" validate:"required,min=1,dive,required"`
	Location    string   `json:"location" validate:"required"`
	Description *string  `json:"description"`
	PhotoURL    *string  `json:"photoUrl" validate:"omitempty,url"`
}

type SubmitReportResponse struct {
	Success    bool      `json:"success"`
	Message    string    `json:"message"`
	ReportID   uuid.UUID `json:"reportId"`
	Confidence float64   `json:"confidence"`
}

type ModerationRejectedResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Reason  string   `json:"reason"`
	Flags   []string `json:"flags"`
	Note    string   `json:"note"`
}

type ReportListResponse struct {
	Reports []models.Report `json:"reports"`
	Total   int64           `json:"total"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

type PlateReportsResponse struct {
	PlateNumber        string          `json:"plateNumber"`
	TotalReports       int             `json:"totalReports"`
	Reports            []models.Report `json:"reports"`
	ViolationBreakdown map[string]int  `json:"violationBreakdown"`
	SafetyScore        int             `json:"safetyScore"`
}

type StatsResponse struct {
	Total        int64   `json:"total"`
	Approved     int64   `json:"approved"`
	Rejected     int64   `json:"rejected"`
	Today        int64   `json:"today"`
	ApprovalRate float64 `json:"approvalRate"`
}

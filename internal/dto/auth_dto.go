package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/roadwatch-kerala/backend/internal/models"
)

type UserStats struct {
	TotalReports    int `json:"totalReports"`
	ApprovedReports int `json:"approvedReports"`
	RejectedReports int `json:"rejectedReports"`
}

type UserResponse struct {
	ID              uuid.UUID `json:"id"`
	FirebaseUID     string    `json:"firebaseUid"`
	Email           string    `json:"email"`
	DisplayName     *string   `json:"displayName"`
	PhotoURL        *string   `json:"photoUrl"`
	Stats           UserStats `json:"stats"`
	ReputationScore float64   `json:"reputationScore"`
	IsBanned        bool      `json:"isBanned"`
	CreatedAt       time.Time `json:"createdAt"`
	LastLogin       time.Time `json:"lastLogin"`
}

func NewUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		FirebaseUID: u.FirebaseUID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		PhotoURL:    u.PhotoURL,
		Stats: UserStats{
			TotalReports:    u.TotalReports,
			ApprovedReports: u.ApprovedReports,
			RejectedReports: u.RejectedReports,
		},
		ReputationScore: u.ReputationScore,
		IsBanned:        u.IsBanned,
		CreatedAt:       u.CreatedAt,
		LastLogin:       u.LastLogin,
	}
}

type RegisterResponse struct {
	Message string       `json:"message"`
	User    UserResponse `json:"user"`
}

type UserReportsResponse struct {
	User    UserResponse    `json:"user"`
	Reports []models.Report `json:"reports"`
}

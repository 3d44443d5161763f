package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/roadwatch-kerala/backend/internal/models"
	"gorm.io/gorm"
)

// AccountService manages registered reporter accounts.
type AccountService struct {
	db *gorm.DB
}

func NewAccountService(db *gorm.DB) *AccountService {
	return &AccountService{db: db}
}

// GetByFirebaseUID returns the account for a verified identity, or
// ErrUserNotFound when the identity has never registered.
func (s *AccountService) GetByFirebaseUID(uid string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("firebase_uid = ?", uid).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

// Register upserts an account from verified identity claims: on first sight
// it creates the account, afterwards it refreshes the profile fields and
// last-login timestamp. The bool result reports whether a new account was
// created.
func (s *AccountService) Register(claims *IdentityClaims) (*models.User, bool, error) {
	var user models.User
	err := s.db.Where("firebase_uid = ?", claims.SubjectID).First(&user).Error
	if err == nil {
		if claims.DisplayName != nil {
			user.DisplayName = claims.DisplayName
		}
		if claims.PhotoURL != nil {
			user.PhotoURL = claims.PhotoURL
		}
		user.LastLogin = time.Now().UTC()
		if err := s.db.Save(&user).Error; err != nil {
			return nil, false, fmt.Errorf("failed to update user: %w", err)
		}
		return &user, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("failed to load user: %w", err)
	}

	user = newUserFromClaims(claims)
	if err := s.db.Create(&user).Error; err != nil {
		return nil, false, fmt.Errorf("failed to create user: %w", err)
	}
	return &user, true, nil
}

func newUserFromClaims(claims *IdentityClaims) models.User {
	return models.User{
		FirebaseUID:     claims.SubjectID,
		Email:           claims.Email,
		DisplayName:     claims.DisplayName,
		PhotoURL:        claims.PhotoURL,
		ReputationScore: 100.0,
		LastLogin:       time.Now().UTC(),
	}
}

package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/roadwatch-kerala/backend/internal/config"
)

// IdentityClaims are the verified claims of an inbound bearer credential.
type IdentityClaims struct {
	SubjectID     string
	Email         string
	DisplayName   *string
	PhotoURL      *string
	EmailVerified bool
}

// TokenVerifier maps an opaque bearer credential to identity claims.
type TokenVerifier interface {
	Verify(ctx context.Context, idToken string) (*IdentityClaims, error)
}

// FirebaseVerifier verifies Firebase ID tokens through the Identity Toolkit
// accounts:lookup REST endpoint.
type FirebaseVerifier struct {
	httpClient *http.Client
	lookupURL  string
	apiKey     string
}

func NewFirebaseVerifier(cfg *config.Config) *FirebaseVerifier {
	return &FirebaseVerifier{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		lookupURL:  cfg.FirebaseLookupURL,
		apiKey:     cfg.FirebaseAPIKey,
	}
}

type firebaseLookupResponse struct {
	Users []struct {
		LocalID       string `json:"localId"`
		Email         string `json:"email"`
		DisplayName   string `json:"displayName"`
		PhotoURL      string `json:"photoUrl"`
		EmailVerified bool   `json:"emailVerified"`
	} `json:"users"`
}

func (v *FirebaseVerifier) Verify(ctx context.Context, idToken string) (*IdentityClaims, error) {
	body, err := json.Marshal(map[string]string{"idToken": idToken})
	if err != nil {
		return nil, fmt.Errorf("failed to encode lookup request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.lookupURL+"?key="+v.apiKey, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build lookup request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, ErrInvalidToken
	}

	var lookup firebaseLookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&lookup); err != nil {
		return nil, fmt.Errorf("failed to decode lookup response: %w", err)
	}
	if len(lookup.Users) == 0 {
		return nil, ErrInvalidToken
	}

	u := lookup.Users[0]
	claims := &IdentityClaims{
		SubjectID:     u.LocalID,
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
	}
	if u.DisplayName != "" {
		claims.DisplayName = &u.DisplayName
	}
	if u.PhotoURL != "" {
		claims.PhotoURL = &u.PhotoURL
	}
	return claims, nil
}

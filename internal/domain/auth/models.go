package auth

import "time"

const UserStatusActive = "active"

type UserContext struct {
	UserID    string
	CompanyID string
	RoleName  string
}

type User struct {
	ID           string
	CompanyID    string
	Email        string
	PasswordHash string
	Role         string
	Status       string
	LastLogin    *time.Time
}

type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	UserID    string    `json:"userId"`
	CompanyID string    `json:"companyId"`
	Role      string    `json:"role"`
}

package domain

import (
	"time"
)

type UserRole string

const (
	UserRolePatient UserRole = "PATIENT"
	UserRoleDoctor  UserRole = "DOCTOR"
	UserRoleAdmin   UserRole = "ADMIN"
)

type VerificationStatus string

const (
	VerificationStatusPending  VerificationStatus = "PENDING"
	VerificationStatusVerified VerificationStatus = "VERIFIED"
	VerificationStatusRejected VerificationStatus = "REJECTED"
)

// User — единая запись пользователя с дискриминантом Role.
// Поля профиля врача заполняются только при Role == DOCTOR.
type User struct {
	ID           int64    `json:"id"`
	Email        string   `json:"email"`
	Name         string   `json:"name"`
	PasswordHash string   `json:"-"`
	Role         UserRole `json:"role"`
	Credits      int      `json:"credits"`
	IsActive     bool     `json:"is_active"`

	Specialty          string             `json:"specialty,omitempty"`
	Experience         int                `json:"experience,omitempty"`
	Description        string             `json:"description,omitempty"`
	CredentialURL      string             `json:"credential_url,omitempty"`
	VerificationStatus VerificationStatus `json:"verification_status,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateUserDTO struct {
	Email    string   `json:"email" binding:"required,email"`
	Name     string   `json:"name" binding:"required"`
	Password string   `json:"password" binding:"required,min=6"`
	Role     UserRole `json:"role" binding:"required,oneof=PATIENT DOCTOR"`
}

type UpdateUserDTO struct {
	Name        *string `json:"name"`
	Email       *string `json:"email" binding:"omitempty,email"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

// DoctorProfileDTO — данные профиля врача, указываемые при регистрации
// или обновлении; до проверки администратором врач получает статус PENDING.
type DoctorProfileDTO struct {
	Specialty   string `json:"specialty" binding:"required"`
	Experience  int    `json:"experience" binding:"min=0"`
	Description string `json:"description"`
}

type DoctorFilter struct {
	Specialty          *string             `json:"specialty"`
	VerificationStatus *VerificationStatus `json:"verification_status"`
	Limit              int                 `json:"limit"`
	Offset             int                 `json:"offset"`
}

type PasswordUpdateDTO struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6"`
}

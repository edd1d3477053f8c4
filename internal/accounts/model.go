package accounts

import (
	"time"

	"coreflow-cms/internal/auth"
)

type User struct {
	ID           string    `bson:"_id,omitempty" json:"id" gorm:"primaryKey;size:24"`
	Username     string    `bson:"username" json:"username" gorm:"size:150;not null;uniqueIndex"`
	Email        string    `bson:"email,omitempty" json:"email,omitempty" gorm:"size:254"`
	PasswordHash string    `bson:"password_hash" json:"-" gorm:"size:100;not null"`
	Role         string    `bson:"role" json:"role" gorm:"size:16;not null"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updated_at"`
}

func (User) TableName() string { return "users" }

func (u User) Principal() *auth.Principal {
	return &auth.Principal{UserID: u.ID, Username: u.Username, Role: u.Role}
}

type RegisterRequest struct {
	Username        string `json:"username" form:"username" validate:"required,min=4,max=150"`
	Email           string `json:"email" form:"email" validate:"omitempty,email,max=254"`
	Password        string `json:"password" form:"password1" validate:"required,min=8,max=128"`
	PasswordConfirm string `json:"password_confirm" form:"password2" validate:"required,eqfield=Password"`
}

type LoginRequest struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

type RoleRequest struct {
	Role string `json:"role" validate:"required,oneof=user moderator admin"`
}

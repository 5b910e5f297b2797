package auth

import "time"

type Session struct {
	SessionID string    `gorm:"primaryKey" json:"-"`
	UserID    string    `gorm:"not null;unique" json:"-"`
	ExpiresAt time.Time `gorm:"not null"`
}

type User struct {
	UserID         string     `gorm:"primaryKey" json:"user_id"`
	Name           string     `gorm:"not null" json:"name"`
	Email          string     `gorm:"not null;uniqueIndex" json:"email"`
	Password       string     `json:"password,omitempty" gorm:"-"`
	HashedPassword string     `json:"-"`
	Mobile         string     `json:"mobile,omitempty"`
	Year           string     `json:"year,omitempty"`
	Department     string     `json:"department,omitempty"`
	Role           string     `gorm:"default:'user'" json:"role"`
	IsActive       bool       `gorm:"default:true" json:"is_active"`
	IsVerified     bool       `gorm:"default:false" json:"is_verified"`
	LastLogin      *time.Time `json:"last_login,omitempty"`
	LoginCount     int        `gorm:"default:0" json:"login_count"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (Session) TableName() string { return "app_auth.sessions" }
func (User) TableName() string    { return "app_auth.users" }

const MinPasswordLength = 6

var Years = []string{"1st", "2nd", "3rd", "4th", "Alumni", "Faculty", "Other"}

var Departments = []string{
	"Computer Engineering",
	"Information Technology",
	"Electronics & Communication",
	"Electrical Engineering",
	"Mechanical Engineering",
	"Civil Engineering",
	"Chemical Engineering",
	"Biomedical Engineering",
	"Environmental Engineering",
	"Management Studies",
	"Other",
}

package model

// User roles.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User is an institutional person known to the system, keyed by their USP
// registration number (codpes). A user with a password hash can log in;
// users attached to locks as manual entries may never log in at all.
type User struct {
	Codpes   int    `gorm:"primaryKey"                          json:"codpes"`
	Name     string `gorm:"type:varchar(255);not null"          json:"name"`
	Email    string `gorm:"type:varchar(255)"                   json:"email,omitempty"`
	Password string `gorm:"type:varchar(100)"                   json:"-"`
	Role     string `gorm:"type:varchar(20);not null;default:'user'" json:"role"`
	BaseModel
}

// TableName sets the table name.
func (User) TableName() string { return "users" }

// IsAdmin reports whether the user holds the global admin role.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

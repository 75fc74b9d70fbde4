package repository

import "gorm.io/gorm"

// Repository aggregates every data-access interface.
type Repository struct {
	User         UserRepository
	Lock         LockRepository
	ExternalUser ExternalUserRepository
	AccessLog    AccessLogRepository
}

// NewRepository creates the Repository aggregate.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		User:         NewUserRepo(db),
		Lock:         NewLockRepo(db),
		ExternalUser: NewExternalUserRepo(db),
		AccessLog:    NewAccessLogRepo(db),
	}
}

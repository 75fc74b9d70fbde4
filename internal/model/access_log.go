package model

import "time"

// AccessLog is one access event pulled from a lock's onboard log.
// DeviceLogID is the device's own log row id; the (lock_id, device_log_id)
// pair makes repeated pulls idempotent.
type AccessLog struct {
	ID           uint      `gorm:"primaryKey"              json:"id"`
	LockID       uint      `gorm:"not null;index"          json:"lock_id"`
	DeviceLogID  int64     `gorm:"not null"                json:"device_log_id"`
	DeviceUserID int64     `json:"device_user_id"`
	Event        int       `gorm:"not null"                json:"event"`
	LoggedAt     time.Time `gorm:"not null"                json:"logged_at"`
	CreatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the table name.
func (AccessLog) TableName() string { return "access_logs" }

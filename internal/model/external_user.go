package model

// ExternalUser is a manually registered person without an institutional
// registration number, tied to exactly one lock. Its device registration
// number is derived as offset + ID, keeping external users in a namespace
// disjoint from codpes.
type ExternalUser struct {
	ID          uint   `gorm:"primaryKey"                 json:"id"`
	LockID      uint   `gorm:"not null;index"             json:"lock_id"`
	Name        string `gorm:"type:varchar(255);not null" json:"name"`
	Affiliation string `gorm:"type:varchar(255);not null" json:"affiliation"`
	Notes       string `gorm:"type:text"                  json:"notes,omitempty"`
	PhotoPath   string `gorm:"type:varchar(255)"          json:"photo_path,omitempty"`
	CreatedBy   *int   `json:"created_by,omitempty"`
	BaseModel

	Creator *User `gorm:"foreignKey:CreatedBy;references:Codpes" json:"creator,omitempty"`
}

// TableName sets the table name.
func (ExternalUser) TableName() string { return "external_users" }

// DeviceKey derives the registration number used on the device.
func (e *ExternalUser) DeviceKey(offset int64) int {
	return int(offset) + int(e.ID)
}

// DeviceName is the display name enrolled on the device: "name - affiliation",
// so the doorside screen shows who the person is and why they have access.
func (e *ExternalUser) DeviceName() string {
	return e.Name + " - " + e.Affiliation
}

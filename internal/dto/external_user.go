package dto

// CreateExternalUserRequest registers a guest without a USP number on a lock.
type CreateExternalUserRequest struct {
	Name        string `json:"name" binding:"required"`
	Affiliation string `json:"affiliation" binding:"required"`
	Notes       string `json:"notes"`
}

// ExternalUserResponse is the public view of an external user.
// DeviceKey is the derived registration number enrolled on the device.
type ExternalUserResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Affiliation string `json:"affiliation"`
	Notes       string `json:"notes,omitempty"`
	DeviceKey   int    `json:"device_key"`
	CreatedBy   *int   `json:"created_by,omitempty"`
	CreatedAt   string `json:"created_at"`
}

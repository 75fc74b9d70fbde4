package dto

// DeviceUserResponse mirrors one user enrolled on the physical device.
type DeviceUserResponse struct {
	ID           int64  `json:"id"`
	Registration string `json:"registration"`
	Name         string `json:"name"`
	HasPhoto     bool   `json:"has_photo"`
	HasPassword  bool   `json:"has_password"`
}

// SetDevicePasswordRequest sets the keypad password of a device user.
type SetDevicePasswordRequest struct {
	Password string `json:"password" binding:"required,numeric,min=4,max=10"`
}

// SyncResultResponse summarizes one synchronization run.
type SyncResultResponse struct {
	RosterSize    int `json:"roster_size"`
	DeviceUsers   int `json:"device_users"`
	Created       int `json:"created"`
	PhotoBackfill int `json:"photo_backfill"`
}

// ProgramResponse is one active graduate program, for association forms.
type ProgramResponse struct {
	Codare string `json:"codare"`
	Name   string `json:"name"`
}

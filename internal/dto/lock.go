package dto

// CreateLockRequest registers a new lock device.
type CreateLockRequest struct {
	Location    string `json:"location" binding:"required"`
	IP          string `json:"ip" binding:"required,ip"`
	Port        int    `json:"port" binding:"omitempty,min=1,max=65535"`
	APIUser     string `json:"api_user" binding:"required"`
	APIPassword string `json:"api_password" binding:"required"`
}

// UpdateLockRequest edits a lock. The API password is only changed when given.
type UpdateLockRequest struct {
	Location    *string `json:"location"`
	IP          *string `json:"ip" binding:"omitempty,ip"`
	Port        *int    `json:"port" binding:"omitempty,min=1,max=65535"`
	APIUser     *string `json:"api_user"`
	APIPassword *string `json:"api_password"`
}

// LockResponse is the public view of a lock.
type LockResponse struct {
	ID        uint     `json:"id"`
	Location  string   `json:"location"`
	IP        string   `json:"ip"`
	Port      int      `json:"port"`
	Units     []string `json:"units,omitempty"`
	Programs  []string `json:"programs,omitempty"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
}

// SetCodesRequest replaces a lock's unit or program code set.
type SetCodesRequest struct {
	Codes []string `json:"codes" binding:"required"`
}

// AttachUsersRequest attaches manual users by registration number.
type AttachUsersRequest struct {
	Codpes []int `json:"codpes" binding:"required,min=1"`
}

// AttachUsersResponse reports which registration numbers the directory did
// not recognize; the rest were attached.
type AttachUsersResponse struct {
	Attached []int `json:"attached"`
	Unknown  []int `json:"unknown,omitempty"`
}

package dto

// AccessLogListRequest pages through a lock's stored access logs.
type AccessLogListRequest struct {
	Page     int `form:"page,default=1" binding:"omitempty,min=1"`
	PageSize int `form:"page_size,default=50" binding:"omitempty,min=1,max=200"`
}

// AccessLogResponse is one stored access event.
type AccessLogResponse struct {
	ID           uint   `json:"id"`
	DeviceLogID  int64  `json:"device_log_id"`
	DeviceUserID int64  `json:"device_user_id"`
	Event        int    `json:"event"`
	LoggedAt     string `json:"logged_at"`
}

// PullLogsResponse reports how many new rows a pull brought in.
type PullLogsResponse struct {
	Pulled int `json:"pulled"`
}

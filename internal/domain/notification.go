package domain

type NotificationMessage struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Data any    `json:"data"`
}

type AssignmentNotificationData struct {
	FullName  string `json:"fullName"`
	ShiftDate string `json:"shiftDate"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Event     string `json:"event"`
}

type CreateStaffNotificationData struct {
	FullName string `json:"fullName"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type ResetPasswordNotificationData struct {
	FullName   string `json:"fullName"`
	OTP        string `json:"otp"`
	Expiration int    `json:"expiration"`
}

type RequestNotificationData struct {
	FullName    string `json:"fullName"`
	RequestType string `json:"requestType"`
	Event       string `json:"event"`
	Notes       string `json:"notes"`
}

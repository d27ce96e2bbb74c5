package models

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
	// Upstream is the HTTP status returned by the board directory, if any.
	Upstream int `json:"upstream_status,omitempty"`
}

func SuccessResponse(data interface{}) APIResponse {
	return APIResponse{
		Success: true,
		Data:    data,
	}
}

func ErrorResponse(err string) APIResponse {
	return APIResponse{
		Success: false,
		Error:   err,
	}
}

func MessageResponse(message string) APIResponse {
	return APIResponse{
		Success: true,
		Message: message,
	}
}

// UpstreamResponse reports the outcome of a directory call with its status code.
func UpstreamResponse(code int, err error) APIResponse {
	if err != nil {
		return APIResponse{Success: false, Error: err.Error(), Upstream: code}
	}
	return APIResponse{Success: true, Upstream: code}
}

package dto

// CommandResponse is the uniform envelope for every command endpoint.
type CommandResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func NewSuccessResponse(data interface{}) *CommandResponse {
	return &CommandResponse{Success: true, Data: data}
}

func NewErrorResponse(message string) *CommandResponse {
	return &CommandResponse{Success: false, Error: message}
}

package models

// AnalyzeRequest is the body of POST /analyze
type AnalyzeRequest struct {
	Image string `json:"image" binding:"required"`
}

// LoadURLRequest asks the console to load an image by reference
type LoadURLRequest struct {
	URL string `json:"url" binding:"required"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// ActionResponse is returned by console actions that change session state
type ActionResponse struct {
	State   string `json:"state"`
	Message string `json:"message,omitempty"`
}

package handler

type ProcessRequest struct {
	Bucket string `json:"bucket" validate:"required"`
	Key    string `json:"key" validate:"required"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// SuccessResponse keeps the statusCode/body envelope existing clients parse.
type SuccessResponse struct {
	StatusCode int             `json:"statusCode"`
	Body       MessageResponse `json:"body"`
}

type FailureResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

package response

// JSONResponse is the envelope used by the middleware layer.
type JSONResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func Success(code, message string, data any) JSONResponse {
	return JSONResponse{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

func Error(code, message string, data any) JSONResponse {
	return JSONResponse{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

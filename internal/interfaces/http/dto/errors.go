package dto

// Error labels returned in the "error" field of failure bodies
const (
	ErrRateLimited     = "Rate limit exceeded"
	ErrCaptchaRequired = "Captcha token is required"
	ErrCaptchaFailed   = "Captcha verification failed"
	ErrInvalidInput    = "Invalid lease input"
	ErrIncompleteLease = "Generated lease failed validation"
	ErrInternal        = "Internal server error"
	ErrRequestTooLarge = "Request body too large"
	ErrUnreadableBody  = "Request body could not be read"
)

// Messages accompanying some failures
const (
	MsgRetryGeneration  = "The generated lease was incomplete. Please submit the request again."
	MsgInternalRedacted = "An unexpected error occurred. Please try again later."
	MsgRequestTooLarge  = "Request body exceeds maximum allowed size"
)

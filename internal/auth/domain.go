package auth

// Response is the body of every auth endpoint.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// VerifyRequest asks to verify an email confirmation token.
type VerifyRequest struct {
	Token string `json:"token" validate:"required"`
}

// ResetRequest asks for a password reset email.
type ResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetConfirmRequest sets a new password with a reset token. Confirm is a
// client-side field and never leaves the process.
type ResetConfirmRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8"`
	Confirm     string `json:"-" validate:"eqfield=NewPassword"`
}

// Messages returned by the auth endpoints.
const (
	MsgTokenRequired         = "Token is required"
	MsgInvalidVerifyToken    = "Invalid or expired verification token"
	MsgVerifyUnavailable     = "Verification service temporarily unavailable"
	MsgVerified              = "Your email has been verified successfully!"
	MsgEmailRequired         = "Email is required"
	MsgInvalidEmail          = "Invalid email format"
	MsgResetUnavailable      = "Service temporarily unavailable. Please try again."
	MsgResetSent             = "Password reset email sent successfully"
	MsgTokenPasswordRequired = "Token and password are required"
	MsgInvalidResetToken     = "Invalid or expired reset token"
	MsgPasswordTooShort      = "Password must be at least 8 characters"
	MsgResetFailed           = "Failed to reset password. Please try again."
	MsgPasswordReset         = "Password has been reset successfully"
	MsgUnexpected            = "An unexpected error occurred"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

const minTokenLength = 10

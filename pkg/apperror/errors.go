package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Marketplace Business Logic (MKT) ----

func ErrNotVendor() *AppError {
	return New("MKT_001", "Caller is not the listing vendor", http.StatusForbidden)
}

func ErrNotOwner() *AppError {
	return New("MKT_002", "Caller is not the protocol owner", http.StatusForbidden)
}

func ErrMintPaused() *AppError {
	return New("MKT_003", "Minting is paused for this listing", http.StatusConflict)
}

func ErrNotAllowed() *AppError {
	return New("MKT_004", "Caller is not on the listing allowlist", http.StatusForbidden)
}

func ErrInvalidCurrency() *AppError {
	return New("MKT_005", "Listing is not for sale in this currency", http.StatusBadRequest)
}

func ErrIncorrectPayment() *AppError {
	return New("MKT_006", "Attached payment does not match the sale price", http.StatusPaymentRequired)
}

func ErrUnexpectedPayment() *AppError {
	return New("MKT_007", "Free mint must not carry a payment", http.StatusBadRequest)
}

func ErrSupplyLimitReached() *AppError {
	return New("MKT_008", "Listing supply limit reached", http.StatusConflict)
}

func ErrUniqueViolation() *AppError {
	return New("MKT_009", "Holder already owns a unit of this unique listing", http.StatusConflict)
}

func ErrSoulbound() *AppError {
	return New("MKT_010", "Listing units are soulbound and cannot be transferred", http.StatusConflict)
}

func ErrConfigLocked() *AppError {
	return New("MKT_011", "Configuration bits are locked after issuance", http.StatusConflict)
}

func ErrLimitBelowSupply() *AppError {
	return New("MKT_012", "Supply limit cannot be set below units already issued", http.StatusBadRequest)
}

func ErrRoyaltyExceedsDenominator() *AppError {
	return New("MKT_013", "Royalty numerator exceeds the fee denominator", http.StatusBadRequest)
}

func ErrInsufficientUnits() *AppError {
	return New("MKT_014", "Holder does not own enough units", http.StatusConflict)
}

func ErrNotFound(entity string) *AppError {
	return New("MKT_015", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrMintInProgress() *AppError {
	return New("MKT_016", "A mint with this reference is already in progress", http.StatusConflict)
}

// ---- Escrow & Settlement (ESC) ----

func ErrNothingToWithdraw() *AppError {
	return New("ESC_001", "No escrow balance to withdraw", http.StatusConflict)
}

func ErrTransferFailed() *AppError {
	return New("ESC_002", "External token transfer failed", http.StatusPaymentRequired)
}

// ---- Authentication (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New("AUTH_001", "Invalid credentials", http.StatusUnauthorized)
}

func ErrUsernameExists() *AppError {
	return New("AUTH_002", "Username already exists", http.StatusConflict)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_003", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrAccountSuspended() *AppError {
	return New("AUTH_004", "Account is suspended", http.StatusForbidden)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a request-validation error.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}

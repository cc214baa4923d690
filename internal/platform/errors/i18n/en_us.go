package i18n

// Error codes must match the codes defined in internal/platform/errors/codes.go.
// These are duplicated as strings to avoid an import cycle.
const (
	CodeValidation          = "VALIDATION_FAILED"
	CodeAuthFailed          = "AUTH_FAILED"
	CodePermissionDenied    = "PERMISSION_DENIED"
	CodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	CodePartialFailure      = "PARTIAL_FAILURE"
	CodeNotFound            = "NOT_FOUND"
	CodeUnknown             = "UNKNOWN"
)

var enUSCatalog = &Catalog{
	locale: "en-US",
	messages: map[Code]string{
		CodeValidation: `{{if eq .Constraint "amount_positive"}}Amount must be a whole number greater than zero.` +
			`{{else if eq .Constraint "amount_exceeds_balance"}}You cannot request more than your current balance.` +
			`{{else if eq .Constraint "probation"}}Pass transfers are unavailable while on probation.` +
			`{{else if eq .Constraint "reason_required"}}Please enter a reason for the incentive request.` +
			`{{else if eq .Constraint "password_length"}}Password must be at least 6 characters.` +
			`{{else if eq .Constraint "password_mismatch"}}Passwords do not match.` +
			`{{else if eq .Constraint "balance_whole"}}Balance must be a whole number (0 or more).` +
			`{{else if eq .Constraint "balance_overflow"}}This credit would exceed the largest supported balance.` +
			`{{else if eq .Constraint "credential_set"}}A password is already set for this account.` +
			`{{else if eq .Constraint "filter"}}The filter expression is invalid.` +
			`{{else}}The request is invalid.{{end}}`,
		CodeAuthFailed: `{{if eq .Reason "unknown_account"}}Email not found in system` +
			`{{else if eq .Reason "session_required"}}Please sign in to continue.` +
			`{{else if eq .Reason "session_invalid"}}Your session has expired. Please sign in again.` +
			`{{else}}Incorrect password{{end}}`,

		CodePermissionDenied: "Administrator access is required",

		CodeInsufficientBalance: "Cannot approve: user does not have enough {{.Kind}} balance ({{.Balance}} available, {{.Amount}} requested).",
		CodePartialFailure:      "Balance updated but request not deleted. Remove request {{.RequestID}} manually.",

		CodeNotFound: "The requested {{.Entity}} was not found",
		CodeUnknown:  "An unexpected error occurred",
	},
}

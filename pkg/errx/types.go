package errx

// Type categorizes an error for transport mapping and logging.
type Type string

const (
	// TypeInternal represents unexpected server-side failures
	TypeInternal Type = "INTERNAL"

	// TypeValidation represents malformed or missing input
	TypeValidation Type = "VALIDATION"

	// TypeAuthorization represents missing or invalid credentials
	TypeAuthorization Type = "AUTHORIZATION"

	// TypeForbidden represents an authenticated caller lacking permission
	TypeForbidden Type = "FORBIDDEN"

	// TypeNotFound represents resource not found errors
	TypeNotFound Type = "NOT_FOUND"

	// TypeConflict represents uniqueness or state conflicts
	TypeConflict Type = "CONFLICT"

	// TypeBusiness represents business rule violations
	TypeBusiness Type = "BUSINESS"

	// TypeExternal represents failures from external collaborators
	TypeExternal Type = "EXTERNAL"
)

// String returns the string representation of the error type
func (t Type) String() string {
	return string(t)
}

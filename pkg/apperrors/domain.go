package apperrors

import (
	"fmt"
	"net/http"
)

/*
Predeclared errors and factories for the file-sharing domain.

Taxonomy:
  - quota errors reject an upload before any task is created;
  - protocol errors reject one offending operation and leave task state alone;
  - integrity errors surface to the caller and force the task into a terminal
    failed state, so a fresh announce is required.
*/

// --- Quota ---

// ErrFileTooLarge - candidate file exceeds the user's single-file limit.
var ErrFileTooLarge = New(
	CodeLimitExceeded,
	"quota",
	"File size exceeds the allowed limit",
	http.StatusRequestEntityTooLarge,
)

// ErrTotalSizeExceeded - upload would push cumulative stored bytes past the quota.
var ErrTotalSizeExceeded = New(
	CodeLimitExceeded,
	"quota",
	"Upload would exceed the total storage quota",
	http.StatusForbidden,
)

// ErrFileCountExceeded - user already holds the maximum number of files.
var ErrFileCountExceeded = New(
	CodeLimitExceeded,
	"quota",
	"File count limit reached",
	http.StatusForbidden,
)

// --- Upload protocol ---

// ErrTaskNotFound - task does not exist or belongs to another user.
var ErrTaskNotFound = New(
	CodeNotFound,
	"upload",
	"Upload task not found",
	http.StatusNotFound,
)

// ErrTaskNotOpen - task already completed, failed, or being assembled.
var ErrTaskNotOpen = New(
	CodeInvalidStatus,
	"upload",
	"Upload task is not open for this operation",
	http.StatusBadRequest,
)

// ErrInvalidChunkIndex - index is negative or past the task's chunk count.
var ErrInvalidChunkIndex = New(
	CodeValidationFailed,
	"upload",
	"Chunk index out of range",
	http.StatusBadRequest,
)

// ErrChunkSizeMismatch builds the error for a chunk whose byte length differs
// from the geometry declared at announce time.
func ErrChunkSizeMismatch(expected, actual int64) *AppError {
	return New(
		CodeValidationFailed,
		"upload",
		fmt.Sprintf("Chunk size mismatch: expected %d bytes, got %d", expected, actual),
		http.StatusBadRequest,
	)
}

// --- Integrity ---

// ErrUploadIncomplete reports how many chunks have been received versus
// expected. The task stays open so the client can resume.
func ErrUploadIncomplete(received, expected int64) *AppError {
	return New(
		CodeConflict,
		"upload",
		fmt.Sprintf("Upload incomplete: %d/%d chunks received", received, expected),
		http.StatusBadRequest,
	).WithDetails(map[string]int64{"received": received, "expected": expected})
}

// ErrStagingMissing - the staging area for the task cannot be located.
var ErrStagingMissing = New(
	CodeIntegrityFailure,
	"upload",
	"Staging area for upload task is missing",
	http.StatusInternalServerError,
)

// ErrChunkMissing builds the error for a chunk recorded in the database but
// physically absent from staging.
func ErrChunkMissing(index int64) *AppError {
	return New(
		CodeIntegrityFailure,
		"upload",
		fmt.Sprintf("Chunk %d is recorded but missing from staging", index),
		http.StatusInternalServerError,
	)
}

// ErrAssembledSizeMismatch builds the error for an assembled artifact whose
// length differs from the declared file size.
func ErrAssembledSizeMismatch(expected, actual int64) *AppError {
	return New(
		CodeIntegrityFailure,
		"upload",
		fmt.Sprintf("Assembled size mismatch: expected %d bytes, got %d", expected, actual),
		http.StatusInternalServerError,
	)
}

// --- Files ---

// ErrFileNotFound - file record does not exist.
var ErrFileNotFound = New(
	CodeNotFound,
	"file",
	"File not found",
	http.StatusNotFound,
)

// ErrFileExpired - file's expiry timestamp has passed.
var ErrFileExpired = New(
	CodeForbidden,
	"file",
	"File has expired",
	http.StatusForbidden,
)

// ErrFileAccessDenied - share settings do not grant the caller access.
var ErrFileAccessDenied = New(
	CodeForbidden,
	"file",
	"Access to this file is denied",
	http.StatusForbidden,
)

// ErrFilePasswordRequired - file is protected by an access password.
var ErrFilePasswordRequired = New(
	CodeForbidden,
	"file",
	"Access password required",
	http.StatusForbidden,
)

// ErrDownloadNotAllowed - share settings disable downloading.
var ErrDownloadNotAllowed = New(
	CodeForbidden,
	"file",
	"Downloading this file is not allowed",
	http.StatusForbidden,
)

// --- Auth & users ---

// ErrInvalidCredentials - wrong username or password.
var ErrInvalidCredentials = New(
	CodeInvalidCredentials,
	"auth",
	"Invalid username or password",
	http.StatusUnauthorized,
)

// ErrUsernameTaken - username already registered.
var ErrUsernameTaken = New(
	CodeAlreadyExists,
	"auth",
	"Username already in use",
	http.StatusConflict,
)

// ErrRegistrationDisabled - site configuration forbids self-registration.
var ErrRegistrationDisabled = New(
	CodeForbidden,
	"auth",
	"Registration is currently disabled",
	http.StatusForbidden,
)

// ErrInvalidToken - malformed or expired JWT.
var ErrInvalidToken = New(
	CodeInvalidToken,
	"auth",
	"Invalid or expired token",
	http.StatusUnauthorized,
)

// ErrLastAdmin - the only remaining administrator cannot be deleted.
var ErrLastAdmin = New(
	CodeInvalidOperation,
	"user",
	"The last administrator cannot be deleted",
	http.StatusConflict,
)

// ErrUserNotFound - user record does not exist.
var ErrUserNotFound = New(
	CodeNotFound,
	"user",
	"User not found",
	http.StatusNotFound,
)

// ErrNotFound wraps a repository not-found error into an AppError.
func ErrNotFound(err error) *AppError {
	return Wrap(err, CodeNotFound, "resource", "Resource not found", http.StatusNotFound)
}

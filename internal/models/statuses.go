package models

type UserRole string
type ShareType string
type TaskStatus string

const (
	UserRoleAdmin UserRole = "admin"
	UserRoleUser  UserRole = "user"
	UserRoleGuest UserRole = "guest"

	// Share visibility modes.
	SharePublic         ShareType = "public"          // visible to everyone
	ShareLinkOnly       ShareType = "link_only"       // visible to anyone holding the link
	ShareSpecifiedUsers ShareType = "specified_users" // visible to allow-listed usernames

	// Upload task lifecycle. "assembling" is the in-progress marker claimed
	// by compare-and-set when a completion run starts; uploading→assembling
	// is the only transition a second concurrent completion can lose.
	TaskStatusUploading  TaskStatus = "uploading"
	TaskStatusAssembling TaskStatus = "assembling"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// IsTerminal reports whether the status permits no further transitions.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

package services

import (
	"encoding/json"
	"strings"
	"time"

	"fileshare/internal/models"
	"fileshare/internal/repositories"
	"fileshare/internal/services/dto"
	"fileshare/pkg/apperrors"

	"gorm.io/datatypes"
)

const customExpiryLayout = "2006-01-02 15:04"

// resolveExpiry converts an expiry policy into an absolute timestamp at the
// moment of announcement. An unparseable custom timestamp yields no expiry
// rather than an error; a cosmetic input mistake must not block the upload.
func resolveExpiry(opts *dto.ShareOptions, now time.Time) *time.Time {
	if opts == nil {
		return nil
	}
	switch opts.ExpiryType {
	case "hours":
		if opts.ExpiryHours > 0 {
			t := now.Add(time.Duration(opts.ExpiryHours) * time.Hour)
			return &t
		}
	case "custom":
		if opts.CustomExpiry != "" {
			if t, err := time.Parse(customExpiryLayout, opts.CustomExpiry); err == nil {
				return &t
			}
		}
	}
	return nil
}

// resolveAllowList splits a newline-separated username list into the set of
// trimmed non-empty entries. An empty result means owner and admin only.
func resolveAllowList(raw string) []string {
	var users []string
	for _, line := range strings.Split(raw, "\n") {
		if u := strings.TrimSpace(line); u != "" {
			users = append(users, u)
		}
	}
	return users
}

// validateAllowedUsers checks that every allow-listed username names an
// existing account, so a specified_users share cannot be created pointing at
// nobody.
func validateAllowedUsers(userRepo repositories.UserRepository, raw string) error {
	names := resolveAllowList(raw)
	if len(names) == 0 {
		return nil
	}

	found, err := userRepo.FindByUsernames(names)
	if err != nil {
		return apperrors.InternalError(err)
	}
	known := make(map[string]struct{}, len(found))
	for i := range found {
		known[found[i].Username] = struct{}{}
	}

	var unknown []string
	for _, name := range names {
		if _, ok := known[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return apperrors.NewBadRequestError("Unknown usernames in allow list: " + strings.Join(unknown, ", "))
	}
	return nil
}

// applyShareOptions fills share metadata on a file record from the options
// declared at announce time. Defaults match a fresh chunked upload: link-only
// visibility, viewable and downloadable, not editable.
func applyShareOptions(file *models.File, opts *dto.ShareOptions, expiry *time.Time) {
	file.ShareType = models.ShareLinkOnly
	file.AllowView = true
	file.AllowDownload = true
	file.AllowEdit = false
	file.ExpiryTime = expiry

	if opts == nil {
		file.IsPublic = false
		return
	}

	if opts.ShareType != "" {
		file.ShareType = models.ShareType(opts.ShareType)
	}
	file.IsPublic = file.ShareType == models.SharePublic
	if opts.AllowView != nil {
		file.AllowView = *opts.AllowView
	}
	if opts.AllowDownload != nil {
		file.AllowDownload = *opts.AllowDownload
	}
	if opts.AllowEdit != nil {
		file.AllowEdit = *opts.AllowEdit
	}
	file.Password = opts.Password
	file.Description = opts.Description
	file.Tags = opts.Tags

	if file.ShareType == models.ShareSpecifiedUsers {
		if users := resolveAllowList(opts.AllowedUsers); users != nil {
			if raw, err := json.Marshal(users); err == nil {
				file.AllowedUsers = datatypes.JSON(raw)
			}
		}
	}
}

// sanitizeFilename keeps letters, digits, dots, dashes and underscores and
// replaces everything else, so the stored name is safe as a path component.
func sanitizeFilename(name string) string {
	// strip any directory part first
	if idx := strings.LastIndexAny(name, "/\\"); idx >= 0 {
		name = name[idx+1:]
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		out = "file"
	}
	return out
}

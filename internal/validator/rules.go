package validator

import (
	"log"

	"fileshare/internal/models"

	"github.com/go-playground/validator/v10"
)

// registerCustomRules installs domain value validations on the instance.
func registerCustomRules(v *validator.Validate) {
	mustRegister := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			log.Fatalf("failed to register custom validation tag '%s': %v", tag, err)
		}
	}

	mustRegister("is-user-role", validateUserRole)
	mustRegister("is-share-type", validateShareType)
	mustRegister("is-expire-mode", validateExpireMode)
}

func validateUserRole(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // empty is handled by 'required'
	}
	switch models.UserRole(value) {
	case models.UserRoleAdmin, models.UserRoleUser, models.UserRoleGuest:
		return true
	default:
		return false
	}
}

func validateShareType(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	switch models.ShareType(value) {
	case models.SharePublic, models.ShareLinkOnly, models.ShareSpecifiedUsers:
		return true
	default:
		return false
	}
}

func validateExpireMode(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	switch value {
	case "never", "hours", "custom":
		return true
	default:
		return false
	}
}

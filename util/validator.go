package util

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	validate *validator.Validate

	rgxSlackID = regexp.MustCompile(`^[A-Z0-9]{2,}$`)
)

func init() {
	validate = validator.New()
	validate.RegisterValidation("slackid", validateSlackID)
}

// Slack team, channel and user ids are upper-case alphanumerics.
func validateSlackID(fl validator.FieldLevel) bool {
	return rgxSlackID.MatchString(fl.Field().String())
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

package binder

import (
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/mankai/mankai-server/pkg/models"
)

// genreValidator accepts only the fixed genre vocabulary.
func genreValidator(fl validator.FieldLevel) bool {
	return models.Genre(fl.Field().String()).Valid()
}

// genreFilterValidator additionally accepts the "all" wildcard used by list
// queries.
func genreFilterValidator(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return value == models.GenreAll || models.Genre(value).Valid()
}

// statusValidator accepts the storable statuses, i.e. everything but "any".
func statusValidator(fl validator.FieldLevel) bool {
	s, ok := models.ParseStatus(fl.Field().String())
	return ok && s != models.StatusAny
}

const (
	minPasswordLength = 8
	// bcrypt ignores everything past 72 bytes.
	maxPasswordLength = 72
)

// passwordValidator requires 8-72 bytes with at least one letter and one
// digit.
func passwordValidator(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if len(value) < minPasswordLength || len(value) > maxPasswordLength {
		return false
	}
	var letter, digit bool
	for _, r := range value {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return letter && digit
}

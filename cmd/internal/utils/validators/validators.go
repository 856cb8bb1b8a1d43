package validators

import (
	"slotwise/cmd/internal/domain/entity"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// Register installs every custom rule used by request structs.
func Register(validate *validator.Validate) {
	_ = validate.RegisterValidation("hasupper", HasUpper)
	_ = validate.RegisterValidation("haslower", HasLower)
	_ = validate.RegisterValidation("hasdigit", HasDigit)
	_ = validate.RegisterValidation("hasspecial", HasSpecial)
	_ = validate.RegisterValidation("nodupes", NoDupes)
	_ = validate.RegisterValidation("nospaces", NoWhiteSpaces)
	_ = validate.RegisterValidation("iso8601", IsIso8601)
	_ = validate.RegisterValidation("priority", IsPriority)
	_ = validate.RegisterValidation("role", IsRole)
}

func HasUpper(fl validator.FieldLevel) bool {
	return strings.IndexFunc(fl.Field().String(), unicode.IsUpper) >= 0
}

func HasLower(fl validator.FieldLevel) bool {
	return strings.IndexFunc(fl.Field().String(), unicode.IsLower) >= 0
}

func HasDigit(fl validator.FieldLevel) bool {
	return strings.IndexFunc(fl.Field().String(), unicode.IsDigit) >= 0
}

func HasSpecial(fl validator.FieldLevel) bool {
	return strings.IndexFunc(fl.Field().String(), func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r)
	}) >= 0
}

func NoWhiteSpaces(fl validator.FieldLevel) bool {
	return strings.IndexFunc(fl.Field().String(), unicode.IsSpace) < 0
}

// NoDupes works on slices of ints or strings.
func NoDupes(fl validator.FieldLevel) bool {
	field := fl.Field()
	seen := make(map[any]struct{}, field.Len())
	for i := 0; i < field.Len(); i++ {
		v := field.Index(i).Interface()
		if _, ok := seen[v]; ok {
			return false
		}
		seen[v] = struct{}{}
	}
	return true
}

func IsIso8601(fl validator.FieldLevel) bool {
	_, err := time.Parse(time.RFC3339, fl.Field().String())
	return err == nil
}

// IsPriority accepts an empty value so the field can stay optional.
func IsPriority(fl validator.FieldLevel) bool {
	raw := fl.Field().String()
	return raw == "" || entity.Priority(raw).IsValid()
}

func IsRole(fl validator.FieldLevel) bool {
	return entity.Role(fl.Field().String()).IsValid()
}

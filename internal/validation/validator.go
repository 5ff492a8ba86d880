// Package validation holds the go-playground validator setup shared by the
// HTTP binding layer and the fixture loader.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)
	slugPattern     = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)
	hexColorPattern = regexp.MustCompile(`^#([A-Fa-f0-9]{6}|[A-Fa-f0-9]{3})$`)
)

var (
	instance *validator.Validate
	once     sync.Once
	ginOnce  sync.Once
	ginErr   error
)

// RegisterRules adds the custom username, slug and hexcolor rules and reports
// field names by their json tag
func RegisterRules(v *validator.Validate) error {
	v.RegisterTagNameFunc(jsonName)

	rules := map[string]validator.Func{
		"username": matches(usernamePattern),
		"slug":     matches(slugPattern),
		"hexcolor": matches(hexColorPattern),
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("failed to register %s rule: %w", tag, err)
		}
	}
	return nil
}

// Validator returns the package validator. It reads `binding` tags like gin does.
func Validator() *validator.Validate {
	once.Do(func() {
		v := validator.New()
		v.SetTagName("binding")
		// the built-in rules cannot fail to register
		_ = RegisterRules(v)
		instance = v
	})
	return instance
}

// Struct validates s against its binding tags
func Struct(s interface{}) error {
	return Validator().Struct(s)
}

// RegisterGinRules installs the custom rules on gin's default binding engine
func RegisterGinRules() error {
	ginOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			ginErr = fmt.Errorf("unexpected binding engine %T", binding.Validator.Engine())
			return
		}
		ginErr = RegisterRules(v)
	})
	return ginErr
}

// FieldErrors turns validator errors into json field -> message pairs.
// It returns nil when err does not come from the validator.
func FieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if _, seen := fields[fe.Field()]; seen {
			continue
		}
		fields[fe.Field()] = message(fe)
	}
	return fields
}

func message(fe validator.FieldError) string {
	field, param := fe.Field(), fe.Param()
	unit := ""
	if fe.Kind() == reflect.String {
		unit = " characters"
	}

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s%s", field, param, unit)
	case "max":
		return fmt.Sprintf("%s must be at most %s%s", field, param, unit)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "username":
		return fmt.Sprintf("%s may contain only letters, digits and @/./+/-/_", field)
	case "slug":
		return fmt.Sprintf("%s may contain only latin letters, digits, hyphens and underscores", field)
	case "hexcolor":
		return fmt.Sprintf("%s must be a hex color such as #49B64E", field)
	default:
		return fmt.Sprintf("%s failed the %s rule", field, fe.Tag())
	}
}

func matches(pattern *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return pattern.MatchString(fl.Field().String())
	}
}

func jsonName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return fld.Name
	}
	return name
}

// Package validation registers the custom binding tags used by request
// structs and turns validator errors into client-facing messages.
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
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,30}$`)
	hashtagPattern  = regexp.MustCompile(`^#?\w{1,100}$`)
	registerOnce    sync.Once
	registerErr     error
)

// Register installs the custom tags on gin's default validator. It is safe
// to call more than once.
func Register() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerErr = errors.New("gin validator engine is not go-playground/validator")
			return
		}
		registerErr = Configure(v)
	})
	return registerErr
}

// Configure adds the custom tags to v and reports fields by their JSON name.
func Configure(v *validator.Validate) error {
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	if err := v.RegisterValidation("objectid", func(fl validator.FieldLevel) bool {
		return primitive.IsValidObjectID(fl.Field().String())
	}); err != nil {
		return err
	}
	if err := v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	}); err != nil {
		return err
	}
	return v.RegisterValidation("hashtag", func(fl validator.FieldLevel) bool {
		return hashtagPattern.MatchString(fl.Field().String())
	})
}

var messages = map[string]string{
	"required": "%s is required",
	"email":    "%s must be a valid email address",
	"objectid": "%s must be a valid id",
	"username": "%s must be 3-30 letters, digits or underscores",
	"hashtag":  "%s must be a hashtag",
	"url":      "%s must be a valid URL",
	"oneof":    "%s must be one of: %s",
	"min":      "%s must be at least %s characters",
	"max":      "%s must be at most %s",
}

// Message returns a readable description of the first problem in err.
// Non-validation errors, such as malformed JSON, yield fallback.
func Message(err error, fallback string) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fallback
	}
	fe := verrs[0]
	tmpl, ok := messages[fe.Tag()]
	if !ok {
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
	if strings.Count(tmpl, "%s") == 2 {
		return fmt.Sprintf(tmpl, fe.Field(), fe.Param())
	}
	return fmt.Sprintf(tmpl, fe.Field())
}

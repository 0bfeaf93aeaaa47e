package main

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"

	playground "github.com/go-playground/validator/v10"
)

var structValidator = newStructValidator()

func newStructValidator() *playground.Validate {
	v := playground.New(playground.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type validator struct {
	errors map[string]string
}

func newValidator() *validator {
	return &validator{
		errors: make(map[string]string),
	}
}

func (v *validator) hasErrors() bool {
	return len(v.errors) != 0
}

func (v *validator) checkCond(cond bool, key, msg string) {
	if cond {
		return
	}
	if _, ok := v.errors[key]; !ok {
		v.errors[key] = msg
	}
}

// checkStruct runs the `validate` tags of s and records the first failure of
// each field.
func (v *validator) checkStruct(s any) {
	err := structValidator.Struct(s)
	if err == nil {
		return
	}
	var fieldErrs playground.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		v.checkCond(false, "request", err.Error())
		return
	}
	for _, fe := range fieldErrs {
		v.checkCond(false, fe.Field(), describe(fe))
	}
}

func describe(fe playground.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "must be provided"
	case "email":
		return "must be a valid email address"
	case "max":
		return fmt.Sprintf("must be at most %s characters long", fe.Param())
	case "oneof":
		return "must be one of " + strings.Join(strings.Fields(fe.Param()), ", ")
	default:
		return fmt.Sprintf("failed the %q rule", fe.Tag())
	}
}

func (v *validator) checkPassword(password string) {
	v.checkCond(password != "", "password", "must be provided")
	v.checkCond(len(password) <= 72, "password", "must be at most 72 bytes long")
}

func (v *validator) checkTitle(title string) {
	v.checkCond(strings.TrimSpace(title) != "", "title", "must be provided")
	v.checkCond(utf8.RuneCountInString(title) <= 100, "title", "must be at most 100 characters long")
}

func (v *validator) checkStatus(status taskStatus) {
	v.checkCond(status.valid(), "status", "must be one of todo, in_progress, done")
}

// Package validate checks domain inputs before any write path runs.
// Rules live in `validate` struct tags on model types; violations are
// reported as a single errs.ValidationError listing every message.
package validate

import (
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator"

	"github.com/and161185/formsync/internal/errs"
	"github.com/and161185/formsync/internal/model"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// FieldTypes lists the accepted field kinds in display order.
var FieldTypes = []model.FieldType{
	model.FieldShortText, model.FieldLongText, model.FieldSingleChoiceList, model.FieldSingleChoice,
	model.FieldMultipleChoice, model.FieldDate, model.FieldNumber, model.FieldEmail,
}

// FormStatuses lists the accepted form states.
var FormStatuses = []model.FormStatus{model.FormDraft, model.FormPublished, model.FormClosed}

// Validator wraps a configured go-playground validator.
type Validator struct {
	v *validator.Validate
}

// New registers the domain rules and returns a ready validator.
func New() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	rules := map[string]validator.Func{
		"notblank":   notBlank,
		"fieldtype":  fieldType,
		"formstatus": formStatus,
		"isodate":    isoDate,
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("register %s: %v", tag, err))
		}
	}
	return &Validator{v: v}
}

// Struct validates s against its tags.
func (x *Validator) Struct(s any) error {
	err := x.v.Struct(s)
	if err == nil {
		return nil
	}
	fes, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(fes))
	for _, fe := range fes {
		msgs = append(msgs, message(fe))
	}
	return errs.NewValidation(msgs...)
}

// Form validates a form header, including the date range.
func (x *Validator) Form(f model.Form) error {
	err := x.Struct(f)
	if f.StartDate == nil || f.EndDate == nil {
		return err
	}
	start, e1 := time.Parse(DateLayout, *f.StartDate)
	end, e2 := time.Parse(DateLayout, *f.EndDate)
	if e1 != nil || e2 != nil || !end.Before(start) {
		return err
	}
	return merge(err, "endDate must not be before startDate")
}

const maxOptionText = 200

// Field validates a field and, for choice types, its options.
func (x *Validator) Field(f model.Field) error {
	err := x.Struct(f)
	if f.MinLength != nil && f.MaxLength != nil && *f.MinLength > *f.MaxLength {
		err = merge(err, "minLength must not exceed maxLength")
	}
	if f.MinValue != nil && f.MaxValue != nil && *f.MinValue > *f.MaxValue {
		err = merge(err, "minValue must not exceed maxValue")
	}
	if !f.Type.IsChoice() {
		return err
	}
	for i, o := range f.Options {
		switch {
		case strings.TrimSpace(o.Text) == "":
			err = merge(err, fmt.Sprintf("options[%d].text is required", i))
		case utf8.RuneCountInString(o.Text) > maxOptionText:
			err = merge(err, fmt.Sprintf("options[%d].text must be at most %d characters", i, maxOptionText))
		}
	}
	return err
}

func merge(err error, msg string) error {
	if err == nil {
		return errs.NewValidation(msg)
	}
	if ve, ok := err.(*errs.ValidationError); ok {
		ve.Messages = append(ve.Messages, msg)
		return ve
	}
	return err
}

func message(fe validator.FieldError) string {
	name := fe.Field()
	switch fe.Tag() {
	case "required", "notblank":
		return name + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", name, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must not be negative", name)
	case "email":
		return name + " must be a valid email"
	case "fieldtype":
		return fmt.Sprintf("%s must be one of: %s", name, join(FieldTypes))
	case "formstatus":
		return fmt.Sprintf("%s must be one of: %s", name, join(FormStatuses))
	case "isodate":
		return name + " must be a YYYY-MM-DD date"
	default:
		return fmt.Sprintf("%s failed %s", name, fe.Tag())
	}
}

func join[T ~string](vals []T) string {
	ss := make([]string, len(vals))
	for i, v := range vals {
		ss[i] = string(v)
	}
	return strings.Join(ss, ", ")
}

func notBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func fieldType(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	for _, t := range FieldTypes {
		if string(t) == s {
			return true
		}
	}
	return false
}

func formStatus(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	for _, st := range FormStatuses {
		if string(st) == s {
			return true
		}
	}
	return false
}

func isoDate(fl validator.FieldLevel) bool {
	_, err := time.Parse(DateLayout, fl.Field().String())
	return err == nil
}

package apperr

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Envelope is the body of every error response.
type Envelope struct {
	IsSuccessful bool                `json:"isSuccessful"`
	Errors       map[string][]string `json:"errors"`
	Entries      map[string]any      `json:"entries,omitempty"`
}

// Success is the body of form-style write responses.
type Success struct {
	IsSuccessful bool           `json:"isSuccessful"`
	Entries      map[string]any `json:"entries"`
}

// OK writes a form-style success body.
func OK(c *gin.Context, status int, entries map[string]any) {
	if entries == nil {
		entries = map[string]any{}
	}
	c.JSON(status, Success{IsSuccessful: true, Entries: entries})
}

// Write answers a read request: not-found maps to 404.
func Write(c *gin.Context, err error) {
	write(c, err, http.StatusNotFound)
}

// WriteForm answers a write request: not-found is reported as a 400 field error.
func WriteForm(c *gin.Context, err error) {
	write(c, err, http.StatusBadRequest)
}

func write(c *gin.Context, err error, notFoundStatus int) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		c.JSON(http.StatusBadRequest, Envelope{Errors: bindingErrors(verrs)})
		return
	}

	appErr, ok := As(err)
	if !ok {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, Envelope{
			Errors: map[string][]string{GeneralField: {"An unexpected error occurred."}},
		})
		return
	}

	status := http.StatusInternalServerError
	switch appErr.Kind {
	case KindNotFound:
		status = notFoundStatus
	case KindValidation, KindState:
		status = http.StatusBadRequest
	case KindConflict:
		status = http.StatusConflict
	case KindUnauthorized:
		status = http.StatusUnauthorized
	case KindForbidden:
		status = http.StatusForbidden
	}

	errs := map[string][]string{}
	for _, e := range append([]*Error{appErr}, appErr.Others...) {
		errs[e.Field] = append(errs[e.Field], e.Message)
	}
	c.JSON(status, Envelope{Errors: errs, Entries: appErr.Entries})
}

// BindError answers a request whose body or query failed to bind.
func BindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		c.JSON(http.StatusBadRequest, Envelope{Errors: bindingErrors(verrs)})
		return
	}
	c.JSON(http.StatusBadRequest, Envelope{
		Errors: map[string][]string{GeneralField: {"Malformed request: " + err.Error()}},
	})
}

func bindingErrors(verrs validator.ValidationErrors) map[string][]string {
	out := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		field := lowerFirst(fe.Field())
		out[field] = append(out[field], message(fe))
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "The " + fe.Field() + " field is required."
	case "min", "gte":
		return "The " + fe.Field() + " field must be at least " + fe.Param() + "."
	case "max", "lte":
		return "The " + fe.Field() + " field must be at most " + fe.Param() + "."
	case "len":
		return "The " + fe.Field() + " field must have length " + fe.Param() + "."
	case "email":
		return "The " + fe.Field() + " field is not a valid e-mail address."
	case "oneof":
		return "The " + fe.Field() + " field must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ") + "."
	default:
		return "The " + fe.Field() + " field is invalid."
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

// UseJSONFieldNames makes gin's validator report JSON/form tag names, so binding
// errors are keyed the way clients send the fields.
func UseJSONFieldNames() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "form", "uri"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return f.Name
	})
}

package common

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

// GenericEchoValidator plugs go-playground validation into echo's c.Validate
type GenericEchoValidator struct {
	Validator *validator.Validate
}

func NewGenericEchoValidator() *GenericEchoValidator {
	return &GenericEchoValidator{Validator: validator.New()}
}

var defaultValidate = validator.New()

func (gv *GenericEchoValidator) Validate(i interface{}) error {
	v := gv.Validator
	if v == nil {
		v = defaultValidate
	}
	err := v.Struct(i)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) {
		problems := make([]string, 0, len(fieldErrors))
		for _, fe := range fieldErrors {
			problem := fmt.Sprintf("%s failed '%s'", strings.ToLower(fe.Field()), fe.Tag())
			if fe.Param() != "" {
				problem += "=" + fe.Param()
			}
			problems = append(problems, problem)
		}
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request: "+strings.Join(problems, ", "))
	}
	return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("received invalid request body: %v", err))
}

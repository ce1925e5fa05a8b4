package handlers

import (
	"errors"

	"github.com/SscSPs/cbr_rates/internal/core/domain"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// registerValidators adds the date tags used by request DTOs to gin's validator.
func registerValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin validator engine is not validator/v10")
	}
	if err := v.RegisterValidation("cbrdate", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseDate(fl.Field().String())
		return err == nil
	}); err != nil {
		return err
	}
	return v.RegisterValidation("cbrperiod", func(fl validator.FieldLevel) bool {
		_, _, err := domain.ParsePeriod(fl.Field().String())
		return err == nil
	})
}

package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/yeremiapane/restaurant-queue/utils"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// JoinRequest is what a customer submits to join the queue.
type JoinRequest struct {
	Name      string `json:"name" validate:"required,max=255"`
	Phone     string `json:"phone" validate:"required,len=10,number"`
	PartySize int    `json:"partySize" validate:"min=1"`
}

func (r *JoinRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Phone = strings.TrimSpace(r.Phone)
}

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return utils.NewValidationError("%v", err)
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return utils.NewValidationError("%s", strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch {
	case field == "Phone" && (fe.Tag() == "len" || fe.Tag() == "number"):
		return "phone number must be exactly 10 digits"
	case field == "PartySize":
		return "party size must be at least 1"
	case fe.Tag() == "required":
		return fmt.Sprintf("%s is required", strings.ToLower(field))
	case fe.Tag() == "max":
		return fmt.Sprintf("%s must be at most %s characters", strings.ToLower(field), fe.Param())
	}
	return fmt.Sprintf("%s is invalid", strings.ToLower(field))
}

package signal

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dkeye/Circles/internal/domain"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

var (
	errBadJSON     = fmt.Errorf("%w: malformed json", domain.ErrInvalidInput)
	errUnknownType = fmt.Errorf("%w: unknown event type", domain.ErrInvalidInput)
)

type locationPayload struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng float64 `json:"lng" validate:"gte=-180,lte=180"`
}

func (p *locationPayload) toDomain() *domain.Location {
	if p == nil {
		return nil
	}
	return &domain.Location{Lat: p.Lat, Lng: p.Lng}
}

type createPayload struct {
	Name     string           `json:"name" validate:"required,max=36"`
	Location *locationPayload `json:"location"`
}

type userDataPayload struct {
	Name     string           `json:"name" validate:"required,max=36"`
	Location *locationPayload `json:"location"`
}

type joinPayload struct {
	CircleCode string          `json:"circleCode" validate:"required,len=6,alphanum,uppercase"`
	UserData   userDataPayload `json:"userData"`
}

type updateLocationPayload struct {
	Lat *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lng *float64 `json:"lng" validate:"required,gte=-180,lte=180"`
}

// normalizer is implemented by payloads that need trimming before validation.
type normalizer interface {
	normalize()
}

func (p *createPayload) normalize() { p.Name = strings.TrimSpace(p.Name) }

func (p *joinPayload) normalize() {
	p.CircleCode = strings.ToUpper(strings.TrimSpace(p.CircleCode))
	p.UserData.Name = strings.TrimSpace(p.UserData.Name)
}

// decode unmarshals data into v, normalizes it and runs the struct tags.
// Failures come back as domain.ErrInvalidInput descendants.
func decode(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrBadPayload, err)
	}
	if n, ok := v.(normalizer); ok {
		n.normalize()
	}
	if err := validate.Struct(v); err != nil {
		return toDomainErr(err)
	}
	return nil
}

func toDomainErr(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%w: %v", domain.ErrBadPayload, err)
	}
	fe := verrs[0]
	switch fe.Field() {
	case "Name":
		if fe.Tag() == "max" {
			return domain.ErrNameTooLong
		}
		return domain.ErrNameEmpty
	case "CircleCode":
		return domain.ErrInvalidCode
	case "Lat", "Lng":
		return domain.ErrInvalidLocation
	}
	return fmt.Errorf("%w: %s", domain.ErrBadPayload, fe.Field())
}

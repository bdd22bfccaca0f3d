package resolver

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"reflect"
	"strconv"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// Query parameter names accepted on the reservation endpoint.
const (
	ParamUserID    = "userId"
	ParamLongitude = "longitude"
	ParamLatitude  = "latitude"
	ParamID        = "id"
	ParamState     = "state"
)

// ErrValidationGap is returned when the supplied fields match no operation:
// none of the create, update, id or user combinations apply and the
// proximity fallback is missing a coordinate.
var ErrValidationGap = errors.New("validation gap")

// FieldError reports a present field whose value cannot be used.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Request is one of CreateRequest, UpdateStateRequest, GetByIDRequest,
// GetByUserRequest or ProximityRequest.
type Request interface {
	operation() Operation
}

// CreateRequest creates a reservation in the "wait" state.
type CreateRequest struct {
	UserID    string  `validate:"required,max=30"`
	Longitude float64 `validate:"min=-180,max=180"`
	Latitude  float64 `validate:"min=-90,max=90"`
}

// UpdateStateRequest moves a reservation to a new state.
type UpdateStateRequest struct {
	ID    int64
	State string `validate:"required,max=10"`
}

// GetByIDRequest looks a reservation up by its identifier.
type GetByIDRequest struct {
	ID int64
}

// GetByUserRequest lists the reservations of one user.
type GetByUserRequest struct {
	UserID string `validate:"required,max=30"`
}

// ProximityRequest finds a waiting reservation near a coordinate.
type ProximityRequest struct {
	Longitude float64 `validate:"min=-180,max=180"`
	Latitude  float64 `validate:"min=-90,max=90"`
}

func (CreateRequest) operation() Operation      { return OperationCreate }
func (UpdateStateRequest) operation() Operation { return OperationUpdateState }
func (GetByIDRequest) operation() Operation     { return OperationGetByID }
func (GetByUserRequest) operation() Operation   { return OperationGetByUserID }
func (ProximityRequest) operation() Operation   { return OperationGetByProximity }

var validate = validator.New()

// ParseQuery turns a query string into exactly one request variant.  The
// choice depends only on which keys are present, tested in a fixed order
// where the first match wins:
//
//  1. userId, longitude and latitude -> create
//  2. id and state                   -> update state
//  3. id                             -> get by id
//  4. userId                         -> get by user
//  5. anything else                  -> proximity, which needs both coordinates
//
// A key with an empty value counts as present.  Values are parsed and
// validated only after the variant is chosen, so a malformed id in a
// create request is ignored.  Any integer is a usable id; one that was
// never assigned simply matches nothing.
func ParseQuery(q url.Values) (Request, error) {
	has := func(k string) bool {
		_, ok := q[k]
		return ok
	}

	var (
		req Request
		err error
	)
	switch {
	case has(ParamUserID) && has(ParamLongitude) && has(ParamLatitude):
		var r CreateRequest
		if r.UserID, err = parseText(q, ParamUserID); err != nil {
			return nil, err
		}
		if r.Longitude, err = parseFloat(q, ParamLongitude); err != nil {
			return nil, err
		}
		if r.Latitude, err = parseFloat(q, ParamLatitude); err != nil {
			return nil, err
		}
		req = r
	case has(ParamID) && has(ParamState):
		var r UpdateStateRequest
		if r.ID, err = parseID(q); err != nil {
			return nil, err
		}
		if r.State, err = parseText(q, ParamState); err != nil {
			return nil, err
		}
		req = r
	case has(ParamID):
		var r GetByIDRequest
		if r.ID, err = parseID(q); err != nil {
			return nil, err
		}
		req = r
	case has(ParamUserID):
		var r GetByUserRequest
		if r.UserID, err = parseText(q, ParamUserID); err != nil {
			return nil, err
		}
		req = r
	case has(ParamLongitude) && has(ParamLatitude):
		var r ProximityRequest
		if r.Longitude, err = parseFloat(q, ParamLongitude); err != nil {
			return nil, err
		}
		if r.Latitude, err = parseFloat(q, ParamLatitude); err != nil {
			return nil, err
		}
		req = r
	default:
		return nil, fmt.Errorf("%w: need longitude and latitude for a proximity lookup", ErrValidationGap)
	}

	if err := validateRequest(req); err != nil {
		return nil, err
	}
	return req, nil
}

// parseText returns a string value, which the store can only hold when it
// is valid UTF-8.
func parseText(q url.Values, key string) (string, error) {
	v := q.Get(key)
	if !utf8.ValidString(v) {
		return "", &FieldError{Field: key, Reason: "not valid UTF-8"}
	}
	return v, nil
}

func parseFloat(q url.Values, key string) (float64, error) {
	f, err := strconv.ParseFloat(q.Get(key), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &FieldError{Field: key, Reason: "not a number"}
	}
	return f, nil
}

func parseID(q url.Values) (int64, error) {
	id, err := strconv.ParseInt(q.Get(ParamID), 10, 64)
	if err != nil {
		return 0, &FieldError{Field: ParamID, Reason: "not an integer"}
	}
	return id, nil
}

// fieldParams maps struct fields to their query parameter names.
var fieldParams = map[string]string{
	"UserID":    ParamUserID,
	"Longitude": ParamLongitude,
	"Latitude":  ParamLatitude,
	"ID":        ParamID,
	"State":     ParamState,
}

func validateRequest(req Request) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &FieldError{Field: fieldParams[fe.Field()], Reason: reason(fe)}
	}
	return err
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "must not be empty"
	case "max":
		if fe.Kind() == reflect.String {
			return "longer than " + fe.Param() + " characters"
		}
		return "above " + fe.Param()
	case "min":
		return "below " + fe.Param()
	}
	return "failed " + fe.Tag()
}

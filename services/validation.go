package services

import (
	"reflect"
	"strings"

	apperrors "marketplace-service/errors"
	"marketplace-service/models"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validateStruct(s interface{}) error {
	if err := validate.Struct(s); err != nil {
		return apperrors.FromValidator(err)
	}
	return nil
}

// parseFieldID parses an id supplied in a request body.
func parseFieldID(field, value string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(value)
	if err != nil {
		return primitive.NilObjectID, apperrors.ValidationField(field, "must be a valid id")
	}
	return id, nil
}

// parsePathID parses an id from a URL. Malformed ids cannot exist, so they
// are reported as not found.
func parsePathID(value, what string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(value)
	if err != nil {
		return primitive.NilObjectID, apperrors.NotFound(what + " not found")
	}
	return id, nil
}

// actorID parses the caller's user id.
func actorID(actor models.Actor) (primitive.ObjectID, error) {
	if actor.IsAnonymous() {
		return primitive.NilObjectID, apperrors.Unauthorized("Authentication required")
	}
	id, err := primitive.ObjectIDFromHex(actor.UserID)
	if err != nil {
		return primitive.NilObjectID, apperrors.Unauthorized("Invalid session")
	}
	return id, nil
}

func trimmed(s string) string { return strings.TrimSpace(s) }

// cleanStrings trims entries and drops empty ones.
func cleanStrings(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

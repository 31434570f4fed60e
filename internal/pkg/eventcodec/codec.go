// Package eventcodec decodes and validates the typed payload carried by a
// domain event. Publishers and the client reconciler share it so both sides
// agree on what a well-formed event is.
package eventcodec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/storefront/realtime/internal/core/domain"
)

var validate = validator.New()

// Decode returns a pointer to the tag-specific payload of ev.
// Any failure is reported as *domain.MalformedEventError.
func Decode(ev domain.DomainEvent) (any, error) {
	p, err := domain.NewPayload(ev.Tag)
	if err != nil {
		return nil, &domain.MalformedEventError{Tag: ev.Tag, Reason: "unknown tag", Err: err}
	}
	if len(ev.Data) == 0 {
		return nil, &domain.MalformedEventError{Tag: ev.Tag, Reason: "missing data"}
	}

	dec := json.NewDecoder(bytes.NewReader(ev.Data))
	if err := dec.Decode(p); err != nil {
		return nil, &domain.MalformedEventError{Tag: ev.Tag, Reason: "decode payload", Err: err}
	}
	if err := Validate(p); err != nil {
		return nil, &domain.MalformedEventError{Tag: ev.Tag, Reason: err.Error(), Err: err}
	}
	return p, nil
}

// Validate checks the struct tags of a payload.
func Validate(p any) error {
	if err := validate.Struct(p); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			msgs := make([]string, 0, len(ve))
			for _, fe := range ve {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Namespace()), fe.Tag()))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}
	return nil
}

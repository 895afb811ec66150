package validation

import (
	"context"
	"errors"
	"testing"
)

type options struct {
	DeliveryMethod string `validate:"omitempty,oneof=pickup delivery"`
}

type command struct {
	SessionID string `validate:"required"`
	Date      string `validate:"required,datetime=2006-01-02"`
	Options   options
}

func TestValidate(t *testing.T) {
	v := New()
	if err := v.Validate(context.Background(), command{SessionID: "s", Date: "2025-03-01"}); err != nil {
		t.Fatalf("valid command rejected: %v", err)
	}
	err := v.Validate(context.Background(), command{Date: "03/01/2025", Options: options{DeliveryMethod: "drone"}})
	var verr *Error
	if !errors.As(err, &verr) || !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected validation error, got %v", err)
	}
	for _, field := range []string{"session_id", "date", "options.delivery_method"} {
		if _, ok := verr.Fields[field]; !ok {
			t.Fatalf("field %s missing from %v", field, verr.Fields)
		}
	}
}

func TestValidateIgnoresNonStructs(t *testing.T) {
	if err := New().Validate(context.Background(), "plain"); err != nil {
		t.Fatalf("non-struct rejected: %v", err)
	}
}

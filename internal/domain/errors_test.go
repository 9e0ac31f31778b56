package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsVersionConflict(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "version conflict error",
			err:  ErrOfferVersionConflict,
			want: true,
		},
		{
			name: "wrapped version conflict error",
			err:  fmt.Errorf("save offer: %w", ErrOfferVersionConflict),
			want: true,
		},
		{
			name: "other error",
			err:  ErrOfferNotFound,
			want: false,
		},
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsVersionConflict(tt.err); got != tt.want {
				t.Errorf("IsVersionConflict() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAsValidation(t *testing.T) {
	verr := NewValidationError(FieldError{Field: "margin", Message: "must be a positive number"})

	got, ok := AsValidation(fmt.Errorf("create offer: %w", verr))
	if !ok {
		t.Fatal("expected wrapped validation error to be recognized")
	}
	if len(got.Fields) != 1 || got.Fields[0].Field != "margin" {
		t.Fatalf("unexpected fields: %v", got.Fields)
	}

	if _, ok := AsValidation(errors.New("plain")); ok {
		t.Fatal("plain error must not be a validation error")
	}
}

func TestValidationErrorMessage(t *testing.T) {
	verr := NewValidationError(
		FieldError{Field: "minPkoin", Message: "must be a positive number"},
		FieldError{Field: "telegram", Message: "contact is required"},
	)

	msg := verr.Error()
	if msg != "validation error: minPkoin: must be a positive number; telegram: contact is required" {
		t.Fatalf("unexpected message: %s", msg)
	}
}

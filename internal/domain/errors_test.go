package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name            string
		err             error
		invalidArgument bool
		unknownEntity   bool
	}{
		{name: "unknown article", err: ErrUnknownArticle, unknownEntity: true},
		{name: "wrapped unknown order", err: fmt.Errorf("invoice: %w", ErrUnknownOrder), unknownEntity: true},
		{name: "invalid article", err: ErrInvalidArticle, invalidArgument: true},
		{name: "units invalid", err: ErrUnitsInvalid, invalidArgument: true},
		{name: "customer required", err: ErrCustomerRequired, invalidArgument: true},
		{name: "invalid entity", err: ErrInvalidEntity},
		{name: "joined", err: errors.Join(ErrStockNegative, errors.New("context")), invalidArgument: true},
		{name: "nil", err: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsInvalidArgument(tt.err); got != tt.invalidArgument {
				t.Errorf("IsInvalidArgument() = %v, want %v", got, tt.invalidArgument)
			}
			if got := IsUnknownEntity(tt.err); got != tt.unknownEntity {
				t.Errorf("IsUnknownEntity() = %v, want %v", got, tt.unknownEntity)
			}
		})
	}
}

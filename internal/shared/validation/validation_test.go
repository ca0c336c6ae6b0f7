package validation

import (
	"testing"

	"github.com/go-playground/validator/v10"
)

func TestValidTiming(t *testing.T) {
	if err := Register(); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	v := validator.New()
	if err := v.RegisterValidation("timing", validTiming); err != nil {
		t.Fatalf("register validation failed: %v", err)
	}

	type payload struct {
		Timing string `validate:"timing"`
	}

	valid := []string{"00:00", "09:15", "22:30", "23:59"}
	for _, s := range valid {
		if err := v.Struct(payload{Timing: s}); err != nil {
			t.Fatalf("%q should be a valid timing: %v", s, err)
		}
	}

	invalid := []string{"", "24:00", "9:5:0", "22.30", "half past ten"}
	for _, s := range invalid {
		if err := v.Struct(payload{Timing: s}); err == nil {
			t.Fatalf("%q should be rejected", s)
		}
	}
}

package validation

import (
	"errors"
	"testing"

	dErrors "smartgn/pkg/domain-errors"

	"github.com/stretchr/testify/assert"
)

type body struct {
	Email       string `validate:"required,email"`
	RequestType string `validate:"notblank,max=10"`
	NIC         string `validate:"omitempty,nic"`
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		in   body
		msg  string
	}{
		{"valid", body{Email: "a@example.lk", RequestType: "x"}, ""},
		{"missing email", body{RequestType: "x"}, "email is required"},
		{"bad email", body{Email: "nope", RequestType: "x"}, "email must be a valid email"},
		{"blank type", body{Email: "a@example.lk", RequestType: "   "}, "request_type must not be blank"},
		{"long type", body{Email: "a@example.lk", RequestType: "01234567890"}, "request_type must be at most 10 characters"},
		{"bad nic", body{Email: "a@example.lk", RequestType: "x", NIC: "12345"}, "nic must be a valid NIC number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.in)
			if tt.msg == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
			assert.EqualError(t, err, tt.msg)
		})
	}
}

func TestIsNIC(t *testing.T) {
	assert.True(t, IsNIC("912345678V"))
	assert.True(t, IsNIC("912345678x"))
	assert.True(t, IsNIC("199123456789"))
	assert.False(t, IsNIC("91234567V"))
	assert.False(t, IsNIC("1991234567890"))
	assert.False(t, IsNIC(""))
}

func TestErrorMessageForeignError(t *testing.T) {
	assert.Equal(t, "invalid request body", ErrorMessage(errors.New("x")))
}

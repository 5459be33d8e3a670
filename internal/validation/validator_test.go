package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type loginBody struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	Period   string `json:"period" validate:"omitempty,oneof=day week month"`
	Limit    int    `json:"limit" validate:"gte=0,lte=100"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name   string
		body   loginBody
		fields map[string]string
	}{
		{
			name: "valid",
			body: loginBody{Email: "fan@beat.stream", Password: "longenough"},
		},
		{
			name: "missing fields",
			body: loginBody{},
			fields: map[string]string{
				"email":    "email is required",
				"password": "password is required",
			},
		},
		{
			name: "format and bounds",
			body: loginBody{Email: "nope", Password: "short", Period: "year", Limit: 101},
			fields: map[string]string{
				"email":    "email must be a valid email address",
				"password": "password must be at least 8 characters",
				"period":   "period must be one of: day week month",
				"limit":    "limit must be less than or equal to 100",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.body)
			if tt.fields == nil {
				require.NoError(t, err)
				return
			}

			var reqErr *RequestError
			require.True(t, errors.As(err, &reqErr))
			got := map[string]string{}
			for _, f := range reqErr.Fields {
				got[f.Field] = f.Message
			}
			assert.Equal(t, tt.fields, got)
		})
	}
}

func TestRequestError_Error(t *testing.T) {
	assert.Equal(t, "validation failed", (&RequestError{}).Error())
	assert.Equal(t, "file is required", NewRequestError("file", "file is required").Error())
}

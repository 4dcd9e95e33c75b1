package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBearer_Authorized(t *testing.T) {
	b := NewBearer("s3cret")

	cases := []struct {
		name   string
		header string
		want   bool
	}{
		{"valid token", "Bearer s3cret", true},
		{"missing header", "", false},
		{"wrong scheme", "Basic s3cret", false},
		{"lowercase scheme", "bearer s3cret", false},
		{"wrong token", "Bearer nope", false},
		{"token prefix only", "Bearer s3cre", false},
		{"no space", "Bearers3cret", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, b.Authorized(tc.header))
		})
	}
}

func TestBearer_FailsClosedWithoutSecret(t *testing.T) {
	assert.False(t, NewBearer("").Authorized("Bearer "))
	assert.False(t, NewBearer("").Authorized("Bearer anything"))

	var nilBearer *Bearer
	assert.False(t, nilBearer.Authorized("Bearer anything"))
}

package auth

import (
	"encoding/base64"
	"testing"

	"github.com/go-faker/faker/v4"
	"github.com/stretchr/testify/assert"
)

func basic(credentials string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(credentials))
}

func TestAuthenticate(t *testing.T) {
	a := New("alice", "secret")

	tests := []struct {
		name     string
		header   string
		expected bool
	}{
		{"correct credentials", basic("alice:secret"), true},
		{"scheme is not checked", "Token " + base64.StdEncoding.EncodeToString([]byte("alice:secret")), true},
		{"wrong password", basic("alice:wrong"), false},
		{"wrong case", basic("Alice:secret"), false},
		{"missing header", "", false},
		{"scheme only", "Basic", false},
		{"too many parts", "Basic abc def", false},
		{"not base64", "Basic !!!", false},
		{"extra suffix", basic("alice:secret "), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, a.Authenticate(tt.header))
		})
	}
}

func TestAuthenticateRandomCredentials(t *testing.T) {
	for i := 0; i < 10; i++ {
		user := faker.Username()
		pass := faker.Password()
		a := New(user, pass)

		assert.True(t, a.Authenticate(basic(user+":"+pass)))
		assert.False(t, a.Authenticate(basic(user+":"+pass+"x")))
		assert.Equal(t, user, Username(basic(user+":"+pass)))
	}
}

func TestFailureBody(t *testing.T) {
	expected := `{"requestError":{"policyException":{"messageId":"POL0001","text":"Failed to authenticate"}}}`
	assert.JSONEq(t, expected, string(FailureBody()))
	assert.Equal(t, expected, string(FailureBody()))
}

package auth

import (
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"strings"
)

// Authenticator checks Authorization headers against one configured
// username and password.
type Authenticator struct {
	expected []byte
}

func New(username, password string) *Authenticator {
	return &Authenticator{expected: []byte(username + ":" + password)}
}

// Authenticate reports whether header is "<scheme> <base64(user:pass)>" for
// the configured credentials. The scheme is not checked.
func (a *Authenticator) Authenticate(header string) bool {
	credentials, ok := Decode(header)
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(credentials), a.expected) == 1
}

// Decode extracts the decoded "user:pass" string from an Authorization header.
func Decode(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 {
		return "", false
	}

	decoded, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", false
	}

	return string(decoded), true
}

// Username returns the user part of a decoded header, for logging.
func Username(header string) string {
	credentials, ok := Decode(header)
	if !ok {
		return ""
	}
	user, _, _ := strings.Cut(credentials, ":")
	return user
}

type policyException struct {
	MessageID string `json:"messageId"`
	Text      string `json:"text"`
}

type requestError struct {
	PolicyException policyException `json:"policyException"`
}

type failureBody struct {
	RequestError requestError `json:"requestError"`
}

var failure = mustMarshal(failureBody{
	RequestError: requestError{
		PolicyException: policyException{
			MessageID: "POL0001",
			Text:      "Failed to authenticate",
		},
	},
})

// FailureBody returns the JSON body sent with a 401.
func FailureBody() []byte {
	body := make([]byte, len(failure))
	copy(body, failure)
	return body
}

func mustMarshal(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}

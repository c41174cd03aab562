package validation

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

type registerPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,pwd"`
	Name     string `json:"name" validate:"displayname"`
}

func TestToDetails_UsesJSONNames(t *testing.T) {
	v := validator.New()
	Register(v)

	err := v.Struct(registerPayload{Email: "nope", Password: strings.Repeat("a", 73)})
	d := ToDetails(err)

	assert.Equal(t, "must be a valid email", d["email"])
	assert.Equal(t, "max length 72", d["password"])
	assert.NotContains(t, d, "name")
}

func TestPasswordAlias_LeavesMinimumToPolicy(t *testing.T) {
	v := validator.New()
	Register(v)

	assert.NoError(t, v.Struct(registerPayload{Email: "a@example.com", Password: "abc"}))
	assert.NoError(t, v.Struct(registerPayload{Email: "a@example.com", Password: strings.Repeat("a", 72)}))
}

func TestToDetails_Required(t *testing.T) {
	v := validator.New()
	Register(v)

	d := ToDetails(v.Struct(registerPayload{}))
	assert.Equal(t, "is required", d["email"])
	assert.Equal(t, "is required", d["password"])
}

func TestToDetails_InvalidJSON(t *testing.T) {
	var p registerPayload
	err := json.Unmarshal([]byte(`{"email":`), &p)
	assert.Equal(t, map[string]string{"payload": "invalid json"}, ToDetails(err))
	assert.Nil(t, ToDetails(nil))
}

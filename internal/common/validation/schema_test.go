package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const askSchema = `{
	"type": "object",
	"properties": {
		"question": {"type": "string", "minLength": 1, "maxLength": 500},
		"timeWindow": {"type": "string", "enum": ["current", "today", "yesterday", "last_hour", "last_week"]}
	},
	"required": ["question"],
	"additionalProperties": false
}`

func TestValidator_ValidateJSON(t *testing.T) {
	v := MustValidator(askSchema)

	tests := []struct {
		name          string
		body          string
		valid         bool
		expectedField string
		expectedCode  string
	}{
		{"valid question", `{"question": "temperature of cow-1"}`, true, "", ""},
		{"valid with window", `{"question": "cow-1", "timeWindow": "today"}`, true, "", ""},
		{"missing question", `{}`, false, "question", "REQUIRED"},
		{"empty question", `{"question": ""}`, false, "question", "STRING_GTE"},
		{"unknown window", `{"question": "cow-1", "timeWindow": "fortnight"}`, false, "timeWindow", "ENUM"},
		{"extra field", `{"question": "cow-1", "sql": "DROP TABLE"}`, false, "(root)", "ADDITIONAL_PROPERTY_NOT_ALLOWED"},
		{"wrong type", `{"question": 7}`, false, "question", "INVALID_TYPE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := v.ValidateJSON([]byte(tt.body))
			assert.Equal(t, tt.valid, result.Valid)
			if !tt.valid {
				require.NotEmpty(t, result.Errors)
				assert.Equal(t, tt.expectedField, result.Errors[0].Field)
				assert.Equal(t, tt.expectedCode, result.Errors[0].Code)
				assert.NotEmpty(t, result.Summary())
			}
		})
	}
}

func TestValidator_MalformedJSON(t *testing.T) {
	result := MustValidator(askSchema).ValidateJSON([]byte(`{"question":`))
	assert.False(t, result.Valid)
	assert.Equal(t, "MALFORMED_DOCUMENT", result.Errors[0].Code)
}

func TestValidateDocument(t *testing.T) {
	schema := map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"question"},
	}

	assert.True(t, ValidateDocument(schema, map[string]interface{}{"question": "x"}).Valid)

	result := ValidateDocument(schema, map[string]interface{}{})
	assert.False(t, result.Valid)
	assert.True(t, result.HasErrors("question"))

	assert.True(t, ValidateDocument(nil, map[string]interface{}{}).Valid)
}

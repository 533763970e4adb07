package coerce

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFloat64(t *testing.T) {
	tests := []struct {
		name    string
		input   interface{}
		want    float64
		wantErr bool
	}{
		{"json number", float64(36.5), 36.5, false},
		{"integer", 120, 120, false},
		{"numeric string", "95.5", 95.5, false},
		{"numeric string with spaces", " 74 ", 74, false},
		{"non-numeric string", "high", 0, true},
		{"empty string", "", 0, true},
		{"nil", nil, 0, true},
		{"bool", true, 0, true},
		{"map", map[string]interface{}{}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Float64(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInt(t *testing.T) {
	n, err := Int("137")
	require.NoError(t, err)
	assert.Equal(t, 137, n)

	n, err = Int(float64(95))
	require.NoError(t, err)
	assert.Equal(t, 95, n)

	_, err = Int(36.5)
	assert.Error(t, err, "fractional values must be rejected")

	_, err = Int("abc")
	assert.Error(t, err)
}

func TestIntField(t *testing.T) {
	doc := map[string]interface{}{
		"bp_high": "137",
		"bp_low":  float64(95),
	}

	high, err := IntField(doc, "bp_high")
	require.NoError(t, err)
	assert.Equal(t, 137, high)

	low, err := IntField(doc, "bp_low")
	require.NoError(t, err)
	assert.Equal(t, 95, low)

	_, err = IntField(doc, "PR")
	assert.Error(t, err, "missing mandatory field must error")
}

func TestOptionalFields(t *testing.T) {
	doc := map[string]interface{}{
		"pi":     "2.1",
		"marker": "After Meal",
		"null":   nil,
	}

	pi, err := OptionalFloat(doc, "pi")
	require.NoError(t, err)
	require.NotNil(t, pi)
	assert.Equal(t, 2.1, *pi)

	absent, err := OptionalFloat(doc, "absent")
	require.NoError(t, err)
	assert.Nil(t, absent, "absent optional field is nil, not zero")

	null, err := OptionalInt(doc, "null")
	require.NoError(t, err)
	assert.Nil(t, null)

	marker := OptionalString(doc, "marker")
	require.NotNil(t, marker)
	assert.Equal(t, "After Meal", *marker)
	assert.Nil(t, OptionalString(doc, "absent"))

	_, err = OptionalFloat(doc, "marker")
	assert.Error(t, err, "present non-numeric optional field is an error")
}

func TestString(t *testing.T) {
	s, err := String(float64(861123456789012))
	require.NoError(t, err)
	assert.Equal(t, "861123456789012", s)

	_, err = String([]interface{}{})
	assert.Error(t, err)
}

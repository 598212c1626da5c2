package dto

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type safeIDInput struct {
	Value string `binding:"required,safe_id"`
}

func TestSafeIDValidator(t *testing.T) {
	cases := []struct {
		name  string
		value string
		valid bool
	}{
		{"alphanumeric", "order123", true},
		{"with separators", "mint_2024-01.a", true},
		{"spaces rejected", "order 123", false},
		{"html rejected", "<script>", false},
		{"slash rejected", "a/b", false},
		{"empty rejected", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := binding.Validator.ValidateStruct(&safeIDInput{Value: tc.value})
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestSanitizeStruct(t *testing.T) {
	extra := "  <b>bold</b>  "
	in := struct {
		Name  string
		Extra *string
		Count int64
	}{
		Name:  "  hello <script>  ",
		Extra: &extra,
		Count: 7,
	}

	SanitizeStruct(&in)

	assert.Equal(t, "hello &lt;script&gt;", in.Name)
	require.NotNil(t, in.Extra)
	assert.Equal(t, "&lt;b&gt;bold&lt;/b&gt;", *in.Extra)
	assert.Equal(t, int64(7), in.Count)
}

func TestSanitizeStruct_IgnoresNonStructPointers(t *testing.T) {
	s := "  raw  "
	SanitizeStruct(s)   // not a pointer
	SanitizeStruct(&s)  // pointer to non-struct
	SanitizeStruct(nil) // nil
	assert.Equal(t, "  raw  ", s)
}

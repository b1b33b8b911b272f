package inference

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"bare", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"fenced no tag", "```\n{\"a\":{\"b\":2}}\n```", `{"a":{"b":2}}`},
		{"prose around", "Sure! Here you go:\n{\"a\":1}\nHope that helps.", `{"a":1}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ExtractJSON(tc.in)
			require.NoError(t, err)
			require.JSONEq(t, tc.want, got)
		})
	}
}

func TestExtractJSON_None(t *testing.T) {
	_, err := ExtractJSON("I could not process these emails.")
	require.ErrorIs(t, err, ErrNoJSON)

	_, err = ExtractJSON("} backwards {")
	require.ErrorIs(t, err, ErrNoJSON)
}

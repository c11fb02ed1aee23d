package whenclause

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSerializeRoundTrip(t *testing.T) {
	cases := []struct {
		in   string
		want string // canonical form; empty means identical to in
	}{
		{in: "editorFocus", want: ""},
		{in: "!editorReadonly", want: ""},
		{in: "resourceScheme == file", want: ""},
		{in: "resourceScheme != 'untitled'", want: ""},
		{in: "resourceScheme =~ /^file$/", want: ""},
		{in: "resourceScheme in supportedSchemes", want: ""},
		{in: "a && b && !c", want: ""},
		{in: "a || b && c", want: ""},
		{in: "a&&b||c==1", want: "a && b || c == 1"},
	}

	for _, tc := range cases {
		expr, err := Parse(tc.in)
		require.NoError(t, err, "parsing %q", tc.in)

		want := tc.want
		if want == "" {
			want = tc.in
		}
		assert.Equal(t, want, Serialize(expr), "round-tripping %q", tc.in)
	}
}

func TestParseStructure(t *testing.T) {
	expr, err := Parse("a && resourceScheme == file || !b")
	require.NoError(t, err)

	or, ok := expr.(*Or)
	require.True(t, ok, "top level should be Or")
	require.Len(t, or.Exprs, 2)

	and, ok := or.Exprs[0].(*And)
	require.True(t, ok, "first disjunct should be And")
	require.Len(t, and.Exprs, 2)

	eq, ok := and.Exprs[1].(*Equals)
	require.True(t, ok)
	assert.Equal(t, "resourceScheme", eq.Key)
	assert.Equal(t, "file", eq.Value)

	not, ok := or.Exprs[1].(*Not)
	require.True(t, ok)
	assert.Equal(t, "b", not.Key)
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, bad := range []string{"", "a &&", "|| b", "a b", "!", "a && && b"} {
		_, err := Parse(bad)
		assert.Error(t, err, "parsing %q should fail", bad)
	}
}

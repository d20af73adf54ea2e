package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_SortsKeys(t *testing.T) {
	got, err := MarshalCanonical(map[string]any{"b": "2", "a": "1", "c": int64(3)})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"1","b":"2","c":3}`, string(got))
}

func TestMarshalCanonical_UTF16KeyOrder(t *testing.T) {
	// U+1F600 encodes as surrogates 0xD83D..., which sort before U+FFFD in UTF-16
	// but after it in UTF-8.
	got, err := MarshalCanonical(map[string]any{"\uFFFD": "x", "\U0001F600": "y"})
	require.NoError(t, err)
	assert.Equal(t, "{\"\U0001F600\":\"y\",\"\uFFFD\":\"x\"}", string(got))
}

func TestMarshalCanonical_NoHTMLEscape(t *testing.T) {
	got, err := MarshalCanonical("<a & b>")
	require.NoError(t, err)
	assert.Equal(t, `"<a & b>"`, string(got))
}

func TestMarshalCanonical_LineSeparatorsUnescaped(t *testing.T) {
	got, err := MarshalCanonical("a\u2028b")
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\"", string(got))

	literal, err := MarshalCanonical(`a\u2028b`)
	require.NoError(t, err)
	assert.Equal(t, `"a\\u2028b"`, string(literal))
}

func TestMarshalCanonical_PreservesDecomposedText(t *testing.T) {
	// "e" + combining acute accent stays distinct from U+00E9.
	got, err := MarshalCanonical(map[string]any{"e\u0301": "e\u0301", "\u00e9": "\u00e9"})
	require.NoError(t, err)
	assert.Equal(t, "{\"e\u0301\":\"e\u0301\",\"\u00e9\":\"\u00e9\"}", string(got))
}

func TestMarshalCanonical_RejectsFloatAndNull(t *testing.T) {
	_, err := MarshalCanonical(1.5)
	assert.Error(t, err)

	_, err = MarshalCanonical(nil)
	assert.Error(t, err)

	_, err = MarshalCanonical(map[string]any{"x": []any{nil}})
	assert.Error(t, err)
}

func TestMarshalCanonical_Nested(t *testing.T) {
	got, err := MarshalCanonical(map[string]any{
		"list": []any{true, int64(-1), []string{"x"}},
		"obj":  map[string]any{},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"list":[true,-1,["x"]],"obj":{}}`, string(got))
}

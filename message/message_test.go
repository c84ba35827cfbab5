package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspect(t *testing.T) {
	testCases := []struct {
		description string
		input       string
		expect      Kind
		key         string
	}{
		{description: "request", input: `{"jsonrpc":"2.0","id":1,"method":"ping"}`, expect: Request, key: "n:1"},
		{description: "string id request", input: `{"jsonrpc":"2.0","id":"x","method":"ping"}`, expect: Request, key: "s:x"},
		{description: "notification", input: `{"jsonrpc":"2.0","method":"notifications/initialized"}`, expect: Notification},
		{description: "null id notification", input: `{"jsonrpc":"2.0","id":null,"method":"a"}`, expect: Notification},
		{description: "result", input: `{"jsonrpc":"2.0","id":3,"result":{}}`, expect: Response, key: "n:3"},
		{description: "error", input: `{"jsonrpc":"2.0","id":3,"error":{"code":-1,"message":"x"}}`, expect: Response, key: "n:3"},
		{description: "empty object", input: `{}`, expect: Invalid},
	}
	for _, testCase := range testCases {
		envelope, err := Inspect([]byte(testCase.input))
		require.NoError(t, err, testCase.description)
		assert.Equal(t, testCase.expect, envelope.Kind(), testCase.description)
		if testCase.key != "" {
			assert.Equal(t, testCase.key, envelope.Key(), testCase.description)
		}
	}
}

func TestSplit(t *testing.T) {
	messages, batch, err := Split([]byte(` [{"jsonrpc":"2.0","method":"a"},{"jsonrpc":"2.0","id":1,"method":"b"}]`))
	require.NoError(t, err)
	assert.True(t, batch)
	assert.Len(t, messages, 2)

	messages, batch, err = Split([]byte(`{"jsonrpc":"2.0","method":"a"}`))
	require.NoError(t, err)
	assert.False(t, batch)
	assert.Len(t, messages, 1)

	for _, input := range []string{"", "[]", "42", "{oops"} {
		_, _, err = Split([]byte(input))
		assert.ErrorIs(t, err, ErrInvalid, input)
	}
}

func TestIDKey(t *testing.T) {
	assert.Equal(t, IDKey(float64(2)), IDKey(2))
}

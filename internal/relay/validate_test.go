package relay

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, raw string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return v
}

func TestValidChatRequest(t *testing.T) {
	tests := []struct {
		name string
		body string
		want bool
	}{
		{name: "Valid", body: `{"message":"Hallo"}`, want: true},
		{name: "ExtraFieldsIgnored", body: `{"message":"Hallo","history":[]}`, want: true},
		{name: "MaxLength", body: `{"message":"` + strings.Repeat("a", MaxMessageChars) + `"}`, want: true},
		{name: "TooLong", body: `{"message":"` + strings.Repeat("a", MaxMessageChars+1) + `"}`, want: false},
		{name: "Empty", body: `{"message":""}`, want: false},
		{name: "Missing", body: `{"text":"Hallo"}`, want: false},
		{name: "NotString", body: `{"message":42}`, want: false},
		{name: "Null", body: `null`, want: false},
		{name: "Array", body: `["Hallo"]`, want: false},
		{name: "StringBody", body: `"Hallo"`, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidChatRequest(decode(t, tt.body)))
		})
	}
}

func TestValidChatRequestCountsCharacters(t *testing.T) {
	// 1000 umlauts are 2000 bytes but 1000 characters.
	body := map[string]any{"message": strings.Repeat("ü", MaxMessageChars)}
	assert.True(t, ValidChatRequest(body))

	body["message"] = strings.Repeat("ü", MaxMessageChars+1)
	assert.False(t, ValidChatRequest(body))
}

func TestValidChatRequestCountsSupplementaryCharactersTwice(t *testing.T) {
	body := map[string]any{"message": strings.Repeat("😀", MaxMessageChars/2)}
	assert.True(t, ValidChatRequest(body))

	body["message"] = strings.Repeat("😀", MaxMessageChars/2+1)
	assert.False(t, ValidChatRequest(body))

	body["message"] = strings.Repeat("😀", MaxMessageChars/2) + "a"
	assert.False(t, ValidChatRequest(body))
}

func TestMessageLength(t *testing.T) {
	assert.Equal(t, 0, MessageLength(""))
	assert.Equal(t, 5, MessageLength("Hallo"))
	assert.Equal(t, 3, MessageLength("für"))
	assert.Equal(t, 2, MessageLength("😀"))
	assert.Equal(t, 1, MessageLength("\xff"))
}

func TestChatMessage(t *testing.T) {
	message, ok := ChatMessage(decode(t, `{"message":"Wer bist du?"}`))
	require.True(t, ok)
	assert.Equal(t, "Wer bist du?", message)
}

package relay

import "unicode/utf16"

// MaxMessageChars is the longest accepted chat message, counted in UTF-16
// code units the way browsers report string length.
const MaxMessageChars = 1000

// ValidChatRequest reports whether a decoded JSON body is an object whose
// "message" is a string of 1 to MaxMessageChars characters.
func ValidChatRequest(body any) bool {
	_, ok := ChatMessage(body)
	return ok
}

// ChatMessage extracts the message of a valid chat request.
func ChatMessage(body any) (string, bool) {
	obj, ok := body.(map[string]any)
	if !ok {
		return "", false
	}
	message, ok := obj["message"].(string)
	if !ok {
		return "", false
	}
	n := MessageLength(message)
	if n < 1 || n > MaxMessageChars {
		return "", false
	}
	return message, true
}

// MessageLength counts s in UTF-16 code units. Characters outside the Basic
// Multilingual Plane, such as most emoji, count twice.
func MessageLength(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

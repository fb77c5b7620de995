package relay

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/guggeis/chatrelay/internal/store"
)

// WindowState is a stored rate window resolved for inspection.
type WindowState struct {
	Client      string     `json:"client"`
	Key         string     `json:"key"`
	Count       int        `json:"count"`
	WindowStart time.Time  `json:"window_start"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	// Invalid is set when the stored value does not decode as a RateWindow.
	Invalid bool `json:"invalid,omitempty"`
}

// ClientFromKey strips KeyPrefix from a store key.
func ClientFromKey(key string) string {
	return strings.TrimPrefix(key, KeyPrefix)
}

// DecodeWindow parses a stored rate window.
func DecodeWindow(raw []byte) (RateWindow, error) {
	var w RateWindow
	if err := json.Unmarshal(raw, &w); err != nil {
		return RateWindow{}, err
	}
	return w, nil
}

// WindowStates converts store entries into window states ordered by key.
func WindowStates(entries []store.Entry) []WindowState {
	states := make([]WindowState, 0, len(entries))
	for _, entry := range entries {
		state := WindowState{
			Client:    ClientFromKey(entry.Key),
			Key:       entry.Key,
			ExpiresAt: entry.ExpiresAt,
		}
		if w, err := DecodeWindow(entry.Value); err == nil {
			state.Count = w.Count
			state.WindowStart = time.UnixMilli(w.WindowStart).UTC()
		} else {
			state.Invalid = true
		}
		states = append(states, state)
	}
	sort.Slice(states, func(i, j int) bool { return states[i].Key < states[j].Key })
	return states
}

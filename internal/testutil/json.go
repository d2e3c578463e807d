package testutil

import (
	"encoding/json"
	"testing"
)

// JSON decodes a response body into a generic map.
func JSON(t testing.TB, body []byte) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode json: %v: %s", err, body)
	}
	return out
}

func jsonField(t testing.TB, body []byte, key string) string {
	t.Helper()
	v, _ := JSON(t, body)[key].(string)
	if v == "" {
		t.Fatalf("missing %q in %s", key, body)
	}
	return v
}

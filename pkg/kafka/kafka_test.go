package kafka

import (
	"encoding/json"
	"testing"
)

func TestDecodeJSON(t *testing.T) {
	type taskEvent struct {
		UserID string `json:"userId"`
		Action string `json:"action"`
	}
	got, err := DecodeJSON[taskEvent]([]byte(`{"userId":"65a1b2c3d4e5f60718293a4b","action":"updated"}`))
	if err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	if got.UserID != "65a1b2c3d4e5f60718293a4b" || got.Action != "updated" {
		t.Errorf("decoded = %+v", got)
	}

	if _, err := DecodeJSON[taskEvent]([]byte(`{not json`)); err == nil {
		t.Error("expected error for malformed payload")
	}
}

func TestEncode(t *testing.T) {
	msg, err := encode(Event{Key: "user-1", Value: map[string]int{"count": 3}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(msg.Key) != "user-1" {
		t.Errorf("key = %q", msg.Key)
	}
	var body map[string]int
	if err := json.Unmarshal(msg.Value, &body); err != nil || body["count"] != 3 {
		t.Errorf("value = %s (%v)", msg.Value, err)
	}

	if _, err := encode(Event{Key: "bad", Value: make(chan int)}); err == nil {
		t.Error("expected marshal error for channel value")
	}
}

package common

import (
	"encoding/json"
	"testing"
)

func TestWithKeyDoesNotMutateOriginal(t *testing.T) {
	original := NewSetRequest("key", []byte("value"))
	derived := original.WithKey("key|#|2")

	if original.Key != "key" {
		t.Errorf("original key was mutated to %q", original.Key)
	}
	if derived.Key != "key|#|2" {
		t.Errorf("derived key is %q", derived.Key)
	}
	if derived.MsgType != original.MsgType || string(derived.Value) != string(original.Value) {
		t.Errorf("derived message lost fields: %+v", derived)
	}
}

func TestMutating(t *testing.T) {
	testCases := []struct {
		msgType  MessageType
		mutating bool
	}{
		{MsgTGet, false},
		{MsgTPing, false},
		{MsgTSet, true},
		{MsgTSetE, true},
		{MsgTDelete, true},
	}

	for _, tc := range testCases {
		if got := tc.msgType.Mutating(); got != tc.mutating {
			t.Errorf("%s: expected mutating=%v, got %v", tc.msgType, tc.mutating, got)
		}
	}
}

func TestEnumJSONRoundTrip(t *testing.T) {
	for msgType := MsgTGet; msgType <= MsgTPing; msgType++ {
		data, err := json.Marshal(msgType)
		if err != nil {
			t.Fatalf("failed to marshal %s: %v", msgType, err)
		}

		var result MessageType
		if err := json.Unmarshal(data, &result); err != nil {
			t.Fatalf("failed to unmarshal %s: %v", data, err)
		}
		if result != msgType {
			t.Errorf("expected %s, got %s", msgType, result)
		}
	}

	for res := ResOK; res <= ResRemoteError; res++ {
		data, err := json.Marshal(res)
		if err != nil {
			t.Fatalf("failed to marshal %s: %v", res, err)
		}

		var result Result
		if err := json.Unmarshal(data, &result); err != nil {
			t.Fatalf("failed to unmarshal %s: %v", data, err)
		}
		if result != res {
			t.Errorf("expected %s, got %s", res, result)
		}
	}
}

func TestConnectionOptionsValidate(t *testing.T) {
	valid := ConnectionOptions{Host: "localhost", Port: 8080, Protocol: ProtocolBinary}
	if err := valid.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := (ConnectionOptions{Port: 8080, Protocol: ProtocolBinary}).Validate(); err == nil {
		t.Errorf("expected error for missing host")
	}
	if err := (ConnectionOptions{Host: "h", Port: -1, Protocol: ProtocolBinary}).Validate(); err == nil {
		t.Errorf("expected error for negative port")
	}
	if err := (ConnectionOptions{Host: "h", Port: 8080}).Validate(); err == nil {
		t.Errorf("expected error for missing protocol")
	}

	if valid.Timeout() != DefaultTimeoutSecond {
		t.Errorf("expected default timeout, got %d", valid.Timeout())
	}
}

package serializer

import (
	"reflect"
	"testing"

	"github.com/keymux/keymux/proxy/common"
)

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() ISerializer{
	"JSON":   NewJSONSerializer,
	"GOB":    NewGOBSerializer,
	"Binary": NewBinarySerializer,
}

// testMessages creates a set of test messages with different fields filled
func testMessages() []common.Message {
	return []common.Message{
		// Ping request, no payload
		{MsgType: common.MsgTPing},

		// Set request
		{
			MsgType: common.MsgTSet,
			Key:     "test-key",
			Value:   []byte("test-value"),
		},

		// SetE request with expiry
		{
			MsgType:  common.MsgTSetE,
			Key:      "test-key",
			Value:    []byte("test-value"),
			ExpireIn: 60,
		},

		// Get reply
		{
			MsgType: common.MsgTGet,
			Value:   []byte("test-value"),
			Result:  common.ResFound,
		},

		// Error reply
		{
			MsgType: common.MsgTGet,
			Result:  common.ResRemoteError,
			Err:     "test error message",
		},

		// Message with all fields filled
		{
			MsgType:  common.MsgTSetE,
			Key:      "full-key",
			Value:    []byte("full-value"),
			ExpireIn: 300,
			Result:   common.ResStored,
			Err:      "",
		},
	}
}

// TestSerializerRoundTrip tests that messages can be serialized and deserialized correctly
func TestSerializerRoundTrip(t *testing.T) {
	messages := testMessages()

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for i, msg := range messages {
				// Serialize
				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message %d: %v", i, err)
					continue
				}

				// Deserialize
				var result common.Message
				err = serializer.Deserialize(data, &result)
				if err != nil {
					t.Errorf("Failed to deserialize message %d: %v", i, err)
					continue
				}

				// Compare
				if !reflect.DeepEqual(msg, result) {
					t.Errorf("Message %d doesn't match after round trip:\nOriginal: %+v\nResult: %+v",
						i, msg, result)
				}
			}
		})
	}
}

// TestMessageTypes tests each message type with each serializer
func TestMessageTypes(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			// Test each message type (don't test MsgTUnknown since the JSON
			// codec rejects it)
			for msgType := common.MsgTGet; msgType <= common.MsgTPing; msgType++ {
				msg := common.Message{MsgType: msgType}

				// Serialize
				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message type %s: %v", msgType.String(), err)
					continue
				}

				// Deserialize
				var result common.Message
				err = serializer.Deserialize(data, &result)
				if err != nil {
					t.Errorf("Failed to deserialize message type %s: %v", msgType.String(), err)
					continue
				}

				// Check type
				if result.MsgType != msgType {
					t.Errorf("Message type doesn't match after round trip: Expected %s, got %s",
						msgType.String(), result.MsgType.String())
				}
			}
		})
	}
}

// TestBinarySerializerSpecific tests specific edge cases for the binary serializer
func TestBinarySerializerSpecific(t *testing.T) {
	serializer := NewBinarySerializer()

	// Test cases for empty or zero values
	testCases := []struct {
		name string
		msg  common.Message
	}{
		{
			name: "Message with empty strings and zero values",
			msg: common.Message{
				MsgType:  common.MsgTSet,
				Key:      "",
				ExpireIn: 0,
				Value:    []byte{},
				Result:   common.ResUnknown,
				Err:      "",
			},
		},
		{
			name: "Message with result but no value",
			msg: common.Message{
				MsgType: common.MsgTGet,
				Key:     "",
				Result:  common.ResNotFound,
				Value:   nil,
			},
		},
		{
			name: "Message with empty value slice but not nil",
			msg: common.Message{
				MsgType: common.MsgTSet,
				Key:     "test",
				Value:   []byte{},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Serialize
			data, err := serializer.Serialize(tc.msg)
			if err != nil {
				t.Fatalf("Failed to serialize: %v", err)
			}

			// Deserialize
			var result common.Message
			err = serializer.Deserialize(data, &result)
			if err != nil {
				t.Fatalf("Failed to deserialize: %v", err)
			}

			if tc.msg.Key != result.Key {
				t.Errorf("Key mismatch: expected '%s', got '%s'", tc.msg.Key, result.Key)
			}
			if tc.msg.ExpireIn != result.ExpireIn {
				t.Errorf("ExpireIn mismatch: expected %d, got %d", tc.msg.ExpireIn, result.ExpireIn)
			}
			if tc.msg.Result != result.Result {
				t.Errorf("Result mismatch: expected %v, got %v", tc.msg.Result, result.Result)
			}
			if tc.msg.Err != result.Err {
				t.Errorf("Err mismatch: expected '%s', got '%s'", tc.msg.Err, result.Err)
			}
			if tc.msg.MsgType != result.MsgType {
				t.Errorf("MsgType mismatch: expected %v, got %v", tc.msg.MsgType, result.MsgType)
			}

			// Byte slices may be nil or empty
			if (tc.msg.Value == nil) != (result.Value == nil) {
				t.Errorf("Value nil/non-nil mismatch: expected %v, got %v", tc.msg.Value, result.Value)
			} else if len(tc.msg.Value) != len(result.Value) {
				t.Errorf("Value length mismatch: expected %d, got %d", len(tc.msg.Value), len(result.Value))
			}
		})
	}
}

// TestInvalidBinaryData tests how the binary serializer handles corrupt or invalid data
func TestInvalidBinaryData(t *testing.T) {
	serializer := NewBinarySerializer()

	testCases := []struct {
		name        string
		data        []byte
		expectError bool
	}{
		{
			name:        "Empty data",
			data:        []byte{},
			expectError: true,
		},
		{
			name:        "Too short header",
			data:        []byte{1}, // Only message type, no flags
			expectError: true,
		},
		{
			name:        "Valid header only",
			data:        []byte{1, 0}, // Message type 1, no flags
			expectError: false,
		},
		{
			name:        "Invalid length for key",
			data:        []byte{1, 1, 0, 0, 0, 5, 'a', 'b', 'c'}, // Claims key length 5 but only 3 bytes provided
			expectError: true,
		},
		{
			name:        "Invalid length for value",
			data:        []byte{1, 2, 0, 0, 0, 10}, // Claims value length 10 but no bytes provided
			expectError: true,
		},
		{
			name:        "Missing expiry",
			data:        []byte{3, 4}, // ExpireIn flag set but no bytes provided
			expectError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var msg common.Message
			err := serializer.Deserialize(tc.data, &msg)

			if tc.expectError && err == nil {
				t.Errorf("Expected error but got none")
			} else if !tc.expectError && err != nil {
				t.Errorf("Did not expect error but got: %v", err)
			}
		})
	}
}

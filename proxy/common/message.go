package common

import (
	"encoding/json"
	"fmt"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single cache operation, used for both requests and
// replies. Which fields are used depends on the type of message.
//
// A Message is never mutated after it has been submitted to a connection or
// route. Routes that need to rewrite the key derive a copy via WithKey.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type"`

	// Request fields
	Key      string `json:"key,omitempty"`       // Used for: Get, Set, SetE, Delete
	Value    []byte `json:"value,omitempty"`     // Used for: Set, SetE (request), Get (reply)
	ExpireIn uint64 `json:"expire_in,omitempty"` // Used for: SetE (seconds until expiry)

	// Reply only fields
	Result Result `json:"result,omitempty"` // Operation result code
	Err    string `json:"err,omitempty"`    // Empty if no error, otherwise the error message
}

// WithKey returns a copy of the message with a rewritten key. The original
// message is left untouched.
func (m *Message) WithKey(key string) *Message {
	derived := *m
	derived.Key = key
	return &derived
}

// Mutating reports whether the message is a write operation that changes
// backend state. Get and Ping are read-only.
func (m *Message) Mutating() bool {
	return m.MsgType.Mutating()
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewGetRequest creates a new Get request
func NewGetRequest(key string) *Message {
	return &Message{
		MsgType: MsgTGet,
		Key:     key,
	}
}

// NewSetRequest creates a new Set request
func NewSetRequest(key string, value []byte) *Message {
	return &Message{
		MsgType: MsgTSet,
		Key:     key,
		Value:   value,
	}
}

// NewSetERequest creates a new Set request with an expiry (in seconds)
func NewSetERequest(key string, value []byte, expireIn uint64) *Message {
	return &Message{
		MsgType:  MsgTSetE,
		Key:      key,
		Value:    value,
		ExpireIn: expireIn,
	}
}

// NewDeleteRequest creates a new Delete request
func NewDeleteRequest(key string) *Message {
	return &Message{
		MsgType: MsgTDelete,
		Key:     key,
	}
}

// NewPingRequest creates a new Ping request. A ping carries no payload and
// does not mutate cache state; it is used by health checks.
func NewPingRequest() *Message {
	return &Message{
		MsgType: MsgTPing,
	}
}

// NewStoredReply creates the reply for a successful Set/SetE
func NewStoredReply(msgType MessageType) *Message {
	return &Message{
		MsgType: msgType,
		Result:  ResStored,
	}
}

// NewFoundReply creates the reply for a Get that found a value
func NewFoundReply(value []byte) *Message {
	return &Message{
		MsgType: MsgTGet,
		Result:  ResFound,
		Value:   value,
	}
}

// NewNotFoundReply creates the reply for a Get or Delete that missed
func NewNotFoundReply(msgType MessageType) *Message {
	return &Message{
		MsgType: msgType,
		Result:  ResNotFound,
	}
}

// NewDeletedReply creates the reply for a successful Delete
func NewDeletedReply() *Message {
	return &Message{
		MsgType: MsgTDelete,
		Result:  ResDeleted,
	}
}

// NewPongReply creates the reply for a Ping
func NewPongReply() *Message {
	return &Message{
		MsgType: MsgTPing,
		Result:  ResOK,
	}
}

// NewLocalErrorReply creates an error-coded reply for a failure that happened
// on the proxy side (unreachable endpoint, timeout, codec mismatch). It is
// the only way a connectivity failure crosses the callback boundary.
func NewLocalErrorReply(msgType MessageType, err error) *Message {
	return &Message{
		MsgType: msgType,
		Result:  ResLocalError,
		Err:     err.Error(),
	}
}

// NewRemoteErrorReply creates an error-coded reply reported by the backend
func NewRemoteErrorReply(msgType MessageType, err string) *Message {
	return &Message{
		MsgType: msgType,
		Result:  ResRemoteError,
		Err:     err,
	}
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the operation kind of a message.
type MessageType uint8

const (
	MsgTUnknown MessageType = iota

	MsgTGet    // Get a value by key (read-only)
	MsgTSet    // Set a key-value pair
	MsgTSetE   // Set a key-value pair with expiry
	MsgTDelete // Delete a key-value pair
	MsgTPing   // Zero-payload round trip (read-only)
)

// Mutating reports whether the operation changes backend state.
func (t MessageType) Mutating() bool {
	switch t {
	case MsgTSet, MsgTSetE, MsgTDelete:
		return true
	default:
		return false
	}
}

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	switch t {
	case MsgTGet:
		return "get"
	case MsgTSet:
		return "set"
	case MsgTSetE:
		return "setE"
	case MsgTDelete:
		return "delete"
	case MsgTPing:
		return "ping"
	default:
		return "unknown"
	}
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	switch s {
	case "get":
		*t = MsgTGet
	case "set":
		*t = MsgTSet
	case "setE":
		*t = MsgTSetE
	case "delete":
		*t = MsgTDelete
	case "ping":
		*t = MsgTPing
	default:
		return fmt.Errorf("unknown message type: %s", s)
	}

	return nil
}

// --------------------------------------------------------------------------
// Result Code Definition
// --------------------------------------------------------------------------

// Result is the outcome code carried by a reply.
type Result uint8

const (
	ResUnknown Result = iota

	ResOK          // Generic success (ping)
	ResStored      // Value was stored
	ResFound       // Value was found
	ResNotFound    // Key does not exist
	ResDeleted     // Value was deleted
	ResLocalError  // Failure produced on the proxy side (connectivity, timeout)
	ResRemoteError // Failure reported by the backend
)

// Error reports whether the result is one of the error codes.
func (r Result) Error() bool {
	return r == ResLocalError || r == ResRemoteError
}

// String returns the string representation of a Result.
func (r Result) String() string {
	switch r {
	case ResOK:
		return "ok"
	case ResStored:
		return "stored"
	case ResFound:
		return "found"
	case ResNotFound:
		return "not_found"
	case ResDeleted:
		return "deleted"
	case ResLocalError:
		return "local_error"
	case ResRemoteError:
		return "remote_error"
	default:
		return "unknown"
	}
}

// MarshalJSON implements the json.Marshaller interface for Result.
func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for Result.
func (r *Result) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	switch s {
	case "ok":
		*r = ResOK
	case "stored":
		*r = ResStored
	case "found":
		*r = ResFound
	case "not_found":
		*r = ResNotFound
	case "deleted":
		*r = ResDeleted
	case "local_error":
		*r = ResLocalError
	case "remote_error":
		*r = ResRemoteError
	default:
		return fmt.Errorf("unknown result code: %s", s)
	}

	return nil
}

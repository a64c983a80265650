package serializer

import (
	"fmt"

	"github.com/keymux/keymux/proxy/common"
)

// ISerializer is the interface for all Message wire codecs
type ISerializer interface {
	// Serialize serializes a Message into a byte array
	// It returns the serialized byte array and an error if any
	Serialize(msg common.Message) ([]byte, error)
	// Deserialize deserializes a byte array into a Message
	// It takes a byte array and a pointer to a Message as parameters
	// It returns an error if any
	Deserialize(b []byte, msg *common.Message) error
}

// ForProtocol returns the serializer for a wire protocol.
func ForProtocol(p common.Protocol) (ISerializer, error) {
	switch p {
	case common.ProtocolBinary:
		return NewBinarySerializer(), nil
	case common.ProtocolJSON:
		return NewJSONSerializer(), nil
	case common.ProtocolGOB:
		return NewGOBSerializer(), nil
	default:
		return nil, fmt.Errorf("no serializer for protocol %s", p)
	}
}

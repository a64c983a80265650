package server

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/keymux/keymux/lib/cache"
	"github.com/keymux/keymux/proxy/common"
	"github.com/keymux/keymux/proxy/serializer"
)

func startServer(t *testing.T) *Server {
	t.Helper()

	srv, err := NewServer(common.ServerConfig{
		Endpoint:          "127.0.0.1:0",
		TimeoutSecond:     5,
		MaxWorkersPerConn: 4,
	}, common.ProtocolBinary)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	srv.RegisterHandler(NewCacheHandler(cache.NewCache()))
	if err := srv.Start(); err != nil {
		t.Fatalf("failed to start server: %v", err)
	}
	t.Cleanup(func() { srv.Stop() })
	return srv
}

// exchange writes one raw frame and reads the reply frame for it.
func exchange(t *testing.T, c net.Conn, requestID uint64, payload []byte) (uint64, []byte) {
	t.Helper()
	if err := common.WriteFrame(c, requestID, payload); err != nil {
		t.Fatalf("failed to write frame: %v", err)
	}
	replyID, data, err := common.ReadFrame(c, nil)
	if err != nil {
		t.Fatalf("failed to read frame: %v", err)
	}
	return replyID, data
}

func TestServerRequiresHandler(t *testing.T) {
	srv, err := NewServer(common.ServerConfig{Endpoint: "127.0.0.1:0"}, common.ProtocolBinary)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	if err := srv.Start(); err == nil {
		srv.Stop()
		t.Fatalf("expected start without handler to fail")
	}
}

func TestServerEchoesRequestID(t *testing.T) {
	srv := startServer(t)

	c, err := net.Dial("tcp", srv.Addr())
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	defer c.Close()

	s := serializer.NewBinarySerializer()
	payload, err := s.Serialize(*common.NewPingRequest())
	if err != nil {
		t.Fatalf("failed to serialize: %v", err)
	}

	replyID, data := exchange(t, c, 42, payload)
	if replyID != 42 {
		t.Errorf("expected request ID 42 echoed, got %d", replyID)
	}

	reply := &common.Message{}
	if err := s.Deserialize(data, reply); err != nil {
		t.Fatalf("failed to deserialize reply: %v", err)
	}
	if reply.Result != common.ResOK {
		t.Errorf("expected ok, got %s", reply.Result)
	}
}

func TestServerAnswersMalformedPayload(t *testing.T) {
	srv := startServer(t)

	c, err := net.Dial("tcp", srv.Addr())
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	defer c.Close()

	// A frame whose payload is not a valid binary message
	replyID, data := exchange(t, c, 7, []byte{0xff})

	if replyID != 7 {
		t.Errorf("expected request ID 7 echoed, got %d", replyID)
	}

	reply := &common.Message{}
	if err := serializer.NewBinarySerializer().Deserialize(data, reply); err != nil {
		t.Fatalf("failed to deserialize reply: %v", err)
	}
	if reply.Result != common.ResRemoteError {
		t.Errorf("expected remote_error for malformed payload, got %s", reply.Result)
	}
}

func TestServerAnswersUnknownMessageType(t *testing.T) {
	srv := startServer(t)

	c, err := net.Dial("tcp", srv.Addr())
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	defer c.Close()

	s := serializer.NewBinarySerializer()
	payload, err := s.Serialize(common.Message{MsgType: common.MessageType(99), Key: "k"})
	if err != nil {
		t.Fatalf("failed to serialize: %v", err)
	}

	_, data := exchange(t, c, 1, payload)

	reply := &common.Message{}
	if err := s.Deserialize(data, reply); err != nil {
		t.Fatalf("failed to deserialize reply: %v", err)
	}
	if reply.Result != common.ResRemoteError {
		t.Errorf("expected remote_error for unknown message type, got %s", reply.Result)
	}
}

func TestServerConcurrentRequestsOnOneConnection(t *testing.T) {
	srv := startServer(t)

	c, err := net.Dial("tcp", srv.Addr())
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	defer c.Close()

	s := serializer.NewBinarySerializer()

	// Pipeline many requests before reading any reply
	const requests = 32
	var writeMu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func(id uint64) {
			defer wg.Done()
			payload, err := s.Serialize(*common.NewSetRequest("key", []byte("value")))
			if err != nil {
				t.Errorf("failed to serialize: %v", err)
				return
			}
			writeMu.Lock()
			defer writeMu.Unlock()
			if err := common.WriteFrame(c, id, payload); err != nil {
				t.Errorf("failed to write frame: %v", err)
			}
		}(uint64(i + 1))
	}
	wg.Wait()

	// Every request gets exactly one reply with its own ID
	seen := make(map[uint64]bool, requests)
	for i := 0; i < requests; i++ {
		replyID, data, err := common.ReadFrame(c, nil)
		if err != nil {
			t.Fatalf("failed to read frame %d: %v", i, err)
		}
		if seen[replyID] {
			t.Errorf("duplicate reply for request ID %d", replyID)
		}
		seen[replyID] = true

		reply := &common.Message{}
		if err := s.Deserialize(data, reply); err != nil {
			t.Fatalf("failed to deserialize reply: %v", err)
		}
		if reply.Result != common.ResStored {
			t.Errorf("expected stored, got %s", reply.Result)
		}
	}
}

func TestServerStopClosesConnections(t *testing.T) {
	srv := startServer(t)

	c, err := net.Dial("tcp", srv.Addr())
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	defer c.Close()

	if err := srv.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}

	// The connection is torn down; a read observes it promptly
	c.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := common.ReadFrame(c, nil); err == nil {
		t.Errorf("expected read on closed connection to fail")
	}
}

package server

import (
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/keymux/keymux/proxy/common"
	"github.com/keymux/keymux/proxy/serializer"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("server")

var (
	serverRequests      = metrics.NewCounter("keymux_server_requests_total")
	serverCodecFailures = metrics.NewCounter("keymux_server_codec_failures_total")
)

const defaultBufferSize = 4096

// HandleFunc processes one decoded request and produces its reply. It is
// called from worker goroutines and must be safe for concurrent use.
type HandleFunc func(req *common.Message) *common.Message

// Server accepts framed connections and dispatches each request frame to a
// worker. Request frames carry a request ID that is echoed on the reply
// frame, so a single connection can have many requests in flight.
type Server struct {
	config     common.ServerConfig
	serializer serializer.ISerializer
	handler    HandleFunc

	listener   net.Listener
	conns      *xsync.MapOf[uint64, net.Conn]
	nextConnID atomic.Uint64
	bufferPool *sync.Pool
	closed     atomic.Bool
}

// NewServer creates a server for the given configuration and wire protocol.
// A handler must be registered before Start.
func NewServer(config common.ServerConfig, protocol common.Protocol) (*Server, error) {
	s, err := serializer.ForProtocol(protocol)
	if err != nil {
		return nil, err
	}
	if config.MaxWorkersPerConn < 1 {
		config.MaxWorkersPerConn = 1
	}
	return &Server{
		config:     config,
		serializer: s,
		conns:      xsync.NewMapOf[uint64, net.Conn](),
		bufferPool: &sync.Pool{
			New: func() interface{} {
				return make([]byte, defaultBufferSize)
			},
		},
	}, nil
}

// RegisterHandler sets the function that processes decoded requests.
func (s *Server) RegisterHandler(handler HandleFunc) {
	s.handler = handler
}

// Start binds the listener and begins accepting connections in the
// background. Port zero in the endpoint selects an ephemeral port; the bound
// address is available via Addr after Start returns.
func (s *Server) Start() error {
	if s.handler == nil {
		return fmt.Errorf("server: no handler registered")
	}

	listener, err := net.Listen("tcp", s.config.Endpoint)
	if err != nil {
		return fmt.Errorf("server: failed to listen on %s: %v", s.config.Endpoint, err)
	}
	s.listener = listener

	Logger.Infof("listening on %s with %d workers per connection",
		listener.Addr(), s.config.MaxWorkersPerConn)

	go s.acceptLoop()
	return nil
}

// Addr returns the bound listen address. Valid after Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop closes the listener and all accepted connections. In-flight workers
// finish processing but their replies may be lost with the connection.
func (s *Server) Stop() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}
	s.conns.Range(func(_ uint64, conn net.Conn) bool {
		conn.Close()
		return true
	})
	return err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.closed.Load() {
				return
			}
			Logger.Errorf("accept error: %v", err)
			continue
		}
		connID := s.nextConnID.Add(1)
		s.conns.Store(connID, conn)
		go s.handleConnection(connID, conn)
	}
}

// handleConnection reads request frames for one connection and processes
// them in worker goroutines. The number of in-flight workers per connection
// is bounded by a counting semaphore; replies are written back under a
// per-connection mutex since workers complete in arbitrary order.
func (s *Server) handleConnection(connID uint64, conn net.Conn) {
	defer func() {
		s.conns.Delete(connID)
		conn.Close()
	}()

	writeTimeout := time.Duration(s.config.TimeoutSecond) * time.Second

	workerSemaphore := make(chan struct{}, s.config.MaxWorkersPerConn)
	var wg sync.WaitGroup
	var connMutex sync.Mutex

	handleReply := func(requestID uint64, data []byte) {
		defer func() {
			<-workerSemaphore
			wg.Done()
		}()

		start := time.Now()
		resp := s.process(data)
		Logger.Debugf("processed request %d in %s", requestID, time.Since(start))

		connMutex.Lock()
		defer connMutex.Unlock()

		if writeTimeout > 0 {
			if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				Logger.Errorf("failed to set write deadline: %v", err)
				return
			}
		}

		if err := common.WriteFrame(conn, requestID, resp); err != nil {
			Logger.Errorf("failed to write reply: %v", err)
		}
	}

	// Proxy connections stay open between requests, so reads are not
	// bounded by a deadline; the connection lives until the peer closes it
	handleRequest := func() error {
		buf := s.bufferPool.Get().([]byte)

		requestID, data, err := common.ReadFrame(conn, buf)
		if err != nil {
			s.bufferPool.Put(buf)
			return err
		}

		// Blocks when MaxWorkersPerConn requests are already in flight
		workerSemaphore <- struct{}{}
		wg.Add(1)

		go func() {
			defer s.bufferPool.Put(buf)
			handleReply(requestID, data)
		}()

		return nil
	}

	for {
		err := handleRequest()

		if err == io.EOF {
			Logger.Debugf("connection closed by client")
			break
		}

		if err != nil {
			if !s.closed.Load() {
				Logger.Errorf("error handling request: %v", err)
			}
			break
		}
	}

	// Let in-progress workers finish before closing the connection
	wg.Wait()
}

// process decodes one request frame, runs the handler and encodes the
// reply. Codec failures are answered with a remote-error reply so the
// client always receives a frame for its request ID.
func (s *Server) process(data []byte) []byte {
	serverRequests.Inc()

	req := &common.Message{}
	if err := s.serializer.Deserialize(data, req); err != nil {
		serverCodecFailures.Inc()
		Logger.Warningf("failed to deserialize request: %v", err)
		return s.encode(common.NewRemoteErrorReply(common.MsgTUnknown, fmt.Sprintf("malformed request: %v", err)))
	}

	return s.encode(s.handler(req))
}

func (s *Server) encode(reply *common.Message) []byte {
	data, err := s.serializer.Serialize(*reply)
	if err != nil {
		// The reply cannot be encoded; fall back to the minimal error reply
		serverCodecFailures.Inc()
		Logger.Errorf("failed to serialize reply: %v", err)
		data, _ = s.serializer.Serialize(*common.NewRemoteErrorReply(reply.MsgType, "failed to serialize reply"))
	}
	return data
}

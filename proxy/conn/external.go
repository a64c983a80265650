package conn

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/keymux/keymux/proxy/common"
	"github.com/keymux/keymux/proxy/serializer"
	"github.com/puzpuzpuz/xsync/v3"
)

var (
	externalRequests    = metrics.NewCounter(`keymux_conn_requests_total{kind="external"}`)
	externalLocalErrors = metrics.NewCounter(`keymux_conn_local_errors_total{kind="external"}`)
)

// exchangeResult carries a raw reply frame (or a transport error) from the
// reader goroutine to the waiting request
type exchangeResult struct {
	data []byte
	err  error
}

// externalConnection binds directly to one (host, port, protocol) triple and
// speaks the wire protocol itself. The network connection is established
// lazily on first use and re-established on demand after a failure, so
// construction never blocks or fails on an unreachable endpoint.
type externalConnection struct {
	opts       common.ConnectionOptions
	serializer serializer.ISerializer

	connMu sync.Mutex // Protects conn, writes and (re)connects
	conn   net.Conn

	pending       *xsync.MapOf[uint64, chan exchangeResult]
	nextRequestID atomic.Uint64
	closed        atomic.Bool
}

// NewExternalConnection creates a connection to a single backend endpoint.
// The options are validated immediately; reachability is not. Connectivity
// failures surface per request as local-error replies.
func NewExternalConnection(opts common.ConnectionOptions) (Connection, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	s, err := serializer.ForProtocol(opts.Protocol)
	if err != nil {
		return nil, err
	}
	return &externalConnection{
		opts:       opts,
		serializer: s,
		pending:    xsync.NewMapOf[uint64, chan exchangeResult](),
	}, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see conn.Connection)
// --------------------------------------------------------------------------

func (c *externalConnection) SendRequestOne(req *common.Message, onReply ReplyFunc) {
	go func() {
		reply, err := c.exchange(req)
		if err != nil {
			externalLocalErrors.Inc()
			onReply(req, common.NewLocalErrorReply(req.MsgType, err))
			return
		}
		onReply(req, reply)
	}()
}

func (c *externalConnection) HealthCheck() bool {
	reply, err := c.exchange(common.NewPingRequest())
	return err == nil && reply.Result == common.ResOK
}

func (c *externalConnection) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	// Complete whatever is still in flight so every callback fires exactly once
	c.failPending(fmt.Errorf("connection to %s closed", c.opts.Endpoint()))
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// exchange performs one request/reply round trip. It returns an error only
// for failures local to the proxy (connectivity, timeout, codec); the caller
// converts that into a local-error reply.
func (c *externalConnection) exchange(req *common.Message) (*common.Message, error) {
	if c.closed.Load() {
		return nil, fmt.Errorf("connection to %s closed", c.opts.Endpoint())
	}

	externalRequests.Inc()

	data, err := c.serializer.Serialize(*req)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize request: %v", err)
	}

	// Register the request before writing so the reader can match the reply
	requestID := c.nextRequestID.Add(1)
	respCh := make(chan exchangeResult, 1)
	c.pending.Store(requestID, respCh)
	defer c.pending.Delete(requestID)

	timeout := time.Duration(c.opts.Timeout()) * time.Second

	if err := c.writeRequest(requestID, data, timeout); err != nil {
		return nil, err
	}

	select {
	case res := <-respCh:
		if res.err != nil {
			return nil, res.err
		}
		reply := &common.Message{}
		if err := c.serializer.Deserialize(res.data, reply); err != nil {
			return nil, fmt.Errorf("failed to deserialize reply: %v", err)
		}
		return reply, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("request to %s timed out after %s", c.opts.Endpoint(), timeout)
	}
}

// writeRequest establishes the connection if needed and writes one frame.
func (c *externalConnection) writeRequest(requestID uint64, data []byte, timeout time.Duration) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		if err := c.connectLocked(); err != nil {
			return err
		}
	}

	if err := c.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}

	if err := common.WriteFrame(c.conn, requestID, data); err != nil {
		// Drop the connection so the next request redials
		c.conn.Close()
		c.conn = nil
		return fmt.Errorf("failed to write request to %s: %v", c.opts.Endpoint(), err)
	}

	return nil
}

// connectLocked dials the endpoint and starts the reply reader.
// Callers must hold connMu.
func (c *externalConnection) connectLocked() error {
	conn, err := net.DialTimeout("tcp", c.opts.Endpoint(), time.Duration(c.opts.Timeout())*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %v", c.opts.Endpoint(), err)
	}

	Logger.Infof("connected to %s (%s)", c.opts.Endpoint(), c.opts.Protocol)
	c.conn = conn
	go c.readReplies(conn)
	return nil
}

// readReplies reads reply frames in a loop and distributes them to waiting
// requests. On a read error everything in flight is completed with that
// error and the connection is dropped; the next request reconnects.
func (c *externalConnection) readReplies(conn net.Conn) {
	for {
		requestID, data, err := common.ReadFrame(conn, nil)
		if err != nil {
			c.connMu.Lock()
			if c.conn == conn {
				c.conn.Close()
				c.conn = nil
			}
			c.connMu.Unlock()

			c.failPending(fmt.Errorf("connection to %s lost: %v", c.opts.Endpoint(), err))
			return
		}

		if respCh, ok := c.pending.LoadAndDelete(requestID); ok {
			respCh <- exchangeResult{data: data}
		} else if !c.closed.Load() {
			Logger.Warningf("received reply for unknown request ID %d from %s", requestID, c.opts.Endpoint())
		}
	}
}

// failPending completes every in-flight request with the given error.
func (c *externalConnection) failPending(err error) {
	c.pending.Range(func(id uint64, _ chan exchangeResult) bool {
		if respCh, ok := c.pending.LoadAndDelete(id); ok {
			respCh <- exchangeResult{err: err}
		}
		return true
	})
}

package transport

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/netip"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yndnr/snapmesh-go/internal/core/domain"
	"github.com/yndnr/snapmesh-go/internal/telemetry/logger"
	"github.com/yndnr/snapmesh-go/internal/telemetry/metric"
)

// Defaults applied by New for zero Config fields.
const (
	DefaultPort        = 5030
	DefaultMaxChannels = 32
	DefaultMaxPacket   = 65507
	DefaultQueueDepth  = 64

	// firstScanPort is where Open starts scanning when the OS cannot hand
	// out an ephemeral port.
	firstScanPort = 1024
)

// Config configures a Transport.
type Config struct {
	// MaxChannels is the size of the channel table, server channel included.
	MaxChannels int
	// MaxPacket is the receive buffer size. Longer datagrams are truncated.
	MaxPacket int
	// QueueDepth bounds the number of datagrams waiting to be received.
	QueueDepth int
	// DefaultPort is used by ConnectToServer when the address has no port.
	DefaultPort uint16

	Resolver Resolver
	Logger   *slog.Logger
	Metrics  *metric.Registry
}

// Packet is one raw datagram taken off the receive queue.
type Packet struct {
	Data    []byte
	From    netip.AddrPort
	Channel int // domain.NoChannel when the sender is not registered
}

// Received is one frame that passed integrity checks.
type Received struct {
	Frame
	From    netip.AddrPort
	Channel int
}

// Stats is a snapshot of transport counters.
type Stats struct {
	LocalAddr   string `json:"local_addr"`
	SentBytes   uint64 `json:"sent_bytes"`
	RecvBytes   uint64 `json:"recv_bytes"`
	Dropped     uint64 `json:"dropped"`
	Channels    int    `json:"channels"`
	LastChannel int    `json:"last_channel"`
	LastFrom    string `json:"last_from"`
}

type datagram struct {
	data []byte
	from netip.AddrPort
}

// Transport is a channel-addressed UDP endpoint.
//
// Channel management and Stats are safe for concurrent use. WaitReadable,
// ReceiveOne and ReceiveFrame must be called from a single goroutine.
type Transport struct {
	cfg     Config
	logger  *slog.Logger
	metrics *metric.Registry
	dropLog *slog.Logger

	mu          sync.Mutex
	conn        *net.UDPConn
	queue       chan datagram
	done        chan struct{}
	channels    *channelTable
	lastFrom    netip.AddrPort
	lastChannel int

	wg      sync.WaitGroup
	pending *datagram

	sentBytes atomic.Uint64
	recvBytes atomic.Uint64
	dropped   atomic.Uint64
}

// New creates a Transport. The socket is not bound until Open.
func New(cfg Config) *Transport {
	if cfg.MaxChannels <= 0 {
		cfg.MaxChannels = DefaultMaxChannels
	}
	if cfg.MaxPacket <= 0 {
		cfg.MaxPacket = DefaultMaxPacket
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = DefaultQueueDepth
	}
	if cfg.DefaultPort == 0 {
		cfg.DefaultPort = DefaultPort
	}
	if cfg.Resolver == nil {
		cfg.Resolver = net.DefaultResolver
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	log = log.With("component", "transport")

	return &Transport{
		cfg:         cfg,
		logger:      log,
		metrics:     cfg.Metrics,
		dropLog:     logger.Throttle(log, time.Second, 5),
		channels:    newChannelTable(cfg.MaxChannels),
		lastChannel: domain.NoChannel,
	}
}

// Open binds a UDP socket on every IPv4 interface and starts the reader.
//
// Port 0 asks the OS for an ephemeral port. If that fails, ports are tried
// upward from 1024 until one binds.
func (t *Transport) Open(port uint16) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn != nil {
		return domain.ErrTransport.WithDetails("socket already open")
	}

	conn, err := listen(port)
	if err != nil && port == 0 {
		for p := firstScanPort; p <= 65535; p++ {
			if conn, err = listen(uint16(p)); err == nil {
				break
			}
		}
	}
	if err != nil {
		return domain.ErrTransport.WithDetails("bind udp port %d", port).WithCause(err)
	}

	t.conn = conn
	t.queue = make(chan datagram, t.cfg.QueueDepth)
	t.done = make(chan struct{})

	t.wg.Add(1)
	go t.readLoop(conn, t.queue)

	t.logger.Info("udp socket bound", "addr", conn.LocalAddr().String())
	return nil
}

func listen(port uint16) (*net.UDPConn, error) {
	return net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: int(port)})
}

// Close releases the socket and stops the reader. Calling Close on a
// closed Transport is a no-op. Channel bindings are kept.
func (t *Transport) Close() error {
	t.mu.Lock()
	conn := t.conn
	if conn == nil {
		t.mu.Unlock()
		return nil
	}
	t.conn = nil
	t.queue = nil
	close(t.done)
	t.mu.Unlock()

	err := conn.Close()
	t.wg.Wait()
	t.pending = nil

	if err != nil {
		return domain.ErrTransport.WithDetails("close socket").WithCause(err)
	}
	t.logger.Info("udp socket closed")
	return nil
}

func (t *Transport) readLoop(conn *net.UDPConn, queue chan<- datagram) {
	defer t.wg.Done()

	for {
		buf := make([]byte, t.cfg.MaxPacket)
		n, from, err := conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			t.logDrop("udp read failed", "error", err)
			continue
		}

		d := datagram{
			data: buf[:n],
			from: netip.AddrPortFrom(from.Addr().Unmap(), from.Port()),
		}
		select {
		case queue <- d:
		default:
			t.dropped.Add(1)
			t.metrics.RecordDrop(metric.ReasonQueueFull)
			t.logDrop("receive queue full, datagram dropped", "from", d.from.String())
		}
	}
}

// LocalAddr returns the bound address, or the zero value when closed.
func (t *Transport) LocalAddr() netip.AddrPort {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return netip.AddrPort{}
	}
	return t.conn.LocalAddr().(*net.UDPAddr).AddrPort()
}

// WaitReadable blocks until a datagram is queued, timeout elapses or ctx
// is done. A timeout is not an error; callers re-check with ReceiveOne.
func (t *Transport) WaitReadable(ctx context.Context, timeout time.Duration) error {
	if t.pending != nil {
		return nil
	}

	t.mu.Lock()
	queue, done := t.queue, t.done
	t.mu.Unlock()
	if queue == nil {
		return domain.ErrTransportClosed
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case d := <-queue:
		t.pending = &d
	case <-timer.C:
	case <-done:
		return domain.ErrTransportClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// ReceiveOne returns the next queued datagram without blocking. Data
// longer than maxLen is truncated; maxLen <= 0 means no limit.
func (t *Transport) ReceiveOne(maxLen int) (Packet, bool) {
	d, ok := t.dequeue()
	if !ok {
		return Packet{}, false
	}

	t.recvBytes.Add(uint64(len(d.data)))
	t.metrics.RecordReceived(len(d.data))

	data := d.data
	if maxLen > 0 && len(data) > maxLen {
		data = data[:maxLen]
	}

	t.mu.Lock()
	ch := t.channels.lookup(d.from)
	t.lastFrom, t.lastChannel = d.from, ch
	t.mu.Unlock()

	return Packet{Data: data, From: d.from, Channel: ch}, true
}

func (t *Transport) dequeue() (datagram, bool) {
	if t.pending != nil {
		d := *t.pending
		t.pending = nil
		return d, true
	}

	t.mu.Lock()
	queue := t.queue
	t.mu.Unlock()
	if queue == nil {
		return datagram{}, false
	}

	select {
	case d := <-queue:
		return d, true
	default:
		return datagram{}, false
	}
}

// SendTo writes data to the peer bound to channel. Sending on an unbound
// channel is logged and dropped with domain.ErrChannel; byte counters are
// left untouched.
func (t *Transport) SendTo(channel int, data []byte) error {
	t.mu.Lock()
	conn := t.conn
	addr, err := t.channels.addr(channel)
	t.mu.Unlock()

	if err != nil {
		t.logDrop("send on unregistered channel dropped", "channel", channel)
		return err
	}
	if conn == nil {
		return domain.ErrTransportClosed
	}

	n, err := conn.WriteToUDPAddrPort(data, addr)
	if err != nil {
		t.metrics.RecordSendError()
		t.logDrop("udp send failed", "channel", channel, "addr", addr.String(), "bytes", len(data), "error", err)
		return domain.ErrTransport.WithDetails("send to %s", addr).WithCause(err)
	}

	t.sentBytes.Add(uint64(n))
	t.metrics.RecordSent(n)
	return nil
}

// SendFrame encodes f with its checksum and sends it on channel.
func (t *Transport) SendFrame(channel int, f Frame) error {
	return t.SendTo(channel, EncodeFrame(f))
}

// ReceiveFrame takes at most one datagram off the queue and validates it.
// Short reads, checksum mismatches and version mismatches are counted,
// logged and reported as "nothing received".
func (t *Transport) ReceiveFrame() (Received, bool) {
	p, ok := t.ReceiveOne(t.cfg.MaxPacket)
	if !ok {
		return Received{}, false
	}

	f, err := DecodeFrame(p.Data)
	if err != nil {
		reason := metric.ReasonChecksum
		switch {
		case len(p.Data) < FrameHeaderSize:
			reason = metric.ReasonShort
		case errors.Is(err, domain.ErrFrameVersion):
			reason = metric.ReasonVersion
		}
		t.dropped.Add(1)
		t.metrics.RecordDrop(reason)
		t.logDrop("frame dropped", "from", p.From.String(), "channel", p.Channel, "error", err)
		return Received{}, false
	}

	t.metrics.RecordFrame()
	return Received{Frame: f, From: p.From, Channel: p.Channel}, true
}

// RegisterChannel binds addr to the smallest free channel id at or above
// 1 and returns it. An address that is already bound keeps its id.
func (t *Transport) RegisterChannel(addr netip.AddrPort) (int, error) {
	addr, err := normalize(addr)
	if err != nil {
		return domain.NoChannel, err
	}

	t.mu.Lock()
	id, err := t.channels.register(addr)
	t.mu.Unlock()
	if err != nil {
		return domain.NoChannel, err
	}

	t.logger.Debug("channel registered", "channel", id, "addr", addr.String())
	return id, nil
}

// UnregisterChannel frees channel id.
func (t *Transport) UnregisterChannel(id int) error {
	t.mu.Lock()
	err := t.channels.unbind(id)
	t.mu.Unlock()
	if err != nil {
		return err
	}

	t.logger.Debug("channel unregistered", "channel", id)
	return nil
}

// Channels returns every bound channel ordered by id.
func (t *Transport) Channels() []domain.PeerChannel {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.channels.inUse()
}

// Peers returns the ids of bound channels, excluding the server channel.
func (t *Transport) Peers() []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.channels.peers()
}

// ChannelAddr renders the address bound to id as ip:port, or
// "unregistered".
func (t *Transport) ChannelAddr(id int) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	addr, err := t.channels.addr(id)
	if err != nil {
		return domain.PeerChannel{}.String()
	}
	return addr.String()
}

// HighWater returns one past the highest channel id in use.
func (t *Transport) HighWater() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.channels.next
}

// ConnectToServer resolves spec ("host[:port]") and binds it to the server
// channel, releasing any peer channel bound to the same address. Parse and
// lookup failures return domain.ErrResolution.
func (t *Transport) ConnectToServer(ctx context.Context, spec string) error {
	addr, err := t.resolve(ctx, spec)
	if err != nil {
		return err
	}

	t.mu.Lock()
	freed := t.channels.bindServer(addr)
	t.mu.Unlock()

	if freed != domain.NoChannel {
		t.logger.Info("peer channel released for server address", "channel", freed, "addr", addr.String())
	}
	t.logger.Info("server channel bound", "server", spec, "addr", addr.String())
	return nil
}

// Disconnect unbinds the server channel.
func (t *Transport) Disconnect() {
	t.mu.Lock()
	defer t.mu.Unlock()
	_ = t.channels.unbind(domain.ServerChannel)
}

// Stats returns the current counters.
func (t *Transport) Stats() Stats {
	s := Stats{
		SentBytes: t.sentBytes.Load(),
		RecvBytes: t.recvBytes.Load(),
		Dropped:   t.dropped.Load(),
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != nil {
		s.LocalAddr = t.conn.LocalAddr().String()
	}
	s.Channels = len(t.channels.inUse())
	s.LastChannel = t.lastChannel
	if t.lastFrom.IsValid() {
		s.LastFrom = t.lastFrom.String()
	}
	return s
}

func (t *Transport) logDrop(msg string, args ...any) {
	t.dropLog.Warn(msg, args...)
}

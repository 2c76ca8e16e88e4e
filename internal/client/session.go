package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/graalreborn/graalclient/internal/compress"
	"github.com/graalreborn/graalclient/internal/config"
	"github.com/graalreborn/graalclient/internal/constants"
	"github.com/graalreborn/graalclient/internal/crypto"
	"github.com/graalreborn/graalclient/internal/gmap"
	"github.com/graalreborn/graalclient/internal/movement"
	"github.com/graalreborn/graalclient/internal/props"
	"github.com/graalreborn/graalclient/internal/protocol"
)

// MaxBadFrames is the number of consecutive undecodable frames after login
// that is treated as cipher desync.
const MaxBadFrames = 3

// Handler receives every inbound packet after the session has processed it.
// It runs on the read goroutine.
type Handler interface {
	HandlePacket(ctx context.Context, s *Session, msg protocol.Message)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, s *Session, msg protocol.Message)

func (f HandlerFunc) HandlePacket(ctx context.Context, s *Session, msg protocol.Message) {
	f(ctx, s, msg)
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithTransform sets the stream cipher primitive. Defaults to crypto.Passthrough.
func WithTransform(t crypto.Transform) Option {
	return func(s *Session) { s.transform = t }
}

// WithHandler sets the packet handler.
func WithHandler(h Handler) Option {
	return func(s *Session) { s.handler = h }
}

// WithResolver shares a GMAP resolver between sessions.
func WithResolver(r *gmap.Resolver) Option {
	return func(s *Session) { s.resolver = r }
}

// WithMovementOptions passes options to the session's movement coordinator.
func WithMovementOptions(opts ...movement.Option) Option {
	return func(s *Session) { s.moveOpts = append(s.moveOpts, opts...) }
}

// Session is one logged-in connection to a server.
//
// Two goroutines run while the session is up: the read loop decodes inbound
// frames and the write pump sends queued frames in order, at most one per
// MinSendInterval.
type Session struct {
	conn      net.Conn
	cfg       config.Client
	logger    *slog.Logger
	transform crypto.Transform
	handler   Handler
	resolver  *gmap.Resolver
	moveOpts  []movement.Option

	key      byte
	mode     compress.Mode
	cipher   *crypto.Session
	in       *protocol.Codec
	out      *protocol.Codec
	coord    *movement.Coordinator
	prefetch *gmap.Dispatcher
	limiter  *rate.Limiter
	joinPool *BytePool

	state atomic.Int32

	// Per-session write queue. One entry is one frame.
	sendCh    chan []protocol.Message
	closeCh   chan struct{}
	closeOnce sync.Once
	ctx       context.Context // cancelled by Close, bounds prefetch fetches
	cancel    context.CancelFunc

	badFrames int // read goroutine only
}

// Dial connects to the server in cfg and creates a session.
func Dial(ctx context.Context, cfg config.Client, opts ...Option) (*Session, error) {
	d := net.Dialer{Timeout: cfg.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", cfg.Addr())
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", cfg.Addr(), err)
	}
	s, err := NewSession(conn, cfg, opts...)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}

// NewSession creates a session over an established connection.
// Nothing is sent until Run.
func NewSession(conn net.Conn, cfg config.Client, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	scale, err := gmap.ParseScaleHint(cfg.ScaleHint)
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	s := &Session{
		conn:      conn,
		cfg:       cfg,
		logger:    slog.Default(),
		transform: crypto.Passthrough,
		mode:      compress.Mode(cfg.Compression),
		in:        protocol.ServerCodec(),
		out:       protocol.ClientCodec(),
		joinPool:  NewBytePool(256, constants.MaxFrameSize),
		sendCh:    make(chan []protocol.Message, cfg.SendQueueSize),
		closeCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "client", "server", cfg.Addr())

	s.key = byte(cfg.EncryptionKey)
	if s.key == 0 {
		s.key = byte(1 + rand.IntN(constants.MaxByteValue))
	}
	s.cipher = crypto.NewSession(s.transform, s.key)

	if s.resolver == nil {
		s.resolver = gmap.NewResolver(gmap.WithLogger(s.logger))
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	moveOpts := []movement.Option{
		movement.WithLogger(s.logger),
		movement.WithTimeout(cfg.PredictionTimeout),
		movement.WithMaxJump(cfg.MaxCoordinateJump),
	}
	if scale != gmap.ScaleAuto {
		moveOpts = append(moveOpts, movement.WithScale(scale))
	}
	if cfg.PrefetchNeighbor {
		s.prefetch = gmap.NewDispatcher(s.ctx, gmap.FetcherFunc(s.fetchLevel), cfg.PrefetchWorkers, s.logger)
		moveOpts = append(moveOpts, movement.WithPrefetcher(s.prefetch))
	}
	s.coord = movement.NewCoordinator(s.resolver, append(moveOpts, s.moveOpts...)...)

	limit := rate.Inf
	if cfg.MinSendInterval > 0 {
		limit = rate.Every(cfg.MinSendInterval)
	}
	s.limiter = rate.NewLimiter(limit, 1)

	s.state.Store(int32(StateConnected))
	return s, nil
}

// Coordinator returns the session's movement coordinator.
func (s *Session) Coordinator() *movement.Coordinator { return s.coord }

// Resolver returns the session's GMAP resolver.
func (s *Session) Resolver() *gmap.Resolver { return s.resolver }

// Cipher returns the session's cipher state.
func (s *Session) Cipher() *crypto.Session { return s.cipher }

// Key returns the encryption key announced at login.
func (s *Session) Key() byte { return s.key }

// State returns the connection state.
func (s *Session) State() ConnectionState {
	return ConnectionState(s.state.Load())
}

// Run logs in and serves the connection until ctx is cancelled, the session
// is closed, or a fatal error occurs.
func (s *Session) Run(ctx context.Context) error {
	defer s.Close()

	login, err := NewLogin(Login{
		ClientType: s.cfg.ClientType,
		Key:        s.key,
		Version:    s.cfg.Version,
		Account:    s.cfg.Account,
		Password:   s.cfg.Password,
		Identity:   s.cfg.Identity,
	})
	if err != nil {
		return err
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	if err := s.writeFrame(constants.CompressZlib, []protocol.Message{login}); err != nil {
		return fmt.Errorf("sending login: %w", err)
	}
	s.state.Store(int32(StateLoggingIn))
	s.logger.Info("login sent", "account", s.cfg.Account, "version", s.cfg.Version)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.readLoop(gctx) })
	g.Go(func() error { return s.writePump(gctx) })
	g.Go(func() error {
		select {
		case <-gctx.Done():
			s.Close()
		case <-s.closeCh:
		}
		return nil
	})

	err = g.Wait()
	if s.prefetch != nil {
		s.prefetch.Wait()
	}
	if err == nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// Close stops both goroutines and closes the connection. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.closeCh)
		s.cancel()
		s.state.Store(int32(StateClosed))
		if err := s.conn.Close(); err != nil {
			s.logger.Debug("closing connection", "err", err)
		}
	})
}

func (s *Session) closed() bool {
	select {
	case <-s.closeCh:
		return true
	default:
		return false
	}
}

// Send queues packets to be written as one frame. It blocks while the queue is
// full; packets are never dropped.
func (s *Session) Send(ctx context.Context, msgs ...protocol.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	if s.closed() {
		return ErrClosed
	}
	select {
	case s.sendCh <- msgs:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.closeCh:
		return ErrClosed
	}
}

// Move predicts a move of the local player to world tile (x, y) and sends it.
// It returns the predicted level.
func (s *Session) Move(ctx context.Context, x, y float64) (string, error) {
	m := s.coord.Predict(x, y)

	var seg *gmap.Segment
	if m.OnGMap {
		seg = &m.Segment
	}
	msg, err := NewMove(m.LocalX, m.LocalY, seg)
	if err != nil {
		return m.Level, err
	}
	return m.Level, s.Send(ctx, msg)
}

// Say sends a message to all players on the level.
func (s *Session) Say(ctx context.Context, text string) error {
	msg, err := NewToAll(text)
	if err != nil {
		return err
	}
	return s.Send(ctx, msg)
}

// fetchLevel is the prefetch Fetcher: it requests the level file.
func (s *Session) fetchLevel(ctx context.Context, level string) error {
	msg, err := NewWantFile(level)
	if err != nil {
		return err
	}
	return s.Send(ctx, msg)
}

// writePump is the single consumer of sendCh. Frames leave in queue order,
// spaced by the rate limiter.
func (s *Session) writePump(ctx context.Context) error {
	for {
		select {
		case msgs := <-s.sendCh:
			if err := s.limiter.Wait(ctx); err != nil {
				if s.closed() {
					return nil
				}
				return err
			}
			buf := s.joinPool.Get()
			n := 0
			for _, m := range msgs {
				var err error
				if buf, err = s.out.AppendJoin(buf, m.ID, m.Payload); err != nil {
					s.logger.Warn("dropping unencodable packet", "packet", m.ID, "err", err)
					continue
				}
				n++
			}
			if n == 0 {
				s.joinPool.Put(buf)
				continue
			}
			err := s.writeRaw(compress.Select(s.mode, len(buf)), buf)
			s.joinPool.Put(buf)
			if err != nil {
				if s.closed() {
					return nil
				}
				return fmt.Errorf("write pump: %w", err)
			}
		case <-s.closeCh:
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

func (s *Session) writeFrame(sel byte, msgs []protocol.Message) error {
	var buf []byte
	for _, m := range msgs {
		var err error
		if buf, err = s.out.AppendJoin(buf, m.ID, m.Payload); err != nil {
			return err
		}
	}
	return s.writeRaw(sel, buf)
}

// writeRaw compresses, encrypts and writes one frame. Compress allocates a
// fresh body, so data may be returned to a pool afterwards.
func (s *Session) writeRaw(sel byte, data []byte) error {
	body, err := compress.Compress(sel, data)
	if err != nil {
		return err
	}
	if err := s.cipher.Encrypt(body); err != nil {
		return fmt.Errorf("%w: %v", ErrCipherDesync, err)
	}
	if s.cfg.WriteTimeout > 0 {
		if err := s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)); err != nil {
			return fmt.Errorf("set write deadline: %w", err)
		}
	}
	return protocol.WriteFrame(s.conn, protocol.Frame{Compression: sel, Body: body})
}

func (s *Session) readLoop(ctx context.Context) error {
	buf := make([]byte, 0, constants.DefaultReadBufSize)
	for {
		if s.cfg.ReadTimeout > 0 {
			if err := s.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout)); err != nil {
				return fmt.Errorf("set read deadline: %w", err)
			}
		}

		frame, next, err := protocol.ReadFrame(s.conn, buf)
		buf = next
		if err != nil {
			if s.closed() {
				return nil
			}
			if errors.Is(err, protocol.ErrMalformedFrame) {
				s.logger.Warn("skipping empty frame", "err", err)
				continue
			}
			return fmt.Errorf("read loop: %w", err)
		}

		if err := s.cipher.Decrypt(frame.Body); err != nil {
			return fmt.Errorf("%w: %v", ErrCipherDesync, err)
		}

		plain, err := compress.Decompress(frame.Compression, frame.Body)
		if err != nil {
			if err := s.badFrame(err); err != nil {
				return err
			}
			continue
		}

		msgs, err := s.in.Split(plain)
		if err != nil {
			s.logger.Warn("malformed frame, dropping tail", "err", err, "packets", len(msgs))
			if len(msgs) == 0 {
				if err := s.badFrame(err); err != nil {
					return err
				}
				continue
			}
		}
		s.badFrames = 0

		for _, msg := range msgs {
			if err := s.dispatch(ctx, msg); err != nil {
				return err
			}
		}
	}
}

// badFrame counts an undecodable frame. After login, MaxBadFrames in a row
// mean the cipher streams diverged.
func (s *Session) badFrame(cause error) error {
	s.logger.Warn("undecodable frame", "err", cause)
	if s.State() != StateLoggedIn {
		return nil
	}
	s.badFrames++
	if s.badFrames >= MaxBadFrames {
		s.logger.Error("cipher desync, session must reconnect", "frames", s.badFrames)
		return fmt.Errorf("%w: %d consecutive undecodable frames: %v", ErrCipherDesync, s.badFrames, cause)
	}
	return nil
}

func (s *Session) dispatch(ctx context.Context, msg protocol.Message) error {
	s.logger.Debug("packet received", "packet", msg.ID, "len", len(msg.Payload))

	switch msg.ID {
	case constants.PLOSignature:
		s.cipher.Reset(s.key)
		s.state.Store(int32(StateLoggedIn))
		s.logger.Info("login accepted")

	case constants.PLODiscMessage:
		text, _ := ParseText(msg.Payload)
		s.logger.Info("disconnected by server", "message", text)
		return fmt.Errorf("%w: %s", ErrDisconnected, text)

	case constants.PLOPlayerProps:
		list, err := props.Decode(msg.Payload)
		if err != nil {
			s.logger.Warn("player props truncated", "err", err, "decoded", len(list))
		}
		if outcome, err := s.coord.OnServerProperties(list); err != nil {
			s.logger.Debug("server position not applied", "outcome", outcome, "err", err)
		}

	case constants.PLOLevelName:
		name, _ := ParseText(msg.Payload)
		accepted := s.coord.OnServerLevelName(name)
		s.logger.Debug("level name", "level", name, "accepted", accepted)
		if gmap.IsGMap(name) {
			if _, ok := s.resolver.Structure(name); !ok {
				if err := s.requestFile(ctx, name); err != nil {
					return err
				}
			}
		}

	case constants.PLOPlayerWarped:
		w, err := ParsePlayerWarped(msg.Payload)
		if err != nil {
			s.logger.Warn("bad warp packet", "err", err)
			break
		}
		s.coord.Warp(w.Level, gmap.Segment{}, w.X, w.Y)

	case constants.PLOPlayerWarp2:
		w, err := ParsePlayerWarp2(msg.Payload)
		if err != nil {
			s.logger.Warn("bad warp2 packet", "err", err)
			break
		}
		s.coord.Warp(w.Level, w.Segment, w.X, w.Y)

	case constants.PLOFile:
		f, err := ParseFile(msg.Payload)
		if err != nil {
			s.logger.Warn("bad file packet", "err", err)
			break
		}
		s.storeFile(f)
	}

	if s.handler != nil {
		s.handler.HandlePacket(ctx, s, msg)
	}
	return nil
}

func (s *Session) requestFile(ctx context.Context, name string) error {
	msg, err := NewWantFile(name)
	if err != nil {
		s.logger.Warn("cannot request file", "file", name, "err", err)
		return nil
	}
	if err := s.Send(ctx, msg); err != nil && !errors.Is(err, ErrClosed) {
		return err
	}
	return nil
}

// storeFile registers downloaded world files with the resolver.
func (s *Session) storeFile(f File) {
	if gmap.IsGMap(f.Name) {
		st, err := gmap.ParseStructure(f.Name, bytes.NewReader(f.Data))
		if err != nil {
			s.logger.Warn("bad gmap file", "file", f.Name, "err", err)
			return
		}
		s.resolver.RegisterStructure(st)
		return
	}
	s.resolver.AddKnownLevel(f.Name)
}

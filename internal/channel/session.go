package channel

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/TienDattttt/shoppi-sub010/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultMaxReconnectAttempts = 5
	defaultReconnectDelay       = 2 * time.Second
	defaultUpdateBuffer         = 64
)

// Config bounds the session's reconnection policy: a fixed number of
// attempts with a fixed inter-attempt delay.
type Config struct {
	MaxReconnectAttempts int
	ReconnectDelay       time.Duration
}

// Session owns one logical subscription over a physical connection. It runs
// the reconnection state machine: transport loss moves it to reconnecting and
// it retries within the configured budget; exceeding the budget closes the
// session and surfaces ErrConnectivityExhausted to the owner exactly once.
// On every (re)connect it re-issues join-room for each tracked shipment
// before the connection is considered live, because join state does not
// survive a transport reconnect.
// sessionMetrics is the slice of observability.Metrics the session uses.
type sessionMetrics interface {
	IncReconnectAttempt()
}

type Session struct {
	id        string
	transport Transport
	logger    *zap.Logger
	cfg       Config
	metrics   sessionMetrics
	sleep     func(ctx context.Context, d time.Duration) error

	updates  chan Frame
	stop     chan struct{}
	stopOnce sync.Once

	mu      sync.Mutex
	state   State
	conn    Conn
	tracked map[string]struct{}
}

func NewSession(transport Transport, cfg Config, logger *zap.Logger) (*Session, error) {
	return newSession(transport, cfg, logger, sleepWithContext)
}

func newSession(transport Transport, cfg Config, logger *zap.Logger, sleepFn func(ctx context.Context, d time.Duration) error) (*Session, error) {
	if transport == nil {
		return nil, errors.New("transport is required")
	}
	if cfg.MaxReconnectAttempts <= 0 {
		cfg.MaxReconnectAttempts = defaultMaxReconnectAttempts
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = defaultReconnectDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if sleepFn == nil {
		sleepFn = sleepWithContext
	}

	return &Session{
		id:        uuid.NewString(),
		transport: transport,
		logger:    logger,
		cfg:       cfg,
		sleep:     sleepFn,
		updates:   make(chan Frame, defaultUpdateBuffer),
		stop:      make(chan struct{}),
		state:     StateDisconnected,
		tracked:   make(map[string]struct{}),
	}, nil
}

func (s *Session) ID() string { return s.id }

// SetMetrics attaches a reconnect-attempt counter. Call before Run.
func (s *Session) SetMetrics(metrics sessionMetrics) {
	s.metrics = metrics
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Updates is the stream of location-update and status-update frames received
// from the server side. It is closed when the session reaches closed.
func (s *Session) Updates() <-chan Frame { return s.updates }

// Track registers interest in a shipment's room. When connected, the join is
// issued immediately; otherwise it is issued on the next (re)connect.
func (s *Session) Track(ctx context.Context, shipmentID string) error {
	if shipmentID == "" {
		return errors.New("shipment id is required")
	}

	s.mu.Lock()
	s.tracked[shipmentID] = struct{}{}
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Send(ctx, JoinFrame(shipmentID))
}

// Untrack drops interest in a shipment's room, issuing leave when connected.
func (s *Session) Untrack(ctx context.Context, shipmentID string) error {
	s.mu.Lock()
	delete(s.tracked, shipmentID)
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Send(ctx, LeaveFrame(shipmentID))
}

// SendLocation relays a shipper position report upstream.
func (s *Session) SendLocation(ctx context.Context, shipmentID string, sample domain.LocationSample) error {
	if err := sample.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	return conn.Send(ctx, LocationFrame(shipmentID, sample))
}

// Stop requests a graceful shutdown: the run loop leaves every joined room,
// tears down the transport, and returns nil.
func (s *Session) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// Run drives the session until the context is canceled, Stop is called, or a
// terminal connectivity error occurs. The terminal error is returned exactly
// once; clean shutdown returns nil.
func (s *Session) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.setState(StateConnecting)
	conn, err := s.dialAndJoin(ctx)
	if err != nil {
		if errors.Is(err, ErrConnectionRejected) {
			s.finish(ctx, nil, false)
			return err
		}
		if s.interrupted(ctx) {
			s.finish(ctx, nil, false)
			return nil
		}
		conn, err = s.retryLoop(ctx)
		if err != nil {
			s.finish(ctx, nil, false)
			return err
		}
		if conn == nil {
			s.finish(ctx, nil, false)
			return nil
		}
	}
	s.attach(conn)

	for {
		select {
		case <-ctx.Done():
			s.finish(ctx, conn, true)
			return nil
		case <-s.stop:
			s.finish(ctx, conn, true)
			return nil
		case frame, ok := <-conn.Receive():
			if !ok {
				s.logger.Warn("transport lost",
					zap.String("sessionId", s.id),
					zap.Error(conn.Err()),
				)
				s.detach()

				next, err := s.retryLoop(ctx)
				if err != nil {
					s.finish(ctx, nil, false)
					return err
				}
				if next == nil {
					s.finish(ctx, nil, false)
					return nil
				}
				conn = next
				s.attach(conn)
				continue
			}

			select {
			case s.updates <- frame:
			case <-ctx.Done():
				s.finish(ctx, conn, true)
				return nil
			case <-s.stop:
				s.finish(ctx, conn, true)
				return nil
			}
		}
	}
}

// retryLoop attempts reconnection within the budget. It returns (nil, nil)
// when interrupted by cancellation or Stop, and ErrConnectivityExhausted or
// ErrConnectionRejected as the single terminal error otherwise.
func (s *Session) retryLoop(ctx context.Context) (Conn, error) {
	s.setState(StateReconnecting)

	for attempt := 1; attempt <= s.cfg.MaxReconnectAttempts; attempt++ {
		if err := s.sleepInterruptible(ctx); err != nil {
			return nil, nil
		}

		if s.metrics != nil {
			s.metrics.IncReconnectAttempt()
		}

		conn, err := s.dialAndJoin(ctx)
		if err == nil {
			s.logger.Info("reconnected",
				zap.String("sessionId", s.id),
				zap.Int("attempt", attempt),
			)
			return conn, nil
		}
		if errors.Is(err, ErrConnectionRejected) {
			return nil, err
		}
		if s.interrupted(ctx) {
			return nil, nil
		}

		s.logger.Warn("reconnect attempt failed",
			zap.String("sessionId", s.id),
			zap.Int("attempt", attempt),
			zap.Int("maxAttempts", s.cfg.MaxReconnectAttempts),
			zap.Error(err),
		)
	}

	return nil, ErrConnectivityExhausted
}

// dialAndJoin establishes a connection and re-issues join-room for every
// tracked shipment before the connection is handed back. A join failure
// counts as a transport failure of the whole attempt.
func (s *Session) dialAndJoin(ctx context.Context) (Conn, error) {
	conn, err := s.transport.Dial(ctx)
	if err != nil {
		return nil, err
	}

	for _, shipmentID := range s.trackedSnapshot() {
		if err := conn.Send(ctx, JoinFrame(shipmentID)); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}

	return conn, nil
}

func (s *Session) finish(ctx context.Context, conn Conn, leaveRooms bool) {
	if conn != nil {
		if leaveRooms {
			for _, shipmentID := range s.trackedSnapshot() {
				if err := conn.Send(ctx, LeaveFrame(shipmentID)); err != nil {
					s.logger.Debug("best-effort leave failed",
						zap.String("sessionId", s.id),
						zap.String("shipmentId", shipmentID),
						zap.Error(err),
					)
					break
				}
			}
		}
		_ = conn.Close()
	}

	s.mu.Lock()
	s.conn = nil
	s.state = StateClosed
	s.mu.Unlock()

	close(s.updates)
}

func (s *Session) attach(conn Conn) {
	s.mu.Lock()
	s.conn = conn
	s.state = StateConnected
	s.mu.Unlock()
}

func (s *Session) detach() {
	s.mu.Lock()
	s.conn = nil
	s.mu.Unlock()
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Session) trackedSnapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	rooms := make([]string, 0, len(s.tracked))
	for shipmentID := range s.tracked {
		rooms = append(rooms, shipmentID)
	}
	return rooms
}

func (s *Session) interrupted(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}

func (s *Session) sleepInterruptible(ctx context.Context) error {
	select {
	case <-s.stop:
		return errors.New("session stopped")
	default:
	}
	return s.sleep(ctx, s.cfg.ReconnectDelay)
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

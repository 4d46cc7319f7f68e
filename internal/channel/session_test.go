package channel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/TienDattttt/shoppi-sub010/internal/domain"
)

type fakeConn struct {
	mu      sync.Mutex
	sent    []Frame
	recv    chan Frame
	lostErr error
	lost    bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{recv: make(chan Frame, 16)}
}

func (c *fakeConn) Send(_ context.Context, frame Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, frame)
	return nil
}

func (c *fakeConn) Receive() <-chan Frame { return c.recv }

func (c *fakeConn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lostErr
}

func (c *fakeConn) Close() error { return nil }

// dropTransport simulates a transport-level disconnect.
func (c *fakeConn) dropTransport(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lost {
		return
	}
	c.lost = true
	c.lostErr = err
	close(c.recv)
}

func (c *fakeConn) sentFrames() []Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Frame, len(c.sent))
	copy(out, c.sent)
	return out
}

type fakeTransport struct {
	mu     sync.Mutex
	dials  int
	dialFn func(attempt int) (Conn, error)
}

func (t *fakeTransport) Dial(_ context.Context) (Conn, error) {
	t.mu.Lock()
	t.dials++
	attempt := t.dials
	fn := t.dialFn
	t.mu.Unlock()
	return fn(attempt)
}

func (t *fakeTransport) dialCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dials
}

type attemptCounter struct {
	mu sync.Mutex
	n  int
}

func (c *attemptCounter) IncReconnectAttempt() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
}

func (c *attemptCounter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

// waitForDials blocks until the transport has been dialed at least n times,
// so a post-drop wait for connected cannot observe the pre-drop connection.
func waitForDials(t *testing.T, tr *fakeTransport, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if tr.dialCount() >= n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("dials = %d, want at least %d", tr.dialCount(), n)
}

func waitForState(t *testing.T, s *Session, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("session state = %s, want %s", s.State(), want)
}

func testConfig() Config {
	return Config{MaxReconnectAttempts: 3, ReconnectDelay: time.Millisecond}
}

func TestSessionReconnectReissuesJoin(t *testing.T) {
	t.Parallel()

	conn1 := newFakeConn()
	conn2 := newFakeConn()
	transport := &fakeTransport{
		dialFn: func(attempt int) (Conn, error) {
			switch attempt {
			case 1:
				return conn1, nil
			default:
				return conn2, nil
			}
		},
	}

	session, err := NewSession(transport, testConfig(), nil)
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	if err := session.Track(context.Background(), "ship-1"); err != nil {
		t.Fatalf("Track() error = %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- session.Run(context.Background()) }()

	waitForState(t, session, StateConnected)
	if frames := conn1.sentFrames(); len(frames) != 1 || frames[0].Type != FrameJoinRoom || frames[0].ShipmentID != "ship-1" {
		t.Fatalf("initial connect frames = %v, want one join-room for ship-1", frames)
	}

	conn1.dropTransport(errors.New("read timeout"))

	waitForDials(t, transport, 2)
	waitForState(t, session, StateConnected)
	if frames := conn2.sentFrames(); len(frames) != 1 || frames[0].Type != FrameJoinRoom || frames[0].ShipmentID != "ship-1" {
		t.Fatalf("reconnect frames = %v, want join-room re-issued before connected", frames)
	}

	session.Stop()
	if err := <-done; err != nil {
		t.Fatalf("Run() error = %v, want nil on clean stop", err)
	}
}

func TestSessionRetryBudgetExhausted(t *testing.T) {
	t.Parallel()

	conn1 := newFakeConn()
	transport := &fakeTransport{
		dialFn: func(attempt int) (Conn, error) {
			if attempt == 1 {
				return conn1, nil
			}
			return nil, errors.New("connection refused")
		},
	}

	session, err := NewSession(transport, testConfig(), nil)
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	attempts := &attemptCounter{}
	session.SetMetrics(attempts)

	done := make(chan error, 1)
	go func() { done <- session.Run(context.Background()) }()

	waitForState(t, session, StateConnected)
	conn1.dropTransport(errors.New("broken pipe"))

	runErr := <-done
	if !errors.Is(runErr, ErrConnectivityExhausted) {
		t.Fatalf("Run() error = %v, want ErrConnectivityExhausted", runErr)
	}
	if got := attempts.count(); got != testConfig().MaxReconnectAttempts {
		t.Fatalf("reconnect attempts = %d, want %d", got, testConfig().MaxReconnectAttempts)
	}
	if session.State() != StateClosed {
		t.Fatalf("state = %s, want %s", session.State(), StateClosed)
	}
	// One initial dial plus exactly the retry budget.
	if got := transport.dialCount(); got != 1+testConfig().MaxReconnectAttempts {
		t.Fatalf("dials = %d, want %d", got, 1+testConfig().MaxReconnectAttempts)
	}

	// The terminal error surfaced once via Run; the updates stream just ends.
	if _, ok := <-session.Updates(); ok {
		t.Fatal("updates channel should be closed after terminal failure")
	}
}

func TestSessionConnectionRejectedIsTerminal(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{
		dialFn: func(attempt int) (Conn, error) {
			return nil, fmt.Errorf("%w: bad credentials", ErrConnectionRejected)
		},
	}

	session, err := NewSession(transport, testConfig(), nil)
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}

	runErr := session.Run(context.Background())
	if !errors.Is(runErr, ErrConnectionRejected) {
		t.Fatalf("Run() error = %v, want ErrConnectionRejected", runErr)
	}
	if got := transport.dialCount(); got != 1 {
		t.Fatalf("dials = %d, want 1 (no retry for rejected connections)", got)
	}
	if session.State() != StateClosed {
		t.Fatalf("state = %s, want %s", session.State(), StateClosed)
	}
}

func TestSessionStopLeavesJoinedRooms(t *testing.T) {
	t.Parallel()

	conn := newFakeConn()
	transport := &fakeTransport{
		dialFn: func(attempt int) (Conn, error) { return conn, nil },
	}

	session, err := NewSession(transport, testConfig(), nil)
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	if err := session.Track(context.Background(), "ship-1"); err != nil {
		t.Fatalf("Track() error = %v", err)
	}
	if err := session.Track(context.Background(), "ship-2"); err != nil {
		t.Fatalf("Track() error = %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- session.Run(context.Background()) }()
	waitForState(t, session, StateConnected)

	session.Stop()
	if err := <-done; err != nil {
		t.Fatalf("Run() error = %v, want nil", err)
	}

	leaves := map[string]int{}
	for _, frame := range conn.sentFrames() {
		if frame.Type == FrameLeaveRoom {
			leaves[frame.ShipmentID]++
		}
	}
	if leaves["ship-1"] != 1 || leaves["ship-2"] != 1 {
		t.Fatalf("leave frames = %v, want exactly one per joined room", leaves)
	}
}

func TestSessionForwardsUpdates(t *testing.T) {
	t.Parallel()

	conn := newFakeConn()
	transport := &fakeTransport{
		dialFn: func(attempt int) (Conn, error) { return conn, nil },
	}

	session, err := NewSession(transport, testConfig(), nil)
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- session.Run(context.Background()) }()
	waitForState(t, session, StateConnected)

	sample := domain.LocationSample{Latitude: 10.5, Longitude: 106.7, Timestamp: time.Now().UTC()}
	conn.recv <- LocationFrame("ship-1", sample)

	select {
	case frame := <-session.Updates():
		if frame.Type != FrameLocationUpdate || frame.Location == nil || frame.Location.Latitude != 10.5 {
			t.Fatalf("frame = %+v, want the published location-update", frame)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for update frame")
	}

	if err := session.SendLocation(context.Background(), "ship-1", sample); err != nil {
		t.Fatalf("SendLocation() error = %v", err)
	}

	session.Stop()
	if err := <-done; err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}

func TestLocationPayloadSampleStampsMissingTimestamp(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_000, 0).UTC()
	payload := &LocationPayload{Latitude: 1, Longitude: 2}

	sample := payload.Sample(func() time.Time { return now })
	if !sample.Timestamp.Equal(now) {
		t.Fatalf("Timestamp = %v, want receive-side stamp %v", sample.Timestamp, now)
	}

	wire := now.Add(-time.Minute)
	payload.Timestamp = &wire
	sample = payload.Sample(func() time.Time { return now })
	if !sample.Timestamp.Equal(wire) {
		t.Fatalf("Timestamp = %v, want wire timestamp %v", sample.Timestamp, wire)
	}
}

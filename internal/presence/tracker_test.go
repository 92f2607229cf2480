package presence

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/jortega/partidasync/internal/model"
	"github.com/jortega/partidasync/internal/storage/memory"
	"github.com/jortega/partidasync/internal/testutil"
)

type TrackerSuite struct {
	suite.Suite
	gateway *memory.Gateway
	tracker *Tracker
}

func TestTrackerSuite(t *testing.T) {
	suite.Run(t, new(TrackerSuite))
}

func (s *TrackerSuite) SetupTest() {
	s.gateway = memory.New()
	s.tracker = New(s.gateway, testutil.NopLogger())
}

func (s *TrackerSuite) TestMarkOnline() {
	_ = s.gateway.SaveUser(context.Background(), &model.User{ID: 42, Username: "Alice"})

	s.tracker.MarkOnline(42)
	s.True(s.tracker.IsOnline(42))
	s.Equal(1, s.tracker.OnlineCount())

	s.tracker.Flush()
	user, err := s.gateway.GetUser(context.Background(), 42)
	s.Require().NoError(err)
	s.True(user.Online)
}

func (s *TrackerSuite) TestMarkOffline() {
	_ = s.gateway.SaveUser(context.Background(), &model.User{ID: 42, Username: "Alice"})

	s.tracker.MarkOnline(42)
	s.tracker.MarkOffline(42)

	s.False(s.tracker.IsOnline(42))
	s.Equal(0, s.tracker.OnlineCount())

	s.tracker.Flush()
	user, _ := s.gateway.GetUser(context.Background(), 42)
	s.False(user.Online)
}

func (s *TrackerSuite) TestUnknownUserIsOffline() {
	s.False(s.tracker.IsOnline(99))
}

// gatedGateway blocks presence writes until released, forcing later state
// changes to queue behind the in-flight one.
type gatedGateway struct {
	*memory.Gateway
	release chan struct{}
	mu      sync.Mutex
	writes  []bool
}

func (g *gatedGateway) SetUserOnline(ctx context.Context, id model.UserID, online bool) error {
	<-g.release
	g.mu.Lock()
	g.writes = append(g.writes, online)
	g.mu.Unlock()
	return g.Gateway.SetUserOnline(ctx, id, online)
}

func (s *TrackerSuite) TestRapidReconnectPersistsLatestState() {
	gw := &gatedGateway{Gateway: memory.New(), release: make(chan struct{})}
	_ = gw.SaveUser(context.Background(), &model.User{ID: 42, Username: "Alice"})
	tracker := New(gw, testutil.NopLogger())

	// Offline arrives while the online write is still in flight
	tracker.MarkOnline(42)
	tracker.MarkOffline(42)
	close(gw.release)
	tracker.Flush()

	user, err := gw.GetUser(context.Background(), 42)
	s.Require().NoError(err)
	s.False(user.Online)

	gw.mu.Lock()
	defer gw.mu.Unlock()
	s.Require().NotEmpty(gw.writes)
	s.False(gw.writes[len(gw.writes)-1])
}

// failingGateway always errors on presence writes
type failingGateway struct {
	*memory.Gateway
	mu    sync.Mutex
	calls int
}

func (f *failingGateway) SetUserOnline(ctx context.Context, id model.UserID, online bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return errors.New("store unavailable")
}

func (s *TrackerSuite) TestPersistenceFailureIsNonFatal() {
	gw := &failingGateway{Gateway: memory.New()}
	tracker := New(gw, testutil.NopLogger())

	s.NotPanics(func() {
		tracker.MarkOnline(42)
		tracker.Flush()
	})

	// In-memory view stays authoritative
	s.True(tracker.IsOnline(42))
	gw.mu.Lock()
	defer gw.mu.Unlock()
	s.Equal(1, gw.calls)
}

package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/jortega/partidasync/internal/dependencies/mocks"
	"github.com/jortega/partidasync/internal/model"
	"github.com/jortega/partidasync/internal/storage/memory"
	"github.com/jortega/partidasync/internal/testutil"
)

type ControllerSuite struct {
	suite.Suite
	gateway    *memory.Gateway
	clock      *mocks.MockClock
	random     *mocks.MockRandom
	controller *Controller
	ctx        context.Context
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerSuite))
}

func (s *ControllerSuite) SetupTest() {
	s.gateway = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.controller = NewController(s.gateway, s.clock, s.random, testutil.NopLogger())
	s.ctx = context.Background()
}

func (s *ControllerSuite) alice() model.UserIdentity {
	return model.UserIdentity{ID: 42, Username: "Alice"}
}

func (s *ControllerSuite) bob() model.UserIdentity {
	return model.UserIdentity{ID: 7, Username: "Bob"}
}

func (s *ControllerSuite) testConfig() model.GameConfig {
	return model.GameConfig{Name: "Test", MaxPlayers: 2}
}

// CreateGame tests

func (s *ControllerSuite) TestCreateGameSucceeds() {
	s.random.QueueString("ABC123")

	snapshot, err := s.controller.CreateGame(s.ctx, s.alice(), s.testConfig())
	s.Require().NoError(err)

	s.Equal(model.GameCode("ABC123"), snapshot.Code)
	s.Equal(model.GameStatusWaiting, snapshot.Status)
	s.Require().Len(snapshot.Players, 1)
	s.Equal(model.UserID(42), snapshot.Players[0].UserID)
	s.True(snapshot.Players[0].IsCreator)
}

func (s *ControllerSuite) TestCreateGameConfigRoundTrip() {
	s.random.QueueString("ABC123")
	cfg := model.GameConfig{
		Name:       "Operación Tormenta",
		MaxPlayers: 6,
		Settings:   map[string]any{"mapa": "desierto", "turnos": float64(20)},
	}

	_, err := s.controller.CreateGame(s.ctx, s.alice(), cfg)
	s.Require().NoError(err)

	snapshot, err := s.controller.GetGame(s.ctx, "ABC123")
	s.Require().NoError(err)
	s.Equal(cfg, snapshot.Config)
	s.Equal(model.GameStatusWaiting, snapshot.Status)
}

func (s *ControllerSuite) TestCreateGameMissingConfig() {
	_, err := s.controller.CreateGame(s.ctx, s.alice(), model.GameConfig{})
	s.ErrorIs(err, model.ErrMissingConfig)
}

func (s *ControllerSuite) TestCreateGameRetriesOnCodeCollision() {
	s.random.QueueString("ABC123")
	_, err := s.controller.CreateGame(s.ctx, s.alice(), s.testConfig())
	s.Require().NoError(err)

	// First generated code collides, second is fresh
	s.random.QueueString("ABC123", "XYZ789")
	snapshot, err := s.controller.CreateGame(s.ctx, s.bob(), s.testConfig())
	s.Require().NoError(err)
	s.Equal(model.GameCode("XYZ789"), snapshot.Code)
}

func (s *ControllerSuite) TestCreateGameExhaustsRetries() {
	s.random.QueueString("ABC123")
	_, err := s.controller.CreateGame(s.ctx, s.alice(), s.testConfig())
	s.Require().NoError(err)

	// Every attempt collides
	s.random.QueueString("ABC123", "ABC123", "ABC123", "ABC123", "ABC123")
	_, err = s.controller.CreateGame(s.ctx, s.bob(), s.testConfig())
	s.ErrorIs(err, model.ErrCodeGenerationExhausted)
}

// JoinGame tests

func (s *ControllerSuite) TestJoinGameSucceeds() {
	s.random.QueueString("ABC123")
	_, _ = s.controller.CreateGame(s.ctx, s.alice(), s.testConfig())

	snapshot, err := s.controller.JoinGame(s.ctx, "ABC123", s.bob(), "rojo")
	s.Require().NoError(err)
	s.Len(snapshot.Players, 2)
}

func (s *ControllerSuite) TestJoinGameNotFound() {
	_, err := s.controller.JoinGame(s.ctx, "NOPE42", s.bob(), "")
	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *ControllerSuite) TestJoinGameTwiceIsConflict() {
	s.random.QueueString("ABC123")
	_, _ = s.controller.CreateGame(s.ctx, s.alice(), model.GameConfig{Name: "Test", MaxPlayers: 4})

	_, err := s.controller.JoinGame(s.ctx, "ABC123", s.bob(), "")
	s.Require().NoError(err)

	_, err = s.controller.JoinGame(s.ctx, "ABC123", s.bob(), "")
	s.ErrorIs(err, model.ErrAlreadyJoined)
}

func (s *ControllerSuite) TestJoinGameFull() {
	s.random.QueueString("ABC123")
	_, _ = s.controller.CreateGame(s.ctx, s.alice(), model.GameConfig{Name: "Test", MaxPlayers: 2})

	_, err := s.controller.JoinGame(s.ctx, "ABC123", s.bob(), "")
	s.Require().NoError(err)

	_, err = s.controller.JoinGame(s.ctx, "ABC123", model.UserIdentity{ID: 9, Username: "Carol"}, "")
	s.ErrorIs(err, model.ErrGameFull)
}

// slowListGateway widens the window between the capacity read and the
// membership insert so racing joins actually overlap.
type slowListGateway struct {
	*memory.Gateway
}

func (g *slowListGateway) ListMemberships(ctx context.Context, code model.GameCode) ([]*model.Membership, error) {
	time.Sleep(10 * time.Millisecond)
	return g.Gateway.ListMemberships(ctx, code)
}

func (s *ControllerSuite) TestConcurrentJoinsRespectCapacity() {
	controller := NewController(&slowListGateway{Gateway: s.gateway}, s.clock, s.random, testutil.NopLogger())

	s.random.QueueString("ABC123")
	_, err := controller.CreateGame(s.ctx, s.alice(), model.GameConfig{Name: "Test", MaxPlayers: 2})
	s.Require().NoError(err)

	errs := make([]error, 5)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user := model.UserIdentity{ID: model.UserID(100 + i), Username: fmt.Sprintf("user%d", i)}
			_, errs[i] = controller.JoinGame(s.ctx, "ABC123", user, "")
		}(i)
	}
	wg.Wait()

	joined, full := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			joined++
		case errors.Is(err, model.ErrGameFull):
			full++
		default:
			s.Require().NoError(err)
		}
	}
	s.Equal(1, joined)
	s.Equal(4, full)

	// Exactly the creator plus one joiner made it in
	members, err := s.gateway.ListMemberships(s.ctx, "ABC123")
	s.Require().NoError(err)
	s.Len(members, 2)
}

func (s *ControllerSuite) TestJoinStartedGameRejected() {
	s.random.QueueString("ABC123")
	_, _ = s.controller.CreateGame(s.ctx, s.alice(), s.testConfig())
	_, err := s.controller.StartGame(s.ctx, "ABC123", 42)
	s.Require().NoError(err)

	_, err = s.controller.JoinGame(s.ctx, "ABC123", s.bob(), "")
	s.ErrorIs(err, model.ErrGameNotJoinable)
}

func (s *ControllerSuite) TestLateJoinAllowedWhenConfigured() {
	s.random.QueueString("ABC123")
	cfg := model.GameConfig{Name: "Test", MaxPlayers: 4, AllowLateJoin: true}
	_, _ = s.controller.CreateGame(s.ctx, s.alice(), cfg)
	_, err := s.controller.StartGame(s.ctx, "ABC123", 42)
	s.Require().NoError(err)

	_, err = s.controller.JoinGame(s.ctx, "ABC123", s.bob(), "")
	s.NoError(err)
}

// StartGame tests

func (s *ControllerSuite) TestStartGameByCreator() {
	s.random.QueueString("ABC123")
	_, _ = s.controller.CreateGame(s.ctx, s.alice(), s.testConfig())

	snapshot, err := s.controller.StartGame(s.ctx, "ABC123", 42)
	s.Require().NoError(err)
	s.Equal(model.GameStatusInProgress, snapshot.Status)
}

func (s *ControllerSuite) TestStartGameByNonCreatorLeavesStatusUnchanged() {
	s.random.QueueString("ABC123")
	_, _ = s.controller.CreateGame(s.ctx, s.alice(), s.testConfig())
	_, _ = s.controller.JoinGame(s.ctx, "ABC123", s.bob(), "")

	_, err := s.controller.StartGame(s.ctx, "ABC123", 7)
	s.ErrorIs(err, model.ErrNotCreator)

	snapshot, _ := s.controller.GetGame(s.ctx, "ABC123")
	s.Equal(model.GameStatusWaiting, snapshot.Status)
}

func (s *ControllerSuite) TestStartGameTwiceIsConflict() {
	s.random.QueueString("ABC123")
	_, _ = s.controller.CreateGame(s.ctx, s.alice(), s.testConfig())
	_, _ = s.controller.StartGame(s.ctx, "ABC123", 42)

	_, err := s.controller.StartGame(s.ctx, "ABC123", 42)
	s.ErrorIs(err, model.ErrGameAlreadyStarted)
}

// CancelGame tests

func (s *ControllerSuite) TestCancelGameDeletesEverything() {
	s.random.QueueString("ABC123")
	_, _ = s.controller.CreateGame(s.ctx, s.alice(), s.testConfig())
	_, _ = s.controller.JoinGame(s.ctx, "ABC123", s.bob(), "")

	err := s.controller.CancelGame(s.ctx, "ABC123", 42)
	s.Require().NoError(err)

	_, err = s.controller.GetGame(s.ctx, "ABC123")
	s.ErrorIs(err, model.ErrGameNotFound)

	members, _ := s.gateway.ListMemberships(s.ctx, "ABC123")
	s.Empty(members)
}

// failingDeleteGateway rejects game-record deletion
type failingDeleteGateway struct {
	*memory.Gateway
}

var errStorageDown = errors.New("storage unavailable")

func (g *failingDeleteGateway) DeleteGame(ctx context.Context, code model.GameCode) error {
	return errStorageDown
}

func (s *ControllerSuite) TestCancelGameFailureLeavesGameIntact() {
	s.random.QueueString("ABC123")
	_, _ = s.controller.CreateGame(s.ctx, s.alice(), s.testConfig())
	_, _ = s.controller.JoinGame(s.ctx, "ABC123", s.bob(), "")

	controller := NewController(&failingDeleteGateway{Gateway: s.gateway}, s.clock, s.random, testutil.NopLogger())

	err := controller.CancelGame(s.ctx, "ABC123", 42)
	s.ErrorIs(err, errStorageDown)

	// Nothing was deleted: the game still lists with both members
	snapshot, err := s.controller.GetGame(s.ctx, "ABC123")
	s.Require().NoError(err)
	s.Len(snapshot.Players, 2)
}

func (s *ControllerSuite) TestCancelGameByNonCreator() {
	s.random.QueueString("ABC123")
	_, _ = s.controller.CreateGame(s.ctx, s.alice(), s.testConfig())
	_, _ = s.controller.JoinGame(s.ctx, "ABC123", s.bob(), "")

	err := s.controller.CancelGame(s.ctx, "ABC123", 7)
	s.ErrorIs(err, model.ErrNotCreator)
}

// Cleanup tests

func (s *ControllerSuite) TestCleanupStaleGames() {
	s.random.QueueString("ABC123", "XYZ789")
	_, _ = s.controller.CreateGame(s.ctx, s.alice(), s.testConfig())
	_, _ = s.controller.CreateGame(s.ctx, s.bob(), s.testConfig())

	// Alice's game loses its only member
	_ = s.gateway.DeleteMembershipsForGame(s.ctx, "ABC123")

	cleaned, err := s.controller.CleanupStaleGames(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, cleaned)

	snapshot, err := s.controller.GetGame(s.ctx, "ABC123")
	s.Require().NoError(err)
	s.Equal(model.GameStatusFinished, snapshot.Status)

	// Bob's populated game is untouched
	snapshot, _ = s.controller.GetGame(s.ctx, "XYZ789")
	s.Equal(model.GameStatusWaiting, snapshot.Status)
}

func (s *ControllerSuite) TestCleanupWithNoGames() {
	cleaned, err := s.controller.CleanupStaleGames(s.ctx)
	s.Require().NoError(err)
	s.Equal(0, cleaned)
}

package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/jortega/partidasync/internal/model"
)

type GatewaySuite struct {
	suite.Suite
	gateway *Gateway
	ctx     context.Context
}

func TestGatewaySuite(t *testing.T) {
	suite.Run(t, new(GatewaySuite))
}

func (s *GatewaySuite) SetupTest() {
	s.gateway = New()
	s.ctx = context.Background()
}

func (s *GatewaySuite) game(code string, status model.GameStatus) *model.GameRecord {
	return &model.GameRecord{
		Code:      model.GameCode(code),
		Config:    model.GameConfig{Name: "Test", MaxPlayers: 4},
		Status:    status,
		CreatedAt: time.Now(),
	}
}

// Game tests

func (s *GatewaySuite) TestSaveAndGetGame() {
	game := s.game("ABC123", model.GameStatusWaiting)

	err := s.gateway.SaveGame(s.ctx, game)
	s.Require().NoError(err)

	retrieved, err := s.gateway.GetGame(s.ctx, "ABC123")
	s.Require().NoError(err)
	s.Equal(game.Code, retrieved.Code)
	s.Equal(game.Config, retrieved.Config)
	s.Equal(model.GameStatusWaiting, retrieved.Status)
}

func (s *GatewaySuite) TestGetGameNotFound() {
	_, err := s.gateway.GetGame(s.ctx, "NOPE42")
	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *GatewaySuite) TestGameExists() {
	_ = s.gateway.SaveGame(s.ctx, s.game("ABC123", model.GameStatusWaiting))

	exists, err := s.gateway.GameExists(s.ctx, "ABC123")
	s.Require().NoError(err)
	s.True(exists)

	exists, err = s.gateway.GameExists(s.ctx, "NOPE42")
	s.Require().NoError(err)
	s.False(exists)
}

func (s *GatewaySuite) TestUpdateGameStatus() {
	_ = s.gateway.SaveGame(s.ctx, s.game("ABC123", model.GameStatusWaiting))

	err := s.gateway.UpdateGameStatus(s.ctx, "ABC123", model.GameStatusInProgress)
	s.Require().NoError(err)

	retrieved, _ := s.gateway.GetGame(s.ctx, "ABC123")
	s.Equal(model.GameStatusInProgress, retrieved.Status)
}

func (s *GatewaySuite) TestUpdateGameStatusNotFound() {
	err := s.gateway.UpdateGameStatus(s.ctx, "NOPE42", model.GameStatusFinished)
	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *GatewaySuite) TestDeleteGame() {
	_ = s.gateway.SaveGame(s.ctx, s.game("ABC123", model.GameStatusWaiting))

	err := s.gateway.DeleteGame(s.ctx, "ABC123")
	s.Require().NoError(err)

	_, err = s.gateway.GetGame(s.ctx, "ABC123")
	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *GatewaySuite) TestListGamesByStatus() {
	_ = s.gateway.SaveGame(s.ctx, s.game("AAA111", model.GameStatusWaiting))
	_ = s.gateway.SaveGame(s.ctx, s.game("BBB222", model.GameStatusInProgress))
	_ = s.gateway.SaveGame(s.ctx, s.game("CCC333", model.GameStatusFinished))

	games, err := s.gateway.ListGamesByStatus(s.ctx, model.GameStatusWaiting, model.GameStatusInProgress)
	s.Require().NoError(err)
	s.Len(games, 2)
}

func (s *GatewaySuite) TestListGamesByStatusEmpty() {
	games, err := s.gateway.ListGamesByStatus(s.ctx, model.GameStatusWaiting)
	s.Require().NoError(err)
	s.Empty(games)
}

// Membership tests

func (s *GatewaySuite) TestAddMembershipRejectsDuplicate() {
	m := &model.Membership{GameCode: "ABC123", UserID: 42, Username: "Alice"}

	err := s.gateway.AddMembership(s.ctx, m)
	s.Require().NoError(err)

	err = s.gateway.AddMembership(s.ctx, m)
	s.ErrorIs(err, model.ErrAlreadyJoined)
}

func (s *GatewaySuite) TestListMembershipsOrderedByJoin() {
	base := time.Now()
	_ = s.gateway.AddMembership(s.ctx, &model.Membership{GameCode: "ABC123", UserID: 7, JoinedAt: base.Add(time.Second)})
	_ = s.gateway.AddMembership(s.ctx, &model.Membership{GameCode: "ABC123", UserID: 42, JoinedAt: base})
	_ = s.gateway.AddMembership(s.ctx, &model.Membership{GameCode: "OTHER1", UserID: 42, JoinedAt: base})

	members, err := s.gateway.ListMemberships(s.ctx, "ABC123")
	s.Require().NoError(err)
	s.Require().Len(members, 2)
	s.Equal(model.UserID(42), members[0].UserID)
	s.Equal(model.UserID(7), members[1].UserID)
}

func (s *GatewaySuite) TestDeleteMembershipsForGame() {
	_ = s.gateway.AddMembership(s.ctx, &model.Membership{GameCode: "ABC123", UserID: 42})
	_ = s.gateway.AddMembership(s.ctx, &model.Membership{GameCode: "ABC123", UserID: 7})

	err := s.gateway.DeleteMembershipsForGame(s.ctx, "ABC123")
	s.Require().NoError(err)

	members, _ := s.gateway.ListMemberships(s.ctx, "ABC123")
	s.Empty(members)
}

// User tests

func (s *GatewaySuite) TestSetUserOnline() {
	_ = s.gateway.SaveUser(s.ctx, &model.User{ID: 42, Username: "Alice"})

	err := s.gateway.SetUserOnline(s.ctx, 42, true)
	s.Require().NoError(err)

	user, _ := s.gateway.GetUser(s.ctx, 42)
	s.True(user.Online)
}

func (s *GatewaySuite) TestSetUserOnlineUnknownUser() {
	err := s.gateway.SetUserOnline(s.ctx, 99, true)
	s.ErrorIs(err, model.ErrUserNotFound)
}

package registry

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/jortega/partidasync/internal/model"
	"github.com/jortega/partidasync/internal/testutil"
)

type RegistrySuite struct {
	suite.Suite
	registry *Registry
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	s.registry = New(testutil.NopLogger())
}

func (s *RegistrySuite) TestAnonymousConnectionHasNoUser() {
	s.registry.OnConnect("conn-1")

	_, ok := s.registry.ResolveUser("conn-1")
	s.False(ok)
	s.Equal(1, s.registry.ConnectionCount())
}

func (s *RegistrySuite) TestBindAndResolveBothDirections() {
	s.registry.OnConnect("conn-1")
	alice := model.UserIdentity{ID: 42, Username: "Alice"}

	_, displaced := s.registry.Bind("conn-1", alice)
	s.False(displaced)

	user, ok := s.registry.ResolveUser("conn-1")
	s.True(ok)
	s.Equal(alice, user)

	conn, ok := s.registry.ResolveConnection(42)
	s.True(ok)
	s.Equal(model.ConnectionID("conn-1"), conn)
}

func (s *RegistrySuite) TestSecondLoginDisplacesFirstConnection() {
	s.registry.OnConnect("conn-1")
	s.registry.OnConnect("conn-2")
	alice := model.UserIdentity{ID: 42, Username: "Alice"}

	_, _ = s.registry.Bind("conn-1", alice)
	displaced, wasDisplaced := s.registry.Bind("conn-2", alice)

	s.True(wasDisplaced)
	s.Equal(model.ConnectionID("conn-1"), displaced)

	// Old connection lost its binding, new one holds it
	_, ok := s.registry.ResolveUser("conn-1")
	s.False(ok)
	conn, ok := s.registry.ResolveConnection(42)
	s.True(ok)
	s.Equal(model.ConnectionID("conn-2"), conn)
}

func (s *RegistrySuite) TestRebindSameConnectionNewUser() {
	s.registry.OnConnect("conn-1")
	_, _ = s.registry.Bind("conn-1", model.UserIdentity{ID: 42, Username: "Alice"})
	_, _ = s.registry.Bind("conn-1", model.UserIdentity{ID: 7, Username: "Bob"})

	user, ok := s.registry.ResolveUser("conn-1")
	s.True(ok)
	s.Equal(model.UserID(7), user.ID)

	// Alice's reverse mapping is gone
	_, ok = s.registry.ResolveConnection(42)
	s.False(ok)
}

func (s *RegistrySuite) TestUnbindKeepsConnection() {
	s.registry.OnConnect("conn-1")
	_, _ = s.registry.Bind("conn-1", model.UserIdentity{ID: 42, Username: "Alice"})

	user, ok := s.registry.Unbind("conn-1")
	s.True(ok)
	s.Equal(model.UserID(42), user.ID)

	_, ok = s.registry.ResolveUser("conn-1")
	s.False(ok)
	s.Equal(1, s.registry.ConnectionCount())
}

func (s *RegistrySuite) TestDisconnectRemovesEverything() {
	s.registry.OnConnect("conn-1")
	_, _ = s.registry.Bind("conn-1", model.UserIdentity{ID: 42, Username: "Alice"})

	user, hadUser := s.registry.OnDisconnect("conn-1")
	s.True(hadUser)
	s.Equal(model.UserID(42), user.ID)

	_, ok := s.registry.ResolveUser("conn-1")
	s.False(ok)
	_, ok = s.registry.ResolveConnection(42)
	s.False(ok)
	s.Equal(0, s.registry.ConnectionCount())
}

func (s *RegistrySuite) TestDisconnectAnonymous() {
	s.registry.OnConnect("conn-1")

	_, hadUser := s.registry.OnDisconnect("conn-1")
	s.False(hadUser)
}

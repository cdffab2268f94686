package coordinator_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/bancbannas/bulls-and-cows-server/internal/dependencies/mocks"
	"github.com/bancbannas/bulls-and-cows-server/internal/model"
	"github.com/bancbannas/bulls-and-cows-server/internal/services/chat"
	"github.com/bancbannas/bulls-and-cows-server/internal/services/coordinator"
	"github.com/bancbannas/bulls-and-cows-server/internal/services/match"
	"github.com/bancbannas/bulls-and-cows-server/internal/services/registry"
	"github.com/bancbannas/bulls-and-cows-server/internal/services/scoring"
	"github.com/bancbannas/bulls-and-cows-server/internal/storage/memory"
	"github.com/bancbannas/bulls-and-cows-server/internal/testutil"
)

type CoordinatorSuite struct {
	suite.Suite
	clock       *mocks.MockClock
	random      *mocks.MockRandom
	registry    *registry.Service
	coordinator *coordinator.Coordinator
	ctx         context.Context
	connSeq     int
}

func TestCoordinatorSuite(t *testing.T) {
	suite.Run(t, new(CoordinatorSuite))
}

func (s *CoordinatorSuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	logger := testutil.NopLogger()

	s.registry = registry.New(registry.DefaultConfig(), s.clock, logger)
	chatService := chat.NewService(memory.NewChatLog(100), s.clock, logger, 50)

	s.coordinator = coordinator.New(
		s.registry,
		chatService,
		nil,
		s.clock,
		scoring.New(),
		s.random,
		match.DefaultConfig(),
		logger,
	)
	s.ctx = context.Background()
	s.connSeq = 0
}

func (s *CoordinatorSuite) newConn() *testutil.FakeConn {
	s.connSeq++
	return testutil.NewFakeConn("conn-" + string(rune('a'+s.connSeq-1)))
}

// register connects a fresh conn and registers it under name, asserting
// success
func (s *CoordinatorSuite) register(name string) *testutil.FakeConn {
	conn := s.newConn()
	s.coordinator.Register(s.ctx, conn, name, "")
	s.Require().True(conn.HasEvent(model.EventNameRegistered), "registration of %q failed", name)
	return conn
}

// pair registers both names and pairs them, with the challenger taking the
// first turn. Events recorded so far are cleared.
func (s *CoordinatorSuite) pair(challenger, accepter string) (*testutil.FakeConn, *testutil.FakeConn) {
	c1 := s.register(challenger)
	c2 := s.register(accepter)

	s.Require().NoError(s.coordinator.Challenge(s.ctx, c1, model.PlayerName(accepter)))
	s.random.QueueIntn(0)
	s.Require().NoError(s.coordinator.Accept(s.ctx, c2, model.PlayerName(challenger)))

	c1.Reset()
	c2.Reset()
	return c1, c2
}

// startMatch pairs and locks both secrets
func (s *CoordinatorSuite) startMatch(challenger, accepter, secret1, secret2 string) (*testutil.FakeConn, *testutil.FakeConn) {
	c1, c2 := s.pair(challenger, accepter)
	s.Require().NoError(s.coordinator.LockSecret(s.ctx, c1, secret1))
	s.Require().NoError(s.coordinator.LockSecret(s.ctx, c2, secret2))
	c1.Reset()
	c2.Reset()
	return c1, c2
}

func (s *CoordinatorSuite) TestRegisterHappyPath() {
	conn := s.newConn()
	s.coordinator.Register(s.ctx, conn, "Alice", "")

	registered, ok := conn.LastOfType(model.EventNameRegistered)
	s.Require().True(ok)
	payload := registered.Data.(model.NameRegisteredPayload)
	s.Equal(model.PlayerName("Alice"), payload.Name)
	s.NotEmpty(payload.DeviceToken)

	s.True(conn.HasEvent(model.EventChatHistory))

	lobby, ok := conn.LastOfType(model.EventUpdateLobby)
	s.Require().True(ok)
	s.Equal([]model.LobbyEntry{{Name: "Alice", InGame: false}}, lobby.Data.(model.UpdateLobbyPayload).Players)
}

func (s *CoordinatorSuite) TestRegisterCollisionEmitsNameTaken() {
	s.register("Alice")

	conn := s.newConn()
	s.coordinator.Register(s.ctx, conn, "Alice", "")
	s.True(conn.HasEvent(model.EventNameTaken))
	s.False(conn.HasEvent(model.EventNameRegistered))
}

func (s *CoordinatorSuite) TestRegisterSecondNameOnBoundConnRejected() {
	conn := s.register("Alice")
	conn.Reset()

	s.coordinator.Register(s.ctx, conn, "Bob", "")

	s.True(conn.HasEvent(model.EventNameTaken))
	s.False(conn.HasEvent(model.EventNameRegistered))
	_, ok := s.registry.Get("Bob")
	s.False(ok)

	// Alice stays bound to the connection and leaves with it
	s.coordinator.Disconnect(conn)
	_, ok = s.registry.Get("Alice")
	s.False(ok)
	s.Equal(0, s.registry.Len())
}

func (s *CoordinatorSuite) TestRegisterRetryOnLiveConnRebindsInPlace() {
	conn := s.newConn()
	s.coordinator.Register(s.ctx, conn, "Alice", "")
	registered, ok := conn.LastOfType(model.EventNameRegistered)
	s.Require().True(ok)
	token := registered.Data.(model.NameRegisteredPayload).DeviceToken
	conn.Reset()

	s.coordinator.Register(s.ctx, conn, "Alice", token)

	s.True(conn.HasEvent(model.EventNameRegistered))
	s.False(conn.HasEvent(model.EventForceDisconnect))
	s.False(conn.Closed())
	s.Equal(1, s.registry.Len())

	player, ok := s.registry.Get("Alice")
	s.Require().True(ok)
	s.Equal(conn.ID(), player.Conn.ID())
}

func (s *CoordinatorSuite) TestChallengeDeliveredToTarget() {
	alice := s.register("Alice")
	bob := s.register("Bob")
	alice.Reset()
	bob.Reset()

	s.Require().NoError(s.coordinator.Challenge(s.ctx, alice, "Bob"))

	challenge, ok := bob.LastOfType(model.EventChallengeReceived)
	s.Require().True(ok)
	s.Equal(model.ChallengeReceivedPayload{From: "Alice"}, challenge.Data)
	s.Empty(alice.Events())
}

func (s *CoordinatorSuite) TestChallengeInvalidTargets() {
	alice := s.register("Alice")

	s.Error(s.coordinator.Challenge(s.ctx, alice, "Alice"))
	s.Error(s.coordinator.Challenge(s.ctx, alice, "Nobody"))

	bob := s.register("Bob")
	carol := s.register("Carol")
	s.Require().NoError(s.coordinator.Challenge(s.ctx, bob, "Carol"))
	s.random.QueueIntn(0)
	s.Require().NoError(s.coordinator.Accept(s.ctx, carol, "Bob"))

	// Bob is now paired and cannot be challenged
	s.Error(s.coordinator.Challenge(s.ctx, alice, "Bob"))
}

func (s *CoordinatorSuite) TestAcceptCreatesSessionAndRedirects() {
	alice := s.register("Alice")
	bob := s.register("Bob")
	s.Require().NoError(s.coordinator.Challenge(s.ctx, alice, "Bob"))
	alice.Reset()
	bob.Reset()

	s.random.QueueIntn(0)
	s.Require().NoError(s.coordinator.Accept(s.ctx, bob, "Alice"))

	aliceRedirect, ok := alice.LastOfType(model.EventRedirectToMatch)
	s.Require().True(ok)
	bobRedirect, ok := bob.LastOfType(model.EventRedirectToMatch)
	s.Require().True(ok)

	alicePayload := aliceRedirect.Data.(model.RedirectToMatchPayload)
	bobPayload := bobRedirect.Data.(model.RedirectToMatchPayload)
	s.Equal(alicePayload.MatchID, bobPayload.MatchID)
	s.NotEmpty(alicePayload.MatchID)
	s.Equal(model.PlayerName("Bob"), alicePayload.Opponent)
	s.Equal(model.PlayerName("Alice"), bobPayload.Opponent)

	lobby, ok := alice.LastOfType(model.EventUpdateLobby)
	s.Require().True(ok)
	for _, entry := range lobby.Data.(model.UpdateLobbyPayload).Players {
		s.True(entry.InGame)
	}
}

func (s *CoordinatorSuite) TestAcceptRejectedWhenChallengerPaired() {
	alice := s.register("Alice")
	bob := s.register("Bob")
	carol := s.register("Carol")

	s.Require().NoError(s.coordinator.Challenge(s.ctx, alice, "Bob"))
	s.Require().NoError(s.coordinator.Challenge(s.ctx, alice, "Carol"))

	s.random.QueueIntn(0)
	s.Require().NoError(s.coordinator.Accept(s.ctx, bob, "Alice"))

	// The second acceptance finds Alice already paired
	s.Error(s.coordinator.Accept(s.ctx, carol, "Alice"))
}

func (s *CoordinatorSuite) TestFullGameToWin() {
	alice, bob := s.startMatch("Alice", "Bob", "1234", "5678")

	// Alice (challenger) holds the first turn
	s.Require().NoError(s.coordinator.SubmitGuess(s.ctx, alice, "5687"))
	result, ok := alice.LastOfType(model.EventGuessResult)
	s.Require().True(ok)
	s.Equal(model.GuessResultPayload{Guess: "5687", Bulls: 2, Cows: 2}, result.Data)
	s.True(bob.HasEvent(model.EventOpponentGuess))

	// Bob misses entirely, then Alice finds the code
	s.Require().NoError(s.coordinator.SubmitGuess(s.ctx, bob, "9065"))
	s.Require().NoError(s.coordinator.SubmitGuess(s.ctx, alice, "5678"))

	aliceOver, ok := alice.LastOfType(model.EventGameOver)
	s.Require().True(ok)
	s.Equal(model.GameOverPayload{Reason: model.ReasonWin}, aliceOver.Data)

	bobOver, ok := bob.LastOfType(model.EventGameOver)
	s.Require().True(ok)
	s.Equal(model.GameOverPayload{Reason: model.ReasonLose}, bobOver.Data)

	// Both return to the lobby as available
	lobby, ok := alice.LastOfType(model.EventUpdateLobby)
	s.Require().True(ok)
	for _, entry := range lobby.Data.(model.UpdateLobbyPayload).Players {
		s.False(entry.InGame)
	}

	// Further guesses are rejected
	s.Error(s.coordinator.SubmitGuess(s.ctx, bob, "1234"))
}

func (s *CoordinatorSuite) TestOutOfTurnRejectedWithoutStateChange() {
	alice, bob := s.startMatch("Alice", "Bob", "1234", "5678")

	s.Error(s.coordinator.SubmitGuess(s.ctx, bob, "1234"))
	s.Empty(bob.Events())

	s.Require().NoError(s.coordinator.SubmitGuess(s.ctx, alice, "8765"))
	s.Error(s.coordinator.SubmitGuess(s.ctx, alice, "5678"))
}

func (s *CoordinatorSuite) TestDisconnectGraceForfeitsMatch() {
	alice, bob := s.startMatch("Alice", "Bob", "1234", "5678")

	s.coordinator.Disconnect(bob)
	s.clock.Advance(30 * time.Second)

	aliceOver, ok := alice.LastOfType(model.EventGameOver)
	s.Require().True(ok)
	s.Equal(model.GameOverPayload{Reason: model.ReasonOpponentDisconnected}, aliceOver.Data)

	// Bob's identity is evicted; his name is free again
	_, exists := s.registry.Get("Bob")
	s.False(exists)
}

func (s *CoordinatorSuite) TestReconnectResumesMatch() {
	alice, bob := s.startMatch("Alice", "Bob", "1234", "5678")

	bobPlayer, exists := s.registry.Get("Bob")
	s.Require().True(exists)
	token := bobPlayer.DeviceToken

	s.coordinator.Disconnect(bob)
	s.clock.Advance(10 * time.Second)

	fresh := s.newConn()
	s.coordinator.Register(s.ctx, fresh, "Bob", token)

	s.True(fresh.HasEvent(model.EventNameRegistered))

	sync, ok := fresh.LastOfType(model.EventSyncState)
	s.Require().True(ok)
	payload := sync.Data.(model.SyncStatePayload)
	s.Equal(model.MatchActive, payload.State)
	s.Equal(model.PlayerName("Alice"), payload.Opponent)
	s.True(alice.HasEvent(model.EventSyncState))

	// The original grace deadline passes without effect and play continues
	s.clock.Advance(20 * time.Second)
	s.Require().NoError(s.coordinator.SubmitGuess(s.ctx, alice, "5678"))
	over, ok := fresh.LastOfType(model.EventGameOver)
	s.Require().True(ok)
	s.Equal(model.GameOverPayload{Reason: model.ReasonLose}, over.Data)
}

func (s *CoordinatorSuite) TestReclaimWithoutTokenRejected() {
	s.startMatch("Alice", "Bob", "1234", "5678")

	imposter := s.newConn()
	s.coordinator.Register(s.ctx, imposter, "Bob", "wrong-token")
	s.True(imposter.HasEvent(model.EventNameTaken))
}

func (s *CoordinatorSuite) TestStaleDisconnectIgnored() {
	alice, bob := s.startMatch("Alice", "Bob", "1234", "5678")

	bobPlayer, _ := s.registry.Get("Bob")
	token := bobPlayer.DeviceToken

	// Bob reclaims from a new connection while the old one is still open
	fresh := s.newConn()
	s.coordinator.Register(s.ctx, fresh, "Bob", token)
	s.True(bob.HasEvent(model.EventForceDisconnect))
	s.True(bob.Closed())

	// The superseded connection's read loop now reports its disconnect;
	// the live binding must survive
	s.coordinator.Disconnect(bob)

	bobPlayer, exists := s.registry.Get("Bob")
	s.Require().True(exists)
	s.True(bobPlayer.Connected())

	s.Require().NoError(s.coordinator.SubmitGuess(s.ctx, alice, "8765"))
	s.Require().NoError(s.coordinator.SubmitGuess(s.ctx, fresh, "4321"))
}

func (s *CoordinatorSuite) TestLobbyDisconnectRemovesPlayer() {
	alice := s.register("Alice")
	bob := s.register("Bob")
	alice.Reset()

	s.coordinator.Disconnect(bob)

	lobby, ok := alice.LastOfType(model.EventUpdateLobby)
	s.Require().True(ok)
	s.Equal([]model.LobbyEntry{{Name: "Alice", InGame: false}}, lobby.Data.(model.UpdateLobbyPayload).Players)
}

func (s *CoordinatorSuite) TestChatBroadcastAndReplay() {
	alice := s.register("Alice")
	bob := s.register("Bob")

	s.Require().NoError(s.coordinator.Chat(s.ctx, alice, "hello all"))

	msg, ok := bob.LastOfType(model.EventChatMessage)
	s.Require().True(ok)
	chatMsg := msg.Data.(model.ChatMessage)
	s.Equal(model.PlayerName("Alice"), chatMsg.Name)
	s.Equal("hello all", chatMsg.Message)
	s.True(alice.HasEvent(model.EventChatMessage))

	// A later registrant receives the history on join
	carol := s.register("Carol")
	history, ok := carol.LastOfType(model.EventChatHistory)
	s.Require().True(ok)
	messages := history.Data.(model.ChatHistoryPayload).Messages
	s.Require().Len(messages, 1)
	s.Equal("hello all", messages[0].Message)
}

func (s *CoordinatorSuite) TestUnregisteredConnRejected() {
	conn := s.newConn()
	s.Error(s.coordinator.Challenge(s.ctx, conn, "Bob"))
	s.Error(s.coordinator.LockSecret(s.ctx, conn, "1234"))
	s.Error(s.coordinator.SubmitGuess(s.ctx, conn, "1234"))
	s.Error(s.coordinator.Chat(s.ctx, conn, "hi"))
}

func (s *CoordinatorSuite) TestSnapshotMatchesLobbyBroadcast() {
	s.register("Alice")
	s.pair("Bob", "Carol")

	snapshot := s.coordinator.Snapshot()
	s.Require().Len(snapshot, 3)
	byName := map[model.PlayerName]bool{}
	for _, entry := range snapshot {
		byName[entry.Name] = entry.InGame
	}
	s.False(byName["Alice"])
	s.True(byName["Bob"])
	s.True(byName["Carol"])
}

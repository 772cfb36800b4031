package runtime

import (
	"allchat/domain"
	"allchat/domain/event"
	"allchat/errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRouter_First_Looking_For_Match_Waits(t *testing.T) {
	req := require.New(t)
	engine := newTestEngine(domain.RequeueNone)
	outA := engine.connect("A")

	// When A looks for a match on an empty pool
	req.NoError(engine.send("A", `{"type":"looking-for-match"}`))

	// Then nothing is emitted and A waits
	req.Empty(outA.raw())
	req.True(engine.pool.Contains("A"))
}

func TestRouter_Pairing_Sends_One_Match_Found_To_Both(t *testing.T) {
	req := require.New(t)
	engine := newTestEngine(domain.RequeueNone)
	outA, outB := engine.connect("A"), engine.connect("B")

	// Given pool entries [A, B] in that arrival order
	req.NoError(engine.pool.Enqueue("A"))
	req.NoError(engine.pool.Enqueue("B"))

	// When B calls looking-for-match
	req.NoError(engine.send("B", `{"type":"looking-for-match"}`))

	// Then both receive exactly one match-found with users [A, B]
	for _, out := range []*recorder{outA, outB} {
		envelopes := out.envelopes(t)
		req.Len(envelopes, 1)
		req.Equal(domain.MatchFound, envelopes[0].Type)
		req.Equal([]domain.UserID{"A", "B"}, envelopes[0].Users)
		req.NotEmpty(envelopes[0].SessionID)
	}
	// And neither remains in the pool
	req.False(engine.pool.Contains("A"))
	req.False(engine.pool.Contains("B"))
	req.Contains(engine.telemetryTypes(), event.MatchFormedType)
}

func TestRouter_Looking_For_Match_While_Matched_Is_Refused(t *testing.T) {
	req := require.New(t)
	engine := newTestEngine(domain.RequeueNone)
	engine.pair(t, "A", "B")

	err := engine.send("A", `{"type":"looking-for-match"}`)

	req.ErrorIs(err, errors.ErrAlreadyInGroup)
	req.False(engine.pool.Contains("A"))
	req.True(engine.directory.SameGroup("A", "B"))
}

func TestRouter_Group_Size_Is_Ignored(t *testing.T) {
	req := require.New(t)
	engine := newTestEngine(domain.RequeueNone)
	engine.connect("A")
	outB := engine.connect("B")

	req.NoError(engine.send("A", `{"type":"looking-for-match","groupSize":4}`))
	req.NoError(engine.send("B", `{"type":"looking-for-match","groupSize":4}`))

	// Then a pair is formed anyway
	envelopes := outB.envelopes(t)
	req.Len(envelopes, 1)
	req.Len(envelopes[0].Users, 2)
}

func TestRouter_Cancel_Match_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	engine := newTestEngine(domain.RequeueNone)
	outA := engine.connect("A")

	// When A cancels while not waiting
	req.NoError(engine.send("A", `{"type":"cancel-match"}`))

	// Then A still gets match-cancelled
	envelopes := outA.envelopes(t)
	req.Len(envelopes, 1)
	req.Equal(domain.MatchCancelled, envelopes[0].Type)
	req.Equal(domain.UserID("A"), envelopes[0].UserID)
}

func TestRouter_Cancel_Match_While_Searching(t *testing.T) {
	req := require.New(t)
	engine := newTestEngine(domain.RequeueNone)
	outA := engine.connect("A")
	outB := engine.connect("B")
	req.NoError(engine.send("A", `{"type":"looking-for-match"}`))

	// When A cancels
	req.NoError(engine.send("A", `{"type":"cancel-match"}`))

	// Then A leaves the pool and a later request from B does not match A
	req.False(engine.pool.Contains("A"))
	req.NoError(engine.send("B", `{"type":"looking-for-match"}`))
	req.Empty(outB.raw())
	req.Equal([]domain.MessageType{domain.MatchCancelled}, outA.types(t))
}

func TestRouter_Scenario_Chat_And_Offer(t *testing.T) {
	req := require.New(t)
	engine := newTestEngine(domain.RequeueNone)
	outA, outB := engine.connect("A"), engine.connect("B")

	// A looks for a match, nothing happens
	req.NoError(engine.send("A", `{"type":"looking-for-match"}`))
	req.Empty(outA.raw())

	// B looks for a match, both get match-found [A, B]
	req.NoError(engine.send("B", `{"type":"looking-for-match"}`))
	for _, out := range []*recorder{outA, outB} {
		envelopes := out.envelopes(t)
		req.Len(envelopes, 1)
		req.Equal([]domain.UserID{"A", "B"}, envelopes[0].Users)
		out.reset()
	}

	// A chats, B receives the exact bytes, A gets nothing back
	chat := `{"type":"chat","message":"hello"}`
	req.NoError(engine.send("A", chat))
	req.Equal([][]byte{[]byte(chat)}, outB.raw())
	req.Empty(outA.raw())

	// B sends an offer to A, A receives the exact bytes
	offer := `{"type":"offer","to":"A","from":"B","sdp":"v=0\r\n a=group:BUNDLE 0"}`
	req.NoError(engine.send("B", offer))
	req.Equal([][]byte{[]byte(offer)}, outA.raw())
}

func TestRouter_Blocks_Offer_Across_Groups(t *testing.T) {
	req := require.New(t)
	engine := newTestEngine(domain.RequeueNone)
	outA, _ := engine.pair(t, "A", "B")
	engine.connect("C")

	// When C, outside A's group, sends an offer to A
	err := engine.send("C", `{"type":"offer","to":"A","from":"C","sdp":"x"}`)

	// Then nothing reaches A and the attempt is reported as blocked
	req.ErrorIs(err, errors.ErrNotSameGroup)
	req.Empty(outA.raw())
	req.Contains(engine.telemetryTypes(), event.SignalBlockedType)
}

func TestRouter_Blocks_Signal_With_Spoofed_Sender(t *testing.T) {
	req := require.New(t)
	engine := newTestEngine(domain.RequeueNone)
	outA, _ := engine.pair(t, "A", "B")

	err := engine.send("B", `{"type":"answer","to":"A","from":"Z","sdp":"x"}`)

	req.ErrorIs(err, errors.ErrSenderMismatch)
	req.Empty(outA.raw())
}

func TestRouter_Signal_Symmetry(t *testing.T) {
	req := require.New(t)
	engine := newTestEngine(domain.RequeueNone)
	outA, outB := engine.pair(t, "A", "B")
	engine.pair(t, "C", "D")

	// Within the group both directions are relayed
	req.NoError(engine.send("A", `{"type":"ice-candidate","to":"B","from":"A","candidate":"c1"}`))
	req.NoError(engine.send("B", `{"type":"ice-candidate","to":"A","from":"B","candidate":"c2"}`))
	req.Len(outA.raw(), 1)
	req.Len(outB.raw(), 1)

	// Across groups neither direction is
	req.ErrorIs(engine.send("A", `{"type":"offer","to":"C","from":"A"}`), errors.ErrNotSameGroup)
	req.ErrorIs(engine.send("C", `{"type":"offer","to":"A","from":"C"}`), errors.ErrNotSameGroup)
	req.Len(outA.raw(), 1)
}

func TestRouter_Chat_Outside_Group_Is_Dropped(t *testing.T) {
	req := require.New(t)
	engine := newTestEngine(domain.RequeueNone)
	engine.connect("A")

	req.ErrorIs(engine.send("A", `{"type":"chat","message":"anyone?"}`), errors.ErrNotInGroup)
	req.ErrorIs(engine.send("A", `{"type":"end-chat"}`), errors.ErrNotInGroup)
}

func TestRouter_Malformed_And_Unknown_Are_Dropped(t *testing.T) {
	req := require.New(t)
	engine := newTestEngine(domain.RequeueNone)
	outA, outB := engine.pair(t, "A", "B")

	req.ErrorIs(engine.send("A", `{"type":`), errors.ErrMalformedEnvelope)
	req.ErrorIs(engine.send("A", `{"type":"offer","from":"A"}`), errors.ErrMalformedEnvelope)
	req.ErrorIs(engine.send("A", `{"type":"typing"}`), errors.ErrUnknownType)
	req.ErrorIs(engine.send("A", `{"type":"match-found","users":["A","B"]}`), errors.ErrUnknownType)

	// Then no reply and nothing relayed
	req.Empty(outA.raw())
	req.Empty(outB.raw())
}

func TestRouter_Relay_To_Disconnected_Peer_Is_Silent(t *testing.T) {
	req := require.New(t)
	engine := newTestEngine(domain.RequeueNone)
	_, outB := engine.pair(t, "A", "B")
	req.NoError(outB.Close())

	// When A chats to a closed peer
	err := engine.send("A", `{"type":"chat","message":"hello"}`)

	// Then A gets no error and the drop is reported
	req.NoError(err)
	req.Contains(engine.telemetryTypes(), event.MessageDroppedType)
}

func TestRouter_End_Chat_Runs_Leave_Protocol(t *testing.T) {
	req := require.New(t)
	engine := newTestEngine(domain.RequeueNone)
	outA, outB := engine.pair(t, "A", "B")

	// When A ends the chat
	req.NoError(engine.send("A", `{"type":"end-chat"}`))

	// Then B is told A left, then that the chat ended
	envelopes := outB.envelopes(t)
	req.Len(envelopes, 2)
	req.Equal(domain.UserLeftMatch, envelopes[0].Type)
	req.Equal(domain.UserID("A"), envelopes[0].UserID)
	req.Equal(domain.ChatEnded, envelopes[1].Type)
	req.Equal(domain.UserID("A"), envelopes[1].UserID)
	req.Empty(outA.raw())

	// And both are idle
	_, ok := engine.directory.Lookup("B")
	req.False(ok)
	req.False(engine.pool.Contains("A"))
	req.False(engine.pool.Contains("B"))

	// And they can look for a new match
	req.NoError(engine.send("B", `{"type":"looking-for-match"}`))
	req.True(engine.pool.Contains("B"))
}

package game

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yola1107/kratos/v2/log"

	"github.com/gamehall/monopoly/internal/conf"
	"github.com/gamehall/monopoly/internal/model"
)

type stubRepo struct {
	mu     sync.Mutex
	snap   []byte
	saved  chan []byte
	events []model.Event
}

func newStubRepo() *stubRepo {
	return &stubRepo{saved: make(chan []byte, 8)}
}

func (r *stubRepo) AppendEvents(_ context.Context, _ string, evs []model.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evs...)
}

func (r *stubRepo) SaveSnapshot(_ context.Context, _ string, _ int64, snap []byte) {
	select {
	case r.saved <- snap:
	default:
	}
}

func (r *stubRepo) LoadSnapshot(context.Context, string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snap, nil
}

func (r *stubRepo) TouchRecent(context.Context, string) {}

func (r *stubRepo) Advice(context.Context, []byte) ([]byte, error) {
	return []byte(`{"move":"roll"}`), nil
}

func (r *stubRepo) eventCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func (r *stubRepo) hasEvent(typ string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ev := range r.events {
		if ev.Type == typ {
			return true
		}
	}
	return false
}

type stubBinder struct{}

func (stubBinder) Bind(string, string, int32) {}
func (stubBinder) Drop(string)                {}

func testConf() *conf.Game {
	return &conf.Game{
		TurnTimeoutSec:    1,
		AuctionWindowSec:  1,
		TradeWindowSec:    1,
		ReconnectGraceSec: 1,
		IdleEvictionSec:   600,
		RobotTakeover:     true,
	}
}

// onLoop runs fn on the actor loop and waits for it.
func onLoop(t *testing.T, g *Game, fn func()) {
	t.Helper()
	_, err := g.store.PostAndWait(func() ([]byte, error) {
		fn()
		return nil, nil
	})
	require.NoError(t, err)
}

func seatPlayers(t *testing.T, g *Game, names ...string) []int32 {
	t.Helper()
	var ids []int32
	onLoop(t, g, func() {
		for _, name := range names {
			p, evs, err := g.engine.AddPlayer(g.state, name, "", false)
			require.NoError(t, err)
			g.slots[p.ID] = &Slot{PlayerID: p.ID}
			ids = append(ids, p.ID)
			g.commit(evs, nil, 0)
		}
	})
	return ids
}

func stateSeq(t *testing.T, g *Game) int64 {
	t.Helper()
	var seq int64
	onLoop(t, g, func() { seq = g.state.Seq })
	return seq
}

func TestRestoresFromSnapshot(t *testing.T) {
	repo := newStubRepo()

	src := model.NewState("g1", model.NewCryptoRoller())
	e := model.NewEngine(model.NewCryptoRoller())
	_, _, err := e.AddPlayer(src, "ann", "red", false)
	require.NoError(t, err)
	_, _, err = e.AddPlayer(src, "bob", "blue", false)
	require.NoError(t, err)
	repo.snap, err = model.MarshalSnapshot(src)
	require.NoError(t, err)

	g := NewGame("g1", repo, stubBinder{}, testConf(), log.DefaultLogger, nil)
	defer g.Shutdown(false)

	out, err := g.ExportSnapshot()
	require.NoError(t, err)
	st, err := model.UnmarshalSnapshot(out)
	require.NoError(t, err)
	require.Len(t, st.Players, 2)
	require.Equal(t, src.Seq, st.Seq)
}

func TestSnapshotForWrongGameIsIgnored(t *testing.T) {
	repo := newStubRepo()

	src := model.NewState("other", model.NewCryptoRoller())
	var err error
	repo.snap, err = model.MarshalSnapshot(src)
	require.NoError(t, err)

	g := NewGame("g1", repo, stubBinder{}, testConf(), log.DefaultLogger, nil)
	defer g.Shutdown(false)

	out, err := g.ExportSnapshot()
	require.NoError(t, err)
	st, err := model.UnmarshalSnapshot(out)
	require.NoError(t, err)
	require.Equal(t, "g1", st.GameID)
	require.Empty(t, st.Players)
}

func TestImportSnapshotRejectsForeignState(t *testing.T) {
	g := NewGame("g1", newStubRepo(), stubBinder{}, testConf(), log.DefaultLogger, nil)
	defer g.Shutdown(false)

	foreign := model.NewState("other", model.NewCryptoRoller())
	snap, err := model.MarshalSnapshot(foreign)
	require.NoError(t, err)
	require.Error(t, g.ImportSnapshot(snap))
}

func TestImportSnapshotReplacesState(t *testing.T) {
	g := NewGame("g1", newStubRepo(), stubBinder{}, testConf(), log.DefaultLogger, nil)
	defer g.Shutdown(false)

	src := model.NewState("g1", model.NewCryptoRoller())
	e := model.NewEngine(model.NewCryptoRoller())
	_, _, err := e.AddPlayer(src, "ann", "red", false)
	require.NoError(t, err)
	snap, err := model.MarshalSnapshot(src)
	require.NoError(t, err)

	require.NoError(t, g.ImportSnapshot(snap))
	out, err := g.ExportSnapshot()
	require.NoError(t, err)
	st, err := model.UnmarshalSnapshot(out)
	require.NoError(t, err)
	require.Len(t, st.Players, 1)
}

func TestShutdownSavesFinalSnapshot(t *testing.T) {
	repo := newStubRepo()
	g := NewGame("g1", repo, stubBinder{}, testConf(), log.DefaultLogger, nil)
	seatPlayers(t, g, "ann", "bob")

	g.Shutdown(true)
	select {
	case snap := <-repo.saved:
		var p persisted
		require.NoError(t, json.Unmarshal(snap, &p))
		st, err := model.UnmarshalSnapshot(p.State)
		require.NoError(t, err)
		require.Len(t, st.Players, 2)
		require.Len(t, p.Seats, 2)
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot saved on shutdown")
	}
}

func TestTurnDeadlineForcesProgress(t *testing.T) {
	repo := newStubRepo()
	g := NewGame("g1", repo, stubBinder{}, testConf(), log.DefaultLogger, nil)
	defer g.Shutdown(false)

	seatPlayers(t, g, "ann", "bob")
	before := stateSeq(t, g)

	// turn timeout is 1s; the deadline rolls for the stalled player
	require.Eventually(t, func() bool {
		return stateSeq(t, g) > before
	}, 3*time.Second, 100*time.Millisecond)
	require.Greater(t, repo.eventCount(), 0)
}

func TestRobotTakesOverDisconnectedSeat(t *testing.T) {
	repo := newStubRepo()
	g := NewGame("g1", repo, stubBinder{}, testConf(), log.DefaultLogger, nil)
	defer g.Shutdown(false)

	ids := seatPlayers(t, g, "ann", "bob")
	g.Disconnect(ids[0])

	// after the 1s grace the robot takes the seat and keeps rolling
	require.Eventually(t, func() bool {
		var ctl bool
		onLoop(t, g, func() { ctl = g.slots[ids[0]].RobotCtl })
		return ctl
	}, 3*time.Second, 100*time.Millisecond)

	before := stateSeq(t, g)
	require.Eventually(t, func() bool {
		return stateSeq(t, g) > before
	}, 3*time.Second, 100*time.Millisecond)
	require.Greater(t, repo.eventCount(), 0)
}

func TestGraceExpiryLeavesOthersDecisionAlone(t *testing.T) {
	repo := newStubRepo()
	gc := testConf()
	gc.TurnTimeoutSec = 120
	gc.RobotTakeover = false
	g := NewGame("g1", repo, stubBinder{}, gc, log.DefaultLogger, nil)
	defer g.Shutdown(false)

	ids := seatPlayers(t, g, "ann", "bob")
	var cur int32
	onLoop(t, g, func() { cur = g.state.Current })
	idle := ids[0]
	if idle == cur {
		idle = ids[1]
	}
	g.Disconnect(idle)

	// grace is 1s; the online player's roll must stay theirs to make
	time.Sleep(2 * time.Second)
	var rolled bool
	var after int32
	onLoop(t, g, func() { rolled, after = g.state.Rolled, g.state.Current })
	require.False(t, rolled)
	require.Equal(t, cur, after)
	require.False(t, repo.hasEvent("dice.rolled"))
}

func TestGraceExpiryUnblocksAbsentCurrentPlayer(t *testing.T) {
	repo := newStubRepo()
	gc := testConf()
	gc.TurnTimeoutSec = 120
	gc.RobotTakeover = false
	g := NewGame("g1", repo, stubBinder{}, gc, log.DefaultLogger, nil)
	defer g.Shutdown(false)

	seatPlayers(t, g, "ann", "bob")
	var cur int32
	onLoop(t, g, func() { cur = g.state.Current })
	g.Disconnect(cur)

	// turn timeout is far off; only the grace path can move the table
	require.Eventually(t, func() bool {
		return repo.hasEvent("dice.rolled")
	}, 3*time.Second, 100*time.Millisecond)
}

func TestChatDoesNotStretchTurnDeadline(t *testing.T) {
	repo := newStubRepo()
	g := NewGame("g1", repo, stubBinder{}, testConf(), log.DefaultLogger, nil)
	defer g.Shutdown(false)

	ids := seatPlayers(t, g, "ann", "bob")

	// commit chatter well inside the 1s turn window; the deadline must
	// still force the stalled roll
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) && !repo.hasEvent("dice.rolled") {
		onLoop(t, g, func() {
			if evs, err := g.engine.Chat(g.state, ids[0], "tick"); err == nil {
				g.commit(evs, nil, 0)
			}
		})
		time.Sleep(300 * time.Millisecond)
	}
	require.True(t, repo.hasEvent("dice.rolled"))
}

func TestRestoreRebuildsSeatsAndTokens(t *testing.T) {
	repo := newStubRepo()
	g := NewGame("g1", repo, stubBinder{}, testConf(), log.DefaultLogger, nil)
	ids := seatPlayers(t, g, "ann", "bob")
	onLoop(t, g, func() {
		g.slots[ids[0]].Token = "tok-ann"
		g.slots[ids[1]].Token = "tok-bob"
	})

	g.Shutdown(true)
	select {
	case repo.snap = <-repo.saved:
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot saved on shutdown")
	}

	g2 := NewGame("g1", repo, stubBinder{}, testConf(), log.DefaultLogger, nil)
	defer g2.Shutdown(false)

	var seats int
	var tokA, tokB string
	onLoop(t, g2, func() {
		seats = len(g2.slots)
		if s := g2.slots[ids[0]]; s != nil {
			tokA = s.Token
		}
		if s := g2.slots[ids[1]]; s != nil {
			tokB = s.Token
		}
	})
	require.Equal(t, 2, seats)
	require.Equal(t, "tok-ann", tokA)
	require.Equal(t, "tok-bob", tokB)
}

func TestFatalLatchRefusesExport(t *testing.T) {
	g := NewGame("g1", newStubRepo(), stubBinder{}, testConf(), log.DefaultLogger, nil)
	defer g.Shutdown(false)

	onLoop(t, g, func() { g.latchFatal() })
	_, err := g.ExportSnapshot()
	require.Error(t, err)
}

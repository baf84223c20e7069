package game

import (
	"context"
	"path/filepath"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/yola1107/kratos/v2/library/log/file"
	"github.com/yola1107/kratos/v2/library/work"
	"github.com/yola1107/kratos/v2/library/xgo"
	"github.com/yola1107/kratos/v2/log"

	"github.com/gamehall/monopoly/internal/conf"
	"github.com/gamehall/monopoly/internal/model"
	"github.com/gamehall/monopoly/internal/protocol"
	"github.com/gamehall/monopoly/internal/server/ws"
	"github.com/gamehall/monopoly/pkg/codes"
)

// Game is the actor owning one game's state. A single-worker store
// serializes every mutation: inbound frames, timer callbacks and operator
// calls all run as posted jobs, so the engine never sees concurrency.
type Game struct {
	id     string
	repo   Repo
	binder Binder
	gc     *conf.Game
	log    *log.Helper
	glog   *file.Log

	ctx    context.Context
	cancel context.CancelFunc
	loop   work.Loop
	timer  work.Scheduler

	// loop-owned state below, never touched outside posted jobs
	engine     *model.Engine
	state      *model.State
	slots      map[int32]*Slot
	fatal      bool
	closed     bool
	lastActive time.Time
	stage      stageKey
	stageTimer int64
	sinceSnap  int

	onIdle func(gameID string)
}

// NewGame spins up the actor. A snapshot left behind by a previous eviction
// is restored; otherwise the game starts fresh on first reference.
func NewGame(id string, repo Repo, binder Binder, gc *conf.Game, logger log.Logger, onIdle func(string)) *Game {
	ctx, cancel := context.WithCancel(context.Background())
	g := &Game{
		id:         id,
		repo:       repo,
		binder:     binder,
		gc:         gc,
		log:        log.NewHelper(log.With(logger, "game", id)),
		ctx:        ctx,
		cancel:     cancel,
		store:      work.NewWorkStore(ctx, 1),
		engine:     model.NewEngine(model.NewCryptoRoller()),
		slots:      make(map[int32]*Slot),
		lastActive: time.Now(),
		onIdle:     onIdle,
	}
	if gc.LogDir != "" {
		g.glog = file.NewFileLog(filepath.Join(gc.LogDir, id+".log"))
	}
	if err := g.store.Start(); err != nil {
		panic(err)
	}

	if snap, err := repo.LoadSnapshot(ctx, id); err == nil && snap != nil {
		if err := g.restorePersist(snap); err != nil {
			g.log.Warnf("snapshot restore rejected: %v", err)
		} else {
			g.log.Infof("restored from snapshot seq=%d players=%d seats=%d",
				g.state.Seq, len(g.state.Players), len(g.slots))
		}
	}
	if g.state == nil {
		g.state = model.NewState(id, g.engine.Roller())
	}

	g.store.Forever(evictCheckInterval, g.checkIdle)
	return g
}

func (g *Game) ID() string { return g.id }

// post schedules fn on the actor loop with the fatal latch applied: a panic
// inside any job poisons the game rather than corrupting it silently.
func (g *Game) post(fn func()) {
	g.store.Post(func() {
		defer xgo.RecoverFromError(func(e any) {
			g.latchFatal()
		})
		fn()
	})
}

// latchFatal freezes the game: state may be inconsistent, so every further
// action is refused and clients are told to leave.
func (g *Game) latchFatal() {
	if g.fatal {
		return
	}
	g.fatal = true
	g.log.Errorf("fatal latch set, game halted")
	for _, slot := range g.slots {
		if slot.online() {
			g.sendErr(slot.Sess, 0, codes.ErrGameCorrupt)
		}
	}
}

// gate rejects work on a halted or evicted game.
func (g *Game) gate(sess *ws.Session, seq int64) bool {
	if g.fatal {
		g.sendErr(sess, seq, codes.ErrGameCorrupt)
		return false
	}
	if g.closed {
		g.sendErr(sess, seq, codes.ErrGameNotFound)
		return false
	}
	return true
}

// Join adds a new player and binds the session to the fresh slot.
func (g *Game) Join(sess *ws.Session, seq int64, name, color string) {
	g.post(func() {
		if !g.gate(sess, seq) {
			return
		}
		if sess.Bound() {
			g.sendErr(sess, seq, codes.ErrAlreadyJoined)
			return
		}
		p, evs, err := g.engine.AddPlayer(g.state, name, color, false)
		if err != nil {
			g.sendErr(sess, seq, err)
			return
		}
		token, _ := gonanoid.New(21)
		g.slots[p.ID] = &Slot{PlayerID: p.ID, Token: token, Sess: sess}
		sess.Bind(g.id, p.ID)
		g.binder.Bind(sess.ID(), g.id, p.ID)
		g.journal("join player=%d name=%q", p.ID, name)

		snap, err := model.MarshalSnapshot(g.state)
		if err != nil {
			g.latchFatal()
			return
		}
		_ = sess.SendFrame(protocol.TypeJoined, seq, &protocol.JoinedResp{
			GameID:   g.id,
			PlayerID: p.ID,
			Token:    token,
			State:    snap,
		})
		g.commit(evs, sess, 0)
	})
}

// Reconnect rebinds a returning socket to its slot after token check. The
// full state is replayed; the slot leaves robot control.
func (g *Game) Reconnect(sess *ws.Session, seq int64, playerID int32, token string) {
	g.post(func() {
		if !g.gate(sess, seq) {
			return
		}
		slot, ok := g.slots[playerID]
		if !ok {
			g.sendErr(sess, seq, codes.ErrPlayerNotFound)
			return
		}
		if slot.Token != token {
			g.sendErr(sess, seq, codes.ErrTokenFail)
			return
		}
		if slot.online() && slot.Sess.ID() != sess.ID() {
			g.sendErr(sess, seq, codes.ErrSlotBound)
			return
		}
		g.store.Cancel(slot.GraceTimer)
		slot.Sess = sess
		slot.RobotCtl = false
		slot.OfflineAt = time.Time{}
		sess.Bind(g.id, playerID)
		g.binder.Bind(sess.ID(), g.id, playerID)
		g.touch()
		g.journal("reconnect player=%d", playerID)

		snap, err := model.MarshalSnapshot(g.state)
		if err != nil {
			g.latchFatal()
			return
		}
		_ = sess.SendFrame(protocol.TypeState, seq, &protocol.StatePush{GameID: g.id, State: snap})
		g.rearmStage()
		g.scheduleRobot()
	})
}

// Disconnect marks the slot offline and starts the reconnect grace window.
// The player stays in the game; after the grace period a robot may take the
// seat over so the table keeps moving.
func (g *Game) Disconnect(playerID int32) {
	g.post(func() {
		slot, ok := g.slots[playerID]
		if !ok || g.closed {
			return
		}
		slot.Sess = nil
		slot.OfflineAt = time.Now()
		g.journal("offline player=%d", playerID)

		grace := g.gc.ReconnectGrace()
		g.store.Cancel(slot.GraceTimer)
		slot.GraceTimer = g.store.Once(grace, func() {
			if slot.online() || g.closed || g.fatal {
				return
			}
			if g.gc.RobotTakeover {
				slot.RobotCtl = true
				g.journal("robot takeover player=%d", playerID)
				g.scheduleRobot()
				return
			}
			// force progress only when the table is blocked on this seat;
			// anyone else's pending decision stays theirs to make
			if pid, ok := g.awaitedActor(); ok && pid == playerID {
				g.journal("grace expired player=%d", playerID)
				g.autoAct()
			}
		})
	})
}

// Leave is a voluntary exit: the player resigns and their estate reverts.
func (g *Game) Leave(sess *ws.Session, seq int64, playerID int32) {
	g.post(func() {
		if !g.gate(sess, seq) {
			return
		}
		slot, ok := g.slots[playerID]
		if !ok {
			g.sendErr(sess, seq, codes.ErrPlayerNotFound)
			return
		}
		evs, err := g.engine.Resign(g.state, playerID)
		if err != nil {
			g.sendErr(sess, seq, err)
			return
		}
		g.journal("leave player=%d", playerID)
		if slot.online() {
			g.binder.Drop(slot.Sess.ID())
		}
		delete(g.slots, playerID)
		g.commit(evs, sess, seq)
	})
}

// ExportSnapshot returns a consistent snapshot, serialized on the loop.
func (g *Game) ExportSnapshot() ([]byte, error) {
	return g.store.PostAndWait(func() ([]byte, error) {
		if g.fatal {
			return nil, codes.ErrGameCorrupt
		}
		return model.MarshalSnapshot(g.state)
	})
}

// ImportSnapshot replaces the live state with a validated snapshot. Meant
// for operator repair of a latched game; bound slots survive when their
// player ids still exist.
func (g *Game) ImportSnapshot(data []byte) error {
	_, err := g.store.PostAndWait(func() ([]byte, error) {
		st, err := model.UnmarshalSnapshot(data)
		if err != nil {
			return nil, err
		}
		if st.GameID != g.id {
			return nil, codes.ErrBadPayload
		}
		g.state = st
		g.fatal = false
		for pid, slot := range g.slots {
			if st.PlayerByID(pid) == nil {
				if slot.online() {
					slot.Sess.Close(false)
				}
				delete(g.slots, pid)
			}
		}
		for _, p := range st.Players {
			if p.Bankrupt {
				continue
			}
			if _, ok := g.slots[p.ID]; !ok {
				token, _ := gonanoid.New(21)
				g.slots[p.ID] = &Slot{PlayerID: p.ID, Token: token, OfflineAt: time.Now()}
			}
		}
		g.touch()
		g.journal("snapshot imported seq=%d", st.Seq)
		g.pushStateAll()
		g.rearmStage()
		return nil, nil
	})
	return err
}

// Shutdown evicts the game: final snapshot, journal flush, sessions closed.
func (g *Game) Shutdown(save bool) {
	g.post(func() {
		g.shutdown(save)
	})
}

func (g *Game) shutdown(save bool) {
	if g.closed {
		return
	}
	g.closed = true
	if save && !g.fatal {
		if snap, err := g.marshalPersist(); err == nil {
			g.repo.SaveSnapshot(g.ctx, g.id, g.state.Seq, snap)
		}
	}
	if g.glog != nil {
		_ = g.glog.Sync()
	}
	for _, slot := range g.slots {
		if slot.online() {
			g.binder.Drop(slot.Sess.ID())
			slot.Sess.Close(false)
		}
	}
	g.log.Infof("game evicted seq=%d", g.state.Seq)
	if g.onIdle != nil {
		go g.onIdle(g.id)
	}
	// stop the store off-loop; Stop waits for the running job
	go func() {
		g.cancel()
		g.store.Stop()
	}()
}

// checkIdle runs on the eviction ticker: a game with no live socket and no
// recent activity saves itself and goes away.
func (g *Game) checkIdle() {
	if g.closed {
		return
	}
	for _, slot := range g.slots {
		if slot.online() {
			return
		}
	}
	if time.Since(g.lastActive) < g.gc.IdleEviction() {
		return
	}
	g.shutdown(true)
}

func (g *Game) touch() {
	g.lastActive = time.Now()
}

// commit finalizes one accepted action: journal, persistence export,
// broadcast, stage timer rearm and the robot tick.
func (g *Game) commit(evs []model.Event, requester *ws.Session, seq int64) {
	g.touch()
	if len(evs) > 0 {
		for _, ev := range evs {
			g.journal("ev seq=%d type=%s %v", ev.Seq, ev.Type, ev.Payload)
		}
		g.repo.AppendEvents(g.ctx, g.id, evs)
		g.repo.TouchRecent(g.ctx, g.id)
		g.sinceSnap += len(evs)
		if g.sinceSnap >= snapshotEvery || g.state.Phase == model.PhGameOver {
			g.sinceSnap = 0
			if snap, err := g.marshalPersist(); err == nil {
				g.repo.SaveSnapshot(g.ctx, g.id, g.state.Seq, snap)
			}
		}
	}
	g.broadcast(evs, requester, seq)
	g.rearmStage()
	g.scheduleRobot()
}

// journal writes one line to the per-game file log.
func (g *Game) journal(format string, args ...interface{}) {
	if g.glog != nil {
		g.glog.WriteLog(format, args...)
	}
}

// stageKey names the decision a phase deadline waits on. Chat, signals and
// estate shuffling move the event sequence without moving the key, so they
// never stretch a running window.
type stageKey struct {
	phase model.Phase
	actor int32
	step  int64
}

// currentStage derives the awaited decision and its window from the state.
// Within one turn every successive roll raises Doubles, so (turn, doubles,
// rolled) discriminates consecutive windows of the same phase.
func (g *Game) currentStage() (stageKey, time.Duration, bool) {
	s := g.state
	step := int64(s.Turn)<<4 | int64(s.Doubles)<<1
	if s.Rolled {
		step |= 1
	}
	switch s.Phase {
	case model.PhAwaitRoll:
		return stageKey{phase: s.Phase, actor: s.Current, step: step}, g.gc.TurnTimeout(), true
	case model.PhAwaitAction:
		return stageKey{phase: s.Phase, actor: s.Current, step: step<<32 | int64(uint32(s.PendingBuy))}, g.gc.TurnTimeout(), true
	case model.PhAuction:
		if s.Auction == nil {
			return stageKey{}, 0, false
		}
		return stageKey{phase: s.Phase, actor: s.Auction.SquareID, step: step}, g.gc.AuctionWindow(), true
	case model.PhTrade:
		if s.Trade == nil {
			return stageKey{}, 0, false
		}
		return stageKey{phase: s.Phase, actor: s.Trade.To, step: s.Trade.ID}, g.gc.TradeWindow(), true
	}
	return stageKey{}, 0, false
}

// rearmStage keeps exactly one deadline timer per awaited decision. A commit
// that leaves the decision unchanged keeps the running timer; the key is
// rechecked when the timer fires in case the world moved on.
func (g *Game) rearmStage() {
	key, d, ok := g.currentStage()
	if !ok || len(g.state.Players) == 0 {
		g.store.Cancel(g.stageTimer)
		g.stageTimer = 0
		return
	}
	if g.stageTimer != 0 && key == g.stage {
		return
	}
	g.store.Cancel(g.stageTimer)
	g.stage = key
	g.stageTimer = g.store.Once(d, func() {
		g.stageTimer = 0
		if g.fatal || g.closed {
			return
		}
		if now, _, ok := g.currentStage(); !ok || now != key {
			return
		}
		g.journal("deadline phase=%v turn=%d", g.state.Phase, g.state.Turn)
		g.autoAct()
	})
}

package game

import (
	"encoding/json"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/gamehall/monopoly/internal/model"
	"github.com/gamehall/monopoly/pkg/codes"
)

// persisted is the stored form of a game: the engine snapshot plus the
// per-seat reconnect material the rules state never carries. Tokens stay out
// of the snapshot pushed to clients; they only live in this envelope.
type persisted struct {
	State json.RawMessage   `json:"state"`
	Seats map[int32]seatRec `json:"seats,omitempty"`
}

type seatRec struct {
	Token    string `json:"token"`
	LastSeq  int64  `json:"lastSeq,omitempty"`
	RobotCtl bool   `json:"robotCtl,omitempty"`
}

// marshalPersist captures state and seats for SaveSnapshot.
func (g *Game) marshalPersist() ([]byte, error) {
	snap, err := model.MarshalSnapshot(g.state)
	if err != nil {
		return nil, err
	}
	seats := make(map[int32]seatRec, len(g.slots))
	for pid, slot := range g.slots {
		seats[pid] = seatRec{Token: slot.Token, LastSeq: slot.LastSeq, RobotCtl: slot.RobotCtl}
	}
	return json.Marshal(&persisted{State: snap, Seats: seats})
}

// restorePersist rebuilds state and seats from a stored blob. A bare engine
// snapshot without the seats envelope is accepted; those seats are reissued.
func (g *Game) restorePersist(data []byte) error {
	raw := data
	var seats map[int32]seatRec
	var p persisted
	if err := json.Unmarshal(data, &p); err == nil && len(p.State) > 0 {
		raw = p.State
		seats = p.Seats
	}
	st, err := model.UnmarshalSnapshot(raw)
	if err != nil {
		return err
	}
	if st.GameID != g.id {
		return codes.ErrBadPayload
	}
	g.state = st
	g.rebuildSlots(seats)
	return nil
}

// rebuildSlots gives every surviving player a seat again so reconnects find
// their slot after an eviction or restart. Seats with no stored record get a
// fresh token; the old one is gone for good.
func (g *Game) rebuildSlots(seats map[int32]seatRec) {
	g.slots = make(map[int32]*Slot, len(g.state.Players))
	for _, p := range g.state.Players {
		if p.Bankrupt {
			continue
		}
		slot := &Slot{PlayerID: p.ID, OfflineAt: time.Now()}
		if rec, ok := seats[p.ID]; ok && rec.Token != "" {
			slot.Token = rec.Token
			slot.LastSeq = rec.LastSeq
			slot.RobotCtl = rec.RobotCtl
		} else {
			slot.Token, _ = gonanoid.New(21)
		}
		g.slots[p.ID] = slot
	}
}

package model

import (
	"encoding/json"

	"github.com/gamehall/monopoly/pkg/codes"
)

// MarshalSnapshot serializes the full state. Snapshots feed the persistence
// bridge and the operator export endpoint; an unmarshal of the result is a
// byte-faithful replacement for the live state.
func MarshalSnapshot(s *State) ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, codes.ErrGameCorrupt.WithCause(err)
	}
	return b, nil
}

// UnmarshalSnapshot restores a state from a snapshot, validating the
// structural invariants a corrupted or hand-edited import would break.
func UnmarshalSnapshot(data []byte) (*State, error) {
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, codes.ErrGameCorrupt.WithCause(err)
	}
	if err := validateSnapshot(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

func validateSnapshot(s *State) error {
	if s.GameID == "" || len(s.Squares) != BoardSize {
		return codes.ErrGameCorrupt
	}
	for i, q := range s.Squares {
		if q == nil || q.ID != int32(i) {
			return codes.ErrGameCorrupt
		}
		if q.Owner != Bank && s.PlayerByID(q.Owner) == nil {
			return codes.ErrGameCorrupt
		}
		if q.Level < 0 || q.Level > MaxLevel {
			return codes.ErrGameCorrupt
		}
	}
	for _, p := range s.Players {
		if p == nil || p.ID <= 0 || p.Pos < 0 || p.Pos >= BoardSize {
			return codes.ErrGameCorrupt
		}
	}
	if s.Phase != PhGameOver && len(s.Players) > 0 {
		cur := s.PlayerByID(s.Current)
		if cur == nil || cur.Bankrupt {
			return codes.ErrGameCorrupt
		}
	}
	if s.Chance == nil || s.Chest == nil {
		return codes.ErrGameCorrupt
	}
	return nil
}

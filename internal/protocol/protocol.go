// Package protocol defines the JSON wire envelope and message bodies spoken
// over the websocket. Every frame in both directions is one Envelope; the
// type field selects the body schema carried in payload.
package protocol

import (
	"encoding/json"

	"github.com/gamehall/monopoly/internal/model"
)

// Envelope frames every message. Seq is a client-chosen request sequence:
// responses and errors echo it, pushes carry zero. Requests repeating an
// already-processed seq are acknowledged without re-applying.
type Envelope struct {
	Type    string          `json:"type"`
	Seq     int64           `json:"seq,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Inbound message types.
const (
	TypeJoin       = "join"
	TypeReconnect  = "reconnect"
	TypeLeave      = "leave"
	TypeRoll       = "roll"
	TypeUseCard    = "useJailCard"
	TypeBuy        = "buy"
	TypeDecline    = "decline"
	TypeBid        = "bid"
	TypePass       = "pass"
	TypeBuild      = "build"
	TypeSell       = "sell"
	TypeMortgage   = "mortgage"
	TypeUnmortgage = "unmortgage"
	TypeTrade      = "proposeTrade"
	TypeAccept     = "acceptTrade"
	TypeReject     = "rejectTrade"
	TypeCounter    = "counterTrade"
	TypeEndTurn    = "endTurn"
	TypeChat       = "chat"
	TypeSignal     = "signal"
	TypeAdvice     = "advice"
	TypePing       = "ping"
)

// Outbound message types.
const (
	TypeJoined   = "joined"
	TypeState    = "state"
	TypeEvents   = "events"
	TypeError    = "error"
	TypeSignaled = "signaled"
	TypeAdvised  = "advised"
	TypePong     = "pong"
)

type JoinReq struct {
	GameID string `json:"gameId"`
	Name   string `json:"name"`
	Color  string `json:"color"`
}

type ReconnectReq struct {
	GameID   string `json:"gameId"`
	PlayerID int32  `json:"playerId"`
	Token    string `json:"token"`
}

type BidReq struct {
	Amount int64 `json:"amount"`
}

type SquareReq struct {
	SquareID int32 `json:"squareId"`
}

type TradeReq struct {
	To    int32           `json:"to"`
	Offer model.TradeSide `json:"offer"`
	Want  model.TradeSide `json:"want"`
}

type TradeRespReq struct {
	TradeID int64 `json:"tradeId"`
}

type CounterReq struct {
	TradeID int64           `json:"tradeId"`
	Offer   model.TradeSide `json:"offer"`
	Want    model.TradeSide `json:"want"`
}

type ChatReq struct {
	Text string `json:"text"`
}

// SignalReq relays an opaque blob within the game; the server never inspects
// Data. To zero broadcasts to every other player (presence), otherwise the
// blob is unicast to one co-player.
type SignalReq struct {
	To   int32           `json:"to"`
	Data json.RawMessage `json:"data"`
}

type JoinedResp struct {
	GameID   string          `json:"gameId"`
	PlayerID int32           `json:"playerId"`
	Token    string          `json:"token"`
	State    json.RawMessage `json:"state"`
}

// StatePush carries a full snapshot, sent on join, reconnect and whenever a
// client falls too far behind the event stream.
type StatePush struct {
	GameID string          `json:"gameId"`
	State  json.RawMessage `json:"state"`
}

type EventsPush struct {
	GameID string        `json:"gameId"`
	Events []model.Event `json:"events"`
}

type SignalPush struct {
	From int32           `json:"from"`
	Data json.RawMessage `json:"data"`
}

type AdvicePush struct {
	Advice json.RawMessage `json:"advice"`
}

type ErrorResp struct {
	Code    int32  `json:"code"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// Encode marshals a complete frame.
func Encode(typ string, seq int64, body any) ([]byte, error) {
	var raw json.RawMessage
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return json.Marshal(&Envelope{Type: typ, Seq: seq, Payload: raw})
}

// Decode unmarshals one frame without touching the payload.
func Decode(data []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

package codes

import (
	"github.com/yola1107/kratos/v2/errors"
)

// Reason groups every error into the four outcome classes the actor
// distinguishes. Validation and Conflict are rejected to the caller only,
// Transient is logged and absorbed, Fatal latches the game actor.
const (
	ReasonValidation = "VALIDATION"
	ReasonConflict   = "CONFLICT"
	ReasonTransient  = "TRANSIENT"
	ReasonFatal      = "FATAL"
)

var (
	ErrUnknownMessage  = errors.New(100, ReasonValidation, "unknown message type")
	ErrBadPayload      = errors.New(101, ReasonValidation, "malformed payload")
	ErrSessionNotFound = errors.New(102, ReasonValidation, "session not found")
	ErrPlayerNotFound  = errors.New(103, ReasonValidation, "player not found")
	ErrGameNotFound    = errors.New(104, ReasonValidation, "game not found")
	ErrGameFull        = errors.New(105, ReasonValidation, "game is full")
	ErrAlreadyJoined   = errors.New(106, ReasonValidation, "session already bound to a player")
	ErrSlotBound       = errors.New(107, ReasonValidation, "player slot already bound to a live socket")
	ErrTokenFail       = errors.New(108, ReasonValidation, "reconnect token rejected")

	ErrNotYourTurn       = errors.New(120, ReasonValidation, "not your turn")
	ErrWrongPhase        = errors.New(121, ReasonValidation, "action illegal in current phase")
	ErrIllegalTarget     = errors.New(122, ReasonValidation, "illegal target square")
	ErrInsufficientFunds = errors.New(123, ReasonValidation, "insufficient funds")
	ErrNotOwner          = errors.New(124, ReasonValidation, "square not owned by player")
	ErrGroupIncomplete   = errors.New(125, ReasonValidation, "color group not fully owned")
	ErrGroupMortgaged    = errors.New(126, ReasonValidation, "color group has mortgaged square")
	ErrGroupImbalance    = errors.New(127, ReasonValidation, "improvements must stay balanced")
	ErrBankrupt          = errors.New(128, ReasonValidation, "player is bankrupt")
	ErrBidTooLow         = errors.New(129, ReasonValidation, "bid not above current high bid")
	ErrDebtOutstanding   = errors.New(130, ReasonValidation, "negative balance must be settled first")

	ErrAuctionClosed = errors.New(140, ReasonConflict, "auction already closed")
	ErrTradeStale    = errors.New(141, ReasonConflict, "trade assets changed since offer")
	ErrTradeClosed   = errors.New(142, ReasonConflict, "trade no longer pending")

	ErrTargetOffline = errors.New(160, ReasonTransient, "signal target not connected")
	ErrAdvisory      = errors.New(161, ReasonTransient, "advisory call failed")
	ErrPersistence   = errors.New(162, ReasonTransient, "persistence export failed")

	ErrGameCorrupt = errors.New(180, ReasonFatal, "game state corrupt, actor halted")
)

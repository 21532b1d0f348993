package battle

import "errors"

var (
	ErrMalformed         = errors.New("malformed instruction")
	ErrUnknownCard       = errors.New("unknown card")
	ErrUnknownTarget     = errors.New("unknown target")
	ErrUnknownSkill      = errors.New("unknown skill")
	ErrBattleOver        = errors.New("battle is over")
	ErrNotEnoughEnergy   = errors.New("not enough energy")
	ErrNoPendingDecision = errors.New("no pending decision")
	ErrInvalidChoice     = errors.New("invalid choice")
	ErrNotStarted        = errors.New("battle not started")
	ErrAlreadyStarted    = errors.New("battle already started")
)

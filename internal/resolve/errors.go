package resolve

import "errors"

var (
	// ErrBusy is returned when a pass is requested while another is running.
	ErrBusy = errors.New("resolution pass already running")

	// ErrRunaway means a pass exceeded its depth or step ceiling. It points at
	// a content bug and is never retried.
	ErrRunaway = errors.New("resolution runaway")

	ErrNilInstruction = errors.New("nil instruction")
	ErrNoSlot         = errors.New("no open mailbox slot")
	ErrSlotFilled     = errors.New("mailbox slot already filled")
	ErrNoExecutor     = errors.New("no executor bound")
)

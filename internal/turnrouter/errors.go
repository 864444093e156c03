package turnrouter

import (
	"errors"
	"fmt"

	"github.com/corridors/server/internal/domain/model"
	"github.com/corridors/server/internal/kernel"
)

// translateErr maps a failure surfacing from the Search Adapter or kernel
// into one of the §7 error kinds, in one place, patterned on the teacher's
// Bind panic-recovery-and-ack-vs-nack decision (handler/amqp/bind.go):
// every inbound failure gets exactly one classification point.
func translateErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, kernel.ErrInvalidAction):
		return fmt.Errorf("%w: %v", model.ErrIllegalMove, err)
	case errors.Is(err, model.ErrAdapterClosed):
		return fmt.Errorf("%w: %v", model.ErrInternal, err)
	case errors.Is(err, model.ErrEngineTimeout):
		return err
	case errors.Is(err, model.ErrIllegalMove),
		errors.Is(err, model.ErrNotFound),
		errors.Is(err, model.ErrNotInProgress),
		errors.Is(err, model.ErrNotYourTurn),
		errors.Is(err, model.ErrAlreadyQueued):
		return err
	default:
		return fmt.Errorf("%w: %v", model.ErrInternal, err)
	}
}

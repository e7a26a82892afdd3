package shop

import (
	"errors"
	"fmt"

	"github.com/samber/oops"

	"github.com/mesh-intelligence/shopkeeper/internal/card"
	"github.com/mesh-intelligence/shopkeeper/internal/session"
	"github.com/mesh-intelligence/shopkeeper/pkg/types"
)

// Error codes for command failures.
const (
	CodeValidation       = "VALIDATION"
	CodeNotFound         = "NOT_FOUND"
	CodeDuplicate        = "DUPLICATE"
	CodePermissionDenied = "PERMISSION_DENIED"
	CodeTimeout          = "TIMEOUT"
	CodeStorage          = "STORAGE"
	CodeDelivery         = "DELIVERY"
	CodeWrongChannel     = "WRONG_CHANNEL"
	CodeEmpty            = "EMPTY"
)

const genericFailure = "Something went wrong. Try again."

// ErrValidation reports malformed input.
func ErrValidation(message string) error {
	return oops.Code(CodeValidation).
		With("message", message).
		Errorf("validation: %s", message)
}

// ErrNotFound reports a reference that matched no record.
func ErrNotFound(kind, ref string) error {
	return oops.Code(CodeNotFound).
		With("kind", kind).
		With("ref", ref).
		With("message", fmt.Sprintf("No %s matches %q.", kind, ref)).
		Errorf("%s %q not found", kind, ref)
}

// ErrDuplicate reports a name already taken in a table with unique names.
func ErrDuplicate(kind, name string) error {
	return oops.Code(CodeDuplicate).
		With("kind", kind).
		With("name", name).
		With("message", fmt.Sprintf("A %s named %q already exists. Use another name.", kind, name)).
		Errorf("duplicate %s name %q", kind, name)
}

// ErrPermissionDenied reports an actor failing the action gate.
func ErrPermissionDenied(actor, kind string, id int64) error {
	return oops.Code(CodePermissionDenied).
		With("actor", actor).
		With("kind", kind).
		With("id", id).
		Errorf("actor %s may not modify %s %d", actor, kind, id)
}

// ErrTimeout reports a flow step that did not arrive in time.
func ErrTimeout(flowID string) error {
	return oops.Code(CodeTimeout).
		With("flow_id", flowID).
		Errorf("flow %s timed out", flowID)
}

// ErrWrongChannel reports an NPC invoked outside its assigned channel.
func ErrWrongChannel(name, channel string) error {
	return oops.Code(CodeWrongChannel).
		With("npc", name).
		With("channel", channel).
		Errorf("npc %q is not available in channel %s", name, channel)
}

// ErrEmpty reports a list with nothing to show.
func ErrEmpty(message string) error {
	return oops.Code(CodeEmpty).
		With("message", message).
		Errorf("empty: %s", message)
}

// ErrStorage wraps a persistence failure.
func ErrStorage(op string, cause error) error {
	return oops.Code(CodeStorage).
		With("op", op).
		Wrapf(cause, "%s", op)
}

// ErrDelivery wraps a failure to post to a channel.
func ErrDelivery(channel string, cause error) error {
	return oops.Code(CodeDelivery).
		With("channel", channel).
		Wrapf(cause, "delivering to %s", channel)
}

// storeError converts a store sentinel into a coded error.
func storeError(op, kind, ref string, err error) error {
	switch {
	case errors.Is(err, types.ErrNotFound):
		return ErrNotFound(kind, ref)
	case errors.Is(err, types.ErrDuplicateName):
		return ErrDuplicate(kind, ref)
	case errors.Is(err, types.ErrInvalidName):
		return ErrValidation(fmt.Sprintf("Names must be 1 to %d characters.", types.MaxNameLength))
	case errors.Is(err, types.ErrInvalidFilter):
		return ErrValidation("Unknown filter field.")
	case errors.Is(err, types.ErrInvalidID):
		return ErrValidation("Ids are positive numbers.")
	case errors.Is(err, types.ErrInvalidData):
		return ErrValidation(fmt.Sprintf("Invalid %s data.", kind))
	default:
		return ErrStorage(op, err)
	}
}

// sessionError converts a session sentinel into a coded error.
func sessionError(flowID string, err error) error {
	switch {
	case errors.Is(err, session.ErrTimeout):
		return ErrTimeout(flowID)
	case errors.Is(err, session.ErrFlowNotFound):
		return ErrNotFound("flow", flowID)
	case errors.Is(err, session.ErrWrongStep):
		return ErrValidation("That step does not apply right now.")
	case errors.Is(err, session.ErrInvalidSelection):
		return ErrValidation("Pick one of the offered options.")
	default:
		return err
	}
}

// Code returns the error code of err, or "" for uncoded errors.
func Code(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code, _ := oopsErr.Code().(string)
	return code
}

// IsSystemError reports whether err is a fault of the system rather than of
// the request.
func IsSystemError(err error) bool {
	switch Code(err) {
	case CodeStorage, CodeDelivery, "":
		return err != nil
	default:
		return false
	}
}

// PlayerMessage extracts an actor-facing message from an error.
func PlayerMessage(err error) string {
	if err == nil {
		return genericFailure
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return genericFailure
	}
	msg, _ := oopsErr.Context()["message"].(string)

	switch oopsErr.Code() {
	case CodeValidation, CodeNotFound, CodeDuplicate, CodeEmpty:
		if msg != "" {
			return msg
		}
		return "Invalid request."
	case CodePermissionDenied:
		return "You don't have permission to do that."
	case CodeTimeout:
		return "You took too long to answer. Nothing was saved."
	case CodeWrongChannel:
		return "This NPC is not available in this channel."
	case CodeDelivery:
		return "The message could not be posted."
	default:
		return genericFailure
	}
}

// ErrorCard renders err for the actor.
func ErrorCard(err error) card.Card {
	return card.Error(PlayerMessage(err))
}

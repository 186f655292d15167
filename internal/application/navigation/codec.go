// Package navigation encodes and decodes inline keyboard callback state.
//
// Callback data is attacker-controlled: anyone can send an arbitrary
// callback payload to the bot, so decoding never trusts its input and
// every decoded student id is checked against the requesting parent's
// own children before any remote call is made.
package navigation

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/mesh-hub/mesh-schedule-bot/internal/domain/parent"
	"github.com/mesh-hub/mesh-schedule-bot/internal/domain/schedule"
	"github.com/mesh-hub/mesh-schedule-bot/internal/domain/shared"
	"github.com/mesh-hub/mesh-schedule-bot/pkg/logctx"
)

const (
	// Prefix marks schedule navigation callbacks.
	Prefix = "sched"

	// MaxPayloadLen is the Telegram callback_data size limit in bytes.
	MaxPayloadLen = 64

	// separator joins payload segments. None of the segments may contain it.
	separator = ":"

	// payload is always prefix + action + student id + extra
	segmentCount = 4
)

// Known actions.
const (
	// ActionChild selects a child from the chooser keyboard.
	ActionChild = "child"

	// ActionPeriod switches the schedule period for a child.
	ActionPeriod = "period"

	// ActionRetry re-runs the last fetch after a failure.
	ActionRetry = "retry"
)

// State is the decoded navigation state carried inside callback data.
type State struct {
	// Action is what the button does (child, period, retry).
	Action string

	// StudentID is the child the action applies to.
	StudentID int64

	// Extra carries the period kind for period/retry actions; empty for
	// child selection (which defaults to today).
	Extra string
}

// Encode serializes the state into callback data. It fails rather than
// emitting a payload Telegram would reject or a later Decode could not
// parse.
func Encode(state State) (string, error) {
	if state.Action == "" {
		return "", shared.NewDomainError("navigation", "encode", shared.ErrInvalidInput, "empty action")
	}
	if strings.Contains(state.Action, separator) || strings.Contains(state.Extra, separator) {
		return "", shared.NewDomainError("navigation", "encode", shared.ErrInvalidInput,
			"segment contains separator")
	}
	if !validExtra(state.Action, state.Extra) {
		return "", shared.NewDomainError("navigation", "encode", shared.ErrInvalidInput,
			"extra is not valid for the action")
	}

	payload := strings.Join([]string{
		Prefix,
		state.Action,
		strconv.FormatInt(state.StudentID, 10),
		state.Extra,
	}, separator)

	if len(payload) > MaxPayloadLen {
		return "", shared.NewDomainError("navigation", "encode", shared.ErrInvalidInput,
			fmt.Sprintf("payload is %d bytes, limit %d", len(payload), MaxPayloadLen))
	}

	return payload, nil
}

// Decode parses callback data back into a State. Any deviation from the
// expected shape yields ErrMalformedState; adversarial input must never
// panic or be partially accepted.
func Decode(data string) (*State, error) {
	malformed := func(reason string) error {
		return shared.NewDomainError("navigation", "decode", shared.ErrMalformedState, reason)
	}

	if len(data) > MaxPayloadLen {
		return nil, malformed("payload too long")
	}

	parts := strings.Split(data, separator)
	if len(parts) != segmentCount {
		return nil, malformed(fmt.Sprintf("expected %d segments, got %d", segmentCount, len(parts)))
	}
	if parts[0] != Prefix {
		return nil, malformed("unknown prefix")
	}

	action := parts[1]
	switch action {
	case ActionChild, ActionPeriod, ActionRetry:
	default:
		return nil, malformed("unknown action")
	}

	studentID, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return nil, malformed("student id is not an integer")
	}

	extra := parts[3]
	if !validExtra(action, extra) {
		return nil, malformed("extra is not valid for the action")
	}

	return &State{
		Action:    action,
		StudentID: studentID,
		Extra:     extra,
	}, nil
}

// validExtra reports whether the extra segment is allowed for the action:
// period switches and retries carry a known period kind, child selection
// carries nothing.
func validExtra(action, extra string) bool {
	switch action {
	case ActionChild:
		return extra == ""
	case ActionPeriod, ActionRetry:
		return schedule.PeriodKind(extra).Valid()
	}
	return false
}

// ChildrenSource lists the children linked to a parent.
type ChildrenSource interface {
	ListChildren(ctx context.Context, id parent.TelegramID) ([]parent.Child, error)
}

// Authorizer decodes callback state and enforces ownership.
type Authorizer struct {
	children ChildrenSource
	logger   *slog.Logger
}

// NewAuthorizer creates a callback authorizer.
func NewAuthorizer(children ChildrenSource, logger *slog.Logger) *Authorizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authorizer{children: children, logger: logger}
}

// DecodeAndAuthorize decodes callback data and verifies that the student
// it names belongs to the requesting parent, returning the matched child.
//
// The check fails closed: if the children list cannot be loaded, the
// callback is rejected rather than allowed through. Rejection for a
// foreign student id and rejection for a malformed one are distinct
// errors internally, but callers should answer both with the same
// generic refusal so the payload format gives nothing away to probing.
func (a *Authorizer) DecodeAndAuthorize(ctx context.Context, requester parent.TelegramID, data string) (*State, *parent.Child, error) {
	state, err := Decode(data)
	if err != nil {
		return nil, nil, err
	}

	logger := logctx.From(ctx, a.logger)

	children, err := a.children.ListChildren(ctx, requester)
	if err != nil {
		logger.Warn("children lookup failed during callback authorization, rejecting",
			"telegram_id", requester, "error", err)
		return nil, nil, shared.WrapError("navigation", "authorize", shared.ErrRejected,
			"ownership could not be verified", err)
	}

	child := parent.FindChild(children, state.StudentID)
	if child == nil {
		logger.Warn("callback referenced a student not linked to the requester",
			"telegram_id", requester, "student_id", state.StudentID)
		return nil, nil, shared.NewDomainError("navigation", "authorize", shared.ErrRejected,
			"student does not belong to requester")
	}

	return state, child, nil
}

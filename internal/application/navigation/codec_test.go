package navigation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-hub/mesh-schedule-bot/internal/domain/parent"
	"github.com/mesh-hub/mesh-schedule-bot/internal/domain/shared"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	cases := []State{
		{Action: ActionChild, StudentID: 1001},
		{Action: ActionPeriod, StudentID: 1001, Extra: "week"},
		{Action: ActionPeriod, StudentID: -5, Extra: "tomorrow"},
		{Action: ActionRetry, StudentID: 9223372036854775807, Extra: "today"},
	}

	for _, state := range cases {
		data, err := Encode(state)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(data), MaxPayloadLen)

		got, err := Decode(data)
		require.NoError(t, err)
		assert.Equal(t, state, *got)
	}
}

func TestEncode_Rejects(t *testing.T) {
	cases := map[string]State{
		"empty action":             {StudentID: 1},
		"separator in action":      {Action: "a:b", StudentID: 1},
		"separator in extra":       {Action: ActionPeriod, StudentID: 1, Extra: "to:day"},
		"unknown period in extra":  {Action: ActionPeriod, StudentID: 1, Extra: "yesterday"},
		"extra on child selection": {Action: ActionChild, StudentID: 1, Extra: "today"},
		"oversized extra":          {Action: ActionRetry, StudentID: 1, Extra: strings.Repeat("x", 60)},
	}

	for name, state := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Encode(state)
			assert.ErrorIs(t, err, shared.ErrInvalidInput)
		})
	}
}

func TestDecode_MalformedInput(t *testing.T) {
	cases := []string{
		"",
		"sched",
		"sched:period",
		"sched:period:123",                      // missing extra segment
		"sched:period:123:week:junk",            // too many segments
		"sched:period:abc:week",                 // non-numeric student id
		"other:period:123:week",                 // wrong prefix
		"sched:launch:123:week",                 // unknown action
		"sched:period:123:garbage",              // unknown period in extra
		"sched:period:123:",                     // empty period
		"sched:retry:123:yesterday",             // unknown period on retry
		"sched:child:123:week",                  // extra where none belongs
		"sched:period:99999999999999999999:week", // int64 overflow
		strings.Repeat("x", 200),                // oversized garbage
		"::::",
	}

	for _, data := range cases {
		t.Run(data, func(t *testing.T) {
			state, err := Decode(data)
			assert.Nil(t, state)
			assert.ErrorIs(t, err, shared.ErrMalformedState)
		})
	}
}

// ── authorization ──

type fakeChildren struct {
	children []parent.Child
	err      error
}

func (f *fakeChildren) ListChildren(ctx context.Context, id parent.TelegramID) ([]parent.Child, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.children, nil
}

func ownChildren() []parent.Child {
	return []parent.Child{
		{StudentID: 10, ParentTelegramID: 1, PersonID: "p-10"},
		{StudentID: 20, ParentTelegramID: 1, PersonID: "p-20"},
	}
}

func TestDecodeAndAuthorize_OwnChild(t *testing.T) {
	auth := NewAuthorizer(&fakeChildren{children: ownChildren()}, nil)

	state, child, err := auth.DecodeAndAuthorize(context.Background(), 1, "sched:period:20:week")
	require.NoError(t, err)
	assert.Equal(t, int64(20), state.StudentID)
	assert.Equal(t, "week", state.Extra)
	require.NotNil(t, child)
	assert.Equal(t, "p-20", child.PersonID)
}

func TestDecodeAndAuthorize_ForeignChildRejected(t *testing.T) {
	auth := NewAuthorizer(&fakeChildren{children: ownChildren()}, nil)

	state, child, err := auth.DecodeAndAuthorize(context.Background(), 1, "sched:period:30:week")
	assert.Nil(t, state)
	assert.Nil(t, child)
	assert.ErrorIs(t, err, shared.ErrRejected)
}

func TestDecodeAndAuthorize_LookupFailureFailsClosed(t *testing.T) {
	auth := NewAuthorizer(&fakeChildren{err: errors.New("db down")}, nil)

	_, _, err := auth.DecodeAndAuthorize(context.Background(), 1, "sched:period:10:week")
	assert.ErrorIs(t, err, shared.ErrRejected)
}

func TestDecodeAndAuthorize_MalformedBeforeLookup(t *testing.T) {
	// Lookup errors must not mask a malformed payload.
	auth := NewAuthorizer(&fakeChildren{err: errors.New("db down")}, nil)

	_, _, err := auth.DecodeAndAuthorize(context.Background(), 1, "sched:period:abc:week")
	assert.ErrorIs(t, err, shared.ErrMalformedState)
}

package generic_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/warp/calltracker/generic"
)

func TestRemoteError_MatchesReadOrWriteSentinel(t *testing.T) {
	cause := errors.New("connection refused")

	read := fmt.Errorf("fetch: %w", &generic.RemoteError{Op: "query", Collection: "dailyLogs", Err: cause})
	write := &generic.RemoteError{Op: "put", Collection: "dailyLogs", Key: "ana_2026-03-01", Err: cause}

	assert.ErrorIs(t, read, generic.ErrRemoteRead)
	assert.NotErrorIs(t, read, generic.ErrRemoteWrite)
	assert.ErrorIs(t, write, generic.ErrRemoteWrite)
	assert.ErrorIs(t, write, cause)
	assert.True(t, generic.IsRemote(read))
	assert.Equal(t, "put dailyLogs/ana_2026-03-01: connection refused", write.Error())
}

func TestErrorClassification(t *testing.T) {
	assert.True(t, generic.IsClientError(&generic.ValidationError{Field: "rate", Value: "x", Reason: "not a number"}))
	assert.True(t, generic.IsClientError(&generic.NameConflictError{Nickname: "ana"}))
	assert.True(t, generic.IsClientError(generic.ErrNicknameRequired))
	assert.False(t, generic.IsClientError(generic.ErrNotAuthenticated))
	assert.True(t, generic.IsNotAuthenticated(fmt.Errorf("sync: %w", generic.ErrNotAuthenticated)))
	assert.False(t, generic.IsRemote(generic.ErrValidation))
}

func TestNameConflictError_Message(t *testing.T) {
	err := &generic.NameConflictError{Nickname: "ana"}
	assert.Equal(t, `"ana" is already taken`, err.Error())
	assert.ErrorIs(t, err, generic.ErrNameConflict)
}

package errorx

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeError_WrapKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, CodeDBError, "查询失败")

	assert.Equal(t, "查询失败: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, CodeDBError, GetCode(err))
}

func TestCodeError_IsMatchesByCode(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", Wrap(errors.New("x"), CodeForbidden, "no"))

	assert.ErrorIs(t, wrapped, ErrForbidden)
	assert.NotErrorIs(t, wrapped, ErrEmptyMessage)
	assert.Equal(t, CodeForbidden, GetCode(wrapped))
}

func TestGetCode_DefaultsToServerBusy(t *testing.T) {
	assert.Equal(t, CodeServerBusy, GetCode(errors.New("plain")))
}

func TestIsNotFoundAndConflict(t *testing.T) {
	assert.True(t, IsNotFound(New(CodeNotFound, "missing")))
	assert.True(t, IsNotFound(errors.New("record not found")))
	assert.False(t, IsNotFound(nil))
	assert.True(t, IsConflict(Wrapf(errors.New("dup"), CodeConflict, "key %s", "1:2")))
	assert.False(t, IsConflict(ErrDuplicateRequest))
}

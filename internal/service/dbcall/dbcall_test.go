package dbcall

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"reconnect_server/pkg/errorx"

	"github.com/stretchr/testify/assert"
)

func fastPolicy() Policy {
	return Policy{Timeout: time.Second, ReadRetries: 2, Backoff: time.Millisecond}
}

func TestRead_RetriesTransientErrors(t *testing.T) {
	calls := 0
	err := fastPolicy().Read(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errorx.Wrap(driver.ErrBadConn, errorx.CodeDBError, "query")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRead_GivesUpAfterRetries(t *testing.T) {
	calls := 0
	err := fastPolicy().Read(context.Background(), func(ctx context.Context) error {
		calls++
		return driver.ErrBadConn
	})
	assert.ErrorIs(t, err, driver.ErrBadConn)
	assert.Equal(t, 3, calls)
}

func TestRead_DoesNotRetryOtherErrors(t *testing.T) {
	calls := 0
	err := fastPolicy().Read(context.Background(), func(ctx context.Context) error {
		calls++
		return errors.New("syntax error")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestWrite_NeverRetries(t *testing.T) {
	calls := 0
	err := fastPolicy().Write(context.Background(), func(ctx context.Context) error {
		calls++
		return driver.ErrBadConn
	})
	assert.ErrorIs(t, err, driver.ErrBadConn)
	assert.Equal(t, 1, calls)
}

func TestWrite_AppliesDeadline(t *testing.T) {
	p := Policy{Timeout: 20 * time.Millisecond}
	err := p.Write(context.Background(), func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		assert.True(t, ok)
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

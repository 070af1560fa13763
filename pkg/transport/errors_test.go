package transport

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCodes(t *testing.T) {
	tests := []struct {
		sentinel  error
		code      Code
		retriable bool
	}{
		{ErrRadioUnavailable, CodeRadioUnavailable, false},
		{ErrDriverFailure, CodeDriverFailure, true},
		{ErrNotConnected, CodeNotConnected, false},
		{ErrConnectFailure, CodeConnectFailure, true},
		{ErrPeerUnknown, CodePeerUnknown, false},
		{ErrTimeout, CodeTimeout, true},
		{ErrInternal, CodeInternal, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			err := NewError(KindBLE, tt.sentinel, "boom")
			assert.Equal(t, tt.code, err.Code)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.Equal(t, tt.retriable, Retriable(err))

			wrapped := fmt.Errorf("start scan: %w", err)
			assert.Equal(t, tt.code, CodeOf(wrapped))
		})
	}
}

func TestErrorString(t *testing.T) {
	err := NewError(KindBLE, ErrRadioUnavailable, "Bluetooth is not enabled")
	assert.Equal(t, "BLUETOOTH_ERROR: Bluetooth is not enabled (RADIO_UNAVAILABLE)", err.Error())

	err = NewError(KindWiFiDirect, ErrDriverFailure, "")
	assert.Equal(t, "WIFI_ERROR: DRIVER_FAILURE", err.Error())
}

func TestWrapErrorKeepsCause(t *testing.T) {
	cause := errors.New("hci0: device busy")
	err := WrapError(KindBLE, ErrDriverFailure, "scan failed", cause)

	assert.ErrorIs(t, err, ErrDriverFailure)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, CodeDriverFailure, err.Code)
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, Code(""), CodeOf(nil))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("other")))
	assert.Equal(t, CodeTimeout, CodeOf(context.DeadlineExceeded))
}

func TestFromContext(t *testing.T) {
	assert.NoError(t, FromContext(KindBLE, context.Background(), "connect"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := FromContext(KindWiFiDirect, ctx, "connect")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGuardRecoversPanic(t *testing.T) {
	err := Guard(KindBLE, "startScan", func() error {
		panic("adapter vanished")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInternal)
	assert.Contains(t, err.Error(), "adapter vanished")

	assert.NoError(t, Guard(KindBLE, "noop", func() error { return nil }))
}

package timeout

import (
	"math/big"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/clearmatics/tendercore/tendermint/message"
)

func TestArmFiresAfterClockAdvance(t *testing.T) {
	mock := clock.NewMock()
	to := New(mock)

	token := to.Arm(big.NewInt(1), 0, message.StepPropose, 5*time.Second)
	mock.Add(5 * time.Second)

	select {
	case f := <-to.Fired():
		require.Equal(t, token, f.Token)
		require.Equal(t, message.StepPropose, f.Step)
	case <-time.After(time.Second):
		t.Fatal("timeout never fired")
	}
}

func TestStopPreventsFire(t *testing.T) {
	mock := clock.NewMock()
	to := New(mock)

	token := to.Arm(big.NewInt(1), 0, message.StepPropose, 5*time.Second)
	to.Stop(token)
	mock.Add(5 * time.Second)

	select {
	case <-to.Fired():
		t.Fatal("stopped timer must not fire")
	case <-time.After(50 * time.Millisecond):
	}
	require.False(t, to.Valid(token))
}

func TestStopAllInvalidatesEverything(t *testing.T) {
	mock := clock.NewMock()
	to := New(mock)

	t1 := to.Arm(big.NewInt(1), 0, message.StepPropose, time.Second)
	t2 := to.Arm(big.NewInt(1), 0, message.StepPrevote, time.Second)
	to.StopAll()

	require.False(t, to.Valid(t1))
	require.False(t, to.Valid(t2))
}

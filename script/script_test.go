package script_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	deno "github.com/halvardssm/deno"
	"github.com/halvardssm/deno/script"
)

// queueOp installs a get-message op backed by a plain slice: each call pops
// one message, nil when empty, closedErr forever once the queue is exhausted
// and closed.
func queueOp(c *script.Context, msgs [][]byte, closedErr error) {
	i := 0
	c.RegisterOp(deno.OpWorkerGetMessage, func(context.Context, []byte) ([]byte, error) {
		if i < len(msgs) {
			m := msgs[i]
			i++
			return m, nil
		}
		if closedErr != nil {
			return nil, closedErr
		}
		return nil, nil
	})
}

func TestContext_ExecuteUnknownScript(t *testing.T) {
	c := script.New()
	err := c.Execute("missing.js")
	require.ErrorIs(t, err, script.ErrUnknownScript)
	require.Contains(t, err.Error(), "missing.js")
}

func TestContext_CompletesWithNoEventSources(t *testing.T) {
	c := script.New()
	c.Register("empty.js", func(*script.Scope) error { return nil })
	require.NoError(t, c.Execute("empty.js"))

	out := c.AdvanceOneStep()
	require.Equal(t, deno.StepCompleted, out.Kind)
	require.NoError(t, out.Err)

	// Completion is sticky.
	require.Equal(t, deno.StepCompleted, c.AdvanceOneStep().Kind)
}

func TestContext_MicrotasksRunBeforeMessages(t *testing.T) {
	c := script.New()
	queueOp(c, [][]byte{[]byte("m1")}, nil)

	var order []string
	c.Register("ordered.js", func(s *script.Scope) error {
		s.OnMessage(func(data []byte) {
			order = append(order, "message:"+string(data))
		})
		s.QueueTask(func() { order = append(order, "micro:a") })
		s.QueueTask(func() { order = append(order, "micro:b") })
		return nil
	})
	require.NoError(t, c.Execute("ordered.js"))

	require.Equal(t, deno.StepProgressed, c.AdvanceOneStep().Kind)
	require.Equal(t, deno.StepProgressed, c.AdvanceOneStep().Kind)
	require.Equal(t, deno.StepProgressed, c.AdvanceOneStep().Kind)
	require.Equal(t, []string{"micro:a", "micro:b", "message:m1"}, order)
}

func TestContext_IdleWhileListeningWithNoMessages(t *testing.T) {
	c := script.New()
	queueOp(c, nil, nil)

	c.Register("listen.js", func(s *script.Scope) error {
		s.OnMessage(func([]byte) {})
		return nil
	})
	require.NoError(t, c.Execute("listen.js"))

	require.Equal(t, deno.StepIdle, c.AdvanceOneStep().Kind)
	require.Equal(t, deno.StepIdle, c.AdvanceOneStep().Kind)
}

func TestContext_ListenerWithoutMessagingOpsStaysIdle(t *testing.T) {
	c := script.New()
	c.Register("deaf.js", func(s *script.Scope) error {
		s.OnMessage(func([]byte) {})
		return nil
	})
	require.NoError(t, c.Execute("deaf.js"))

	require.Equal(t, deno.StepIdle, c.AdvanceOneStep().Kind)
}

func TestContext_ClosedChannelCompletesListener(t *testing.T) {
	c := script.New()
	queueOp(c, [][]byte{[]byte("last")}, errors.New("closed"))

	var got []string
	c.Register("drain.js", func(s *script.Scope) error {
		s.OnMessage(func(data []byte) { got = append(got, string(data)) })
		return nil
	})
	require.NoError(t, c.Execute("drain.js"))

	require.Equal(t, deno.StepProgressed, c.AdvanceOneStep().Kind)

	out := c.AdvanceOneStep()
	require.Equal(t, deno.StepCompleted, out.Kind)
	require.NoError(t, out.Err, "channel closure is a clean completion, not a fault")
	require.Equal(t, []string{"last"}, got)
}

func TestContext_RemovedListenerCompletes(t *testing.T) {
	c := script.New()
	queueOp(c, [][]byte{[]byte("only")}, nil)

	c.Register("once.js", func(s *script.Scope) error {
		s.OnMessage(func([]byte) { s.RemoveListener() })
		return nil
	})
	require.NoError(t, c.Execute("once.js"))

	require.Equal(t, deno.StepProgressed, c.AdvanceOneStep().Kind)
	require.Equal(t, deno.StepCompleted, c.AdvanceOneStep().Kind)
}

func TestContext_WakeSignalsQueuedWork(t *testing.T) {
	c := script.New()
	wake := c.Wake()

	select {
	case <-wake:
		t.Fatal("wake fired with no work queued")
	default:
	}

	c.ScheduleTask(func() {})

	select {
	case <-wake:
	default:
		t.Fatal("queuing a task must close the current wake generation")
	}

	// Each generation fires once; the next one is armed for new work.
	next := c.Wake()
	select {
	case <-next:
		t.Fatal("fresh wake generation must be open")
	default:
	}
}

func TestContext_TimerFiresAsMicrotask(t *testing.T) {
	c := script.New()

	fired := false
	c.Register("timer.js", func(s *script.Scope) error {
		s.SetTimeout(5*time.Millisecond, func() { fired = true })
		return nil
	})
	require.NoError(t, c.Execute("timer.js"))

	// Grab the wake generation before the idle verdict, as a driver would,
	// so a timer firing in between cannot be missed.
	wake := c.Wake()
	require.Equal(t, deno.StepIdle, c.AdvanceOneStep().Kind)

	select {
	case <-wake:
	case <-time.After(time.Second):
		t.Fatal("timer expiry did not wake the context")
	}

	require.Equal(t, deno.StepProgressed, c.AdvanceOneStep().Kind)
	require.True(t, fired)
	require.Equal(t, deno.StepCompleted, c.AdvanceOneStep().Kind)
}

func TestScope_CallOpNotInstalled(t *testing.T) {
	c := script.New()
	c.Register("call.js", func(s *script.Scope) error {
		_, err := s.CallOp("op_nonexistent", nil)
		return err
	})
	err := c.Execute("call.js")
	require.Error(t, err)
	require.Contains(t, err.Error(), "op_nonexistent")
}

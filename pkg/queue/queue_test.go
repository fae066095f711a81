package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSerial_FIFOOrder(t *testing.T) {
	q := NewSerial("test-fifo")
	defer q.Close()

	var mu sync.Mutex
	var order []int

	var tasks []*Task
	for i := 0; i < 10; i++ {
		i := i
		task, err := q.Submit("step", func(ctx context.Context) error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		}, nil)
		if err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
		tasks = append(tasks, task)
	}

	for _, task := range tasks {
		if err := task.Wait(context.Background()); err != nil {
			t.Fatalf("task failed: %v", err)
		}
	}

	for i, got := range order {
		if got != i {
			t.Fatalf("order[%d] = %d, want %d (full order: %v)", i, got, i, order)
		}
	}
}

func TestSerial_NoOverlap(t *testing.T) {
	q := NewSerial("test-overlap")
	defer q.Close()

	var active, maxActive int32

	var tasks []*Task
	for i := 0; i < 5; i++ {
		task, _ := q.Submit("busy", func(ctx context.Context) error {
			n := atomic.AddInt32(&active, 1)
			if n > atomic.LoadInt32(&maxActive) {
				atomic.StoreInt32(&maxActive, n)
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&active, -1)
			return nil
		}, nil)
		tasks = append(tasks, task)
	}

	for _, task := range tasks {
		task.Wait(context.Background())
	}

	if got := atomic.LoadInt32(&maxActive); got != 1 {
		t.Fatalf("max concurrent tasks = %d, want 1", got)
	}
}

func TestSerial_CancelBeforeStart(t *testing.T) {
	q := NewSerial("test-cancel")
	defer q.Close()

	release := make(chan struct{})
	blocker, _ := q.Submit("blocker", func(ctx context.Context) error {
		<-release
		return nil
	}, nil)

	ran := false
	victim, _ := q.Submit("victim", func(ctx context.Context) error {
		ran = true
		return nil
	}, nil)
	victim.Cancel()
	close(release)

	if err := blocker.Wait(context.Background()); err != nil {
		t.Fatalf("blocker failed: %v", err)
	}
	err := victim.Wait(context.Background())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("victim err = %v, want context.Canceled", err)
	}
	if ran {
		t.Fatal("cancelled task body must not run")
	}
}

func TestSerial_CancelRunningTaskContext(t *testing.T) {
	q := NewSerial("test-cancel-running")
	defer q.Close()

	started := make(chan struct{})
	task, _ := q.Submit("long", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}, nil)

	<-started
	task.Cancel()

	if err := task.Wait(context.Background()); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestSerial_Busy(t *testing.T) {
	q := NewSerial("test-busy")
	defer q.Close()

	if q.Busy() {
		t.Fatal("fresh queue must not be busy")
	}

	release := make(chan struct{})
	task, _ := q.Submit("hold", func(ctx context.Context) error {
		<-release
		return nil
	}, nil)

	if !q.Busy() {
		t.Fatal("queue with a running task must be busy")
	}

	close(release)
	task.Wait(context.Background())

	// The worker clears the running flag right after the task body returns.
	deadline := time.Now().Add(time.Second)
	for q.Busy() {
		if time.Now().After(deadline) {
			t.Fatal("queue still busy after task completion")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestSerial_SubmitAfterClose(t *testing.T) {
	q := NewSerial("test-closed")
	q.Close()

	if _, err := q.Submit("late", func(ctx context.Context) error { return nil }, nil); !errors.Is(err, ErrClosed) {
		t.Fatalf("err = %v, want ErrClosed", err)
	}
}

func TestSerial_TaskErrorPropagates(t *testing.T) {
	q := NewSerial("test-err")
	defer q.Close()

	boom := errors.New("boom")
	var hookErr error
	task, _ := q.Submit("failing", func(ctx context.Context) error { return boom }, func(err error) {
		hookErr = err
	})

	if err := task.Wait(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if !errors.Is(hookErr, boom) {
		t.Fatalf("hook err = %v, want boom", hookErr)
	}
}

func TestSerial_OnFinishFiresWithoutRunning(t *testing.T) {
	q := NewSerial("test-finish-hook")
	defer q.Close()

	release := make(chan struct{})
	blocker, _ := q.Submit("blocker", func(ctx context.Context) error {
		<-release
		return nil
	}, nil)

	// Cancelled while still pending: the body never runs, yet the finish
	// hook must deliver the outcome.
	ran := false
	var hookErr error
	victim, _ := q.Submit("victim", func(ctx context.Context) error {
		ran = true
		return nil
	}, func(err error) {
		hookErr = err
	})
	victim.Cancel()
	close(release)

	blocker.Wait(context.Background())
	if err := victim.Wait(context.Background()); !errors.Is(err, context.Canceled) {
		t.Fatalf("victim err = %v, want context.Canceled", err)
	}
	if ran {
		t.Fatal("cancelled task body must not run")
	}
	if !errors.Is(hookErr, context.Canceled) {
		t.Fatalf("hook err = %v, want context.Canceled", hookErr)
	}
}

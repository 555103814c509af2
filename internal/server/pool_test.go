package server

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoolRunsSubmittedTasks(t *testing.T) {
	pool := newTaskPool(4)
	defer pool.Close()

	var counter atomic.Int64
	for i := 0; i < 100; i++ {
		pool.Submit(func() {
			counter.Add(1)
		})
	}

	pool.WaitForIdle()

	if got := counter.Load(); got != 100 {
		t.Errorf("tasks executed = %d, want 100", got)
	}
}

func TestPoolWaitForIdleWaitsForSlowTasks(t *testing.T) {
	pool := newTaskPool(2)
	defer pool.Close()

	var done atomic.Bool
	pool.Submit(func() {
		time.Sleep(50 * time.Millisecond)
		done.Store(true)
	})

	pool.WaitForIdle()

	if !done.Load() {
		t.Error("WaitForIdle returned before the task finished")
	}
}

func TestPoolConcurrentSubmitters(t *testing.T) {
	pool := newTaskPool(4)
	defer pool.Close()

	var counter atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				pool.Submit(func() {
					counter.Add(1)
				})
			}
		}()
	}
	wg.Wait()
	pool.WaitForIdle()

	if got := counter.Load(); got != 500 {
		t.Errorf("tasks executed = %d, want 500", got)
	}
}

func TestPoolCloseIsIdempotent(t *testing.T) {
	pool := newTaskPool(1)

	var ran atomic.Bool
	pool.Submit(func() {
		ran.Store(true)
	})

	pool.Close()
	pool.Close()

	if !ran.Load() {
		t.Error("task submitted before Close never ran")
	}
}

func TestPoolClampsWorkerCount(t *testing.T) {
	pool := newTaskPool(0)
	defer pool.Close()

	var ran atomic.Bool
	pool.Submit(func() {
		ran.Store(true)
	})
	pool.WaitForIdle()

	if !ran.Load() {
		t.Error("pool with clamped worker count never ran the task")
	}
}

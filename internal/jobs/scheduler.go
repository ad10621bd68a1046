// Package jobs runs the background sweeps: reservation expiration on a fixed
// interval and due-loan reminders once a day. Jobs behave like external
// clients of the domain services; a failed iteration is logged and the next
// one runs regardless.
package jobs

import (
	"context"
	"log"
	"sync"
	"time"
)

// Job is one sweep iteration. Errors are logged by the scheduler, never
// propagated: no caller is waiting on a background run.
type Job func(ctx context.Context) error

// Scheduler owns the lifecycle of all background jobs.
type Scheduler struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewScheduler() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{ctx: ctx, cancel: cancel}
}

// RunEvery runs job on a fixed interval until the scheduler stops. The first
// run happens after one full interval, not at startup.
func (s *Scheduler) RunEvery(name string, interval time.Duration, job Job) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.runOnce(name, job)
			}
		}
	}()
	log.Printf("[INFO] scheduler: %q every %s", name, interval)
}

// RunDailyAt runs job once a day at the given local hour.
func (s *Scheduler) RunDailyAt(name string, hour int, job Job) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			timer := time.NewTimer(untilNext(time.Now(), hour))
			select {
			case <-s.ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
				s.runOnce(name, job)
			}
		}
	}()
	log.Printf("[INFO] scheduler: %q daily at %02d:00", name, hour)
}

// Stop cancels all jobs and waits for in-flight iterations to finish.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) runOnce(name string, job Job) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[ERROR] job %q panicked: %v", name, r)
		}
	}()

	start := time.Now()
	if err := job(s.ctx); err != nil {
		log.Printf("[ERROR] job %q failed: %v", name, err)
		return
	}
	log.Printf("[INFO] job %q completed in %s", name, time.Since(start).Round(time.Millisecond))
}

// untilNext computes the wait until the next occurrence of hour:00 local time.
func untilNext(now time.Time, hour int) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}

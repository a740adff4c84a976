// Package cron runs the scheduled jobs of the research gateway: the
// internal watchlist quote refresh and user-defined briefing queries. Jobs
// are persisted as one JSON file so schedules survive restarts.
package cron

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	rcron "github.com/robfig/cron/v3"
)

// Service owns the job list and the two execution paths: cron-expression
// jobs go through the robfig scheduler, interval ("every") and one-shot
// ("at") jobs through a one-second poll loop. OnJob is the single execution
// callback; the gateway points it at the query engine.
type Service struct {
	storePath string
	OnJob     func(job CronJob) (string, error)

	mu      sync.Mutex
	jobs    []CronJob
	entries map[string]rcron.EntryID
	sched   *rcron.Cron
	cancel  context.CancelFunc
	stopCh  chan struct{}
}

func NewService(storePath string) *Service {
	return &Service{
		storePath: storePath,
		entries:   make(map[string]rcron.EntryID),
	}
}

// Start loads persisted jobs and begins scheduling. A job file that fails to
// load is logged and skipped; the service still starts empty.
func (s *Service) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	stopCh := make(chan struct{})
	s.mu.Lock()
	s.cancel = cancel
	s.stopCh = stopCh
	s.mu.Unlock()

	if err := s.loadJobs(); err != nil {
		log.Printf("[cron] load jobs warning: %v", err)
	}

	s.sched = rcron.New(rcron.WithSeconds())

	s.mu.Lock()
	for i := range s.jobs {
		if s.jobs[i].Enabled && s.jobs[i].Schedule.Kind == "cron" {
			s.scheduleCron(&s.jobs[i])
		}
	}
	s.mu.Unlock()

	s.sched.Start()
	log.Printf("[cron] scheduling %d jobs", len(s.jobs))

	go s.pollLoop(runCtx)

	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-stopCh:
			return
		}
	}()

	return nil
}

// scheduleCron registers one cron-expression job with the scheduler. A bad
// expression disables that job only.
func (s *Service) scheduleCron(job *CronJob) {
	snapshot := *job
	id, err := s.sched.AddFunc(job.Schedule.Expr, func() {
		s.runJob(snapshot)
	})
	if err != nil {
		log.Printf("[cron] job %s: bad expression %q: %v", job.Name, job.Schedule.Expr, err)
		return
	}
	s.entries[job.ID] = id
}

// runJob invokes the OnJob callback and records the outcome on the job's
// state. Jobs marked DeleteAfterRun are dropped once executed.
func (s *Service) runJob(job CronJob) {
	log.Printf("[cron] run %s (%s)", job.Name, job.ID)

	if s.OnJob == nil {
		log.Printf("[cron] job %s skipped: no handler wired", job.Name)
		return
	}

	result, err := s.OnJob(job)

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.jobs {
		if s.jobs[i].ID != job.ID {
			continue
		}
		s.jobs[i].State.LastRunAtMs = time.Now().UnixMilli()
		if err != nil {
			s.jobs[i].State.LastStatus = "error"
			s.jobs[i].State.LastError = err.Error()
			log.Printf("[cron] job %s failed: %v", job.Name, err)
		} else {
			s.jobs[i].State.LastStatus = "ok"
			s.jobs[i].State.LastError = ""
			log.Printf("[cron] job %s done: %s", job.Name, excerpt(result, 100))
		}

		if s.jobs[i].DeleteAfterRun {
			if entryID, ok := s.entries[job.ID]; ok && s.sched != nil {
				s.sched.Remove(entryID)
				delete(s.entries, job.ID)
			}
			s.jobs = append(s.jobs[:i], s.jobs[i+1:]...)
		}
		break
	}

	_ = s.saveJobs()
}

// pollLoop drives "every" and "at" schedules on a one-second tick. The lock
// is released around runJob so a slow handler never blocks job management.
func (s *Service) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now().UnixMilli()
			s.mu.Lock()
			for i := range s.jobs {
				job := &s.jobs[i]
				if !job.Enabled {
					continue
				}
				switch job.Schedule.Kind {
				case "every":
					if job.Schedule.EveryMs > 0 && now >= job.State.LastRunAtMs+job.Schedule.EveryMs {
						snapshot := *job
						s.mu.Unlock()
						s.runJob(snapshot)
						s.mu.Lock()
					}
				case "at":
					if job.Schedule.AtMs > 0 && now >= job.Schedule.AtMs {
						snapshot := *job
						job.Enabled = false
						s.mu.Unlock()
						s.runJob(snapshot)
						s.mu.Lock()
					}
				}
			}
			s.mu.Unlock()
		case <-ctx.Done():
			return
		}
	}
}

// Stop halts both execution paths and waits briefly for in-flight jobs.
func (s *Service) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	stopCh := s.stopCh
	s.cancel = nil
	s.stopCh = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if stopCh != nil {
		close(stopCh)
	}

	if s.sched != nil {
		stopCtx := s.sched.Stop()
		select {
		case <-stopCtx.Done():
		case <-time.After(5 * time.Second):
			log.Printf("[cron] stop: gave up waiting for running jobs")
		}
	}
	log.Printf("[cron] stopped")
}

// AddJob creates, schedules, and persists a new job.
func (s *Service) AddJob(name string, schedule Schedule, payload Payload) (*CronJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job := NewCronJob(name, schedule, payload)
	s.jobs = append(s.jobs, job)

	if job.Schedule.Kind == "cron" && s.sched != nil {
		s.scheduleCron(&s.jobs[len(s.jobs)-1])
	}

	if err := s.saveJobs(); err != nil {
		return nil, fmt.Errorf("save jobs: %w", err)
	}

	return &job, nil
}

// RemoveJob unschedules and deletes a job. Returns false for unknown ids.
func (s *Service) RemoveJob(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, job := range s.jobs {
		if job.ID != id {
			continue
		}
		if entryID, ok := s.entries[id]; ok {
			s.sched.Remove(entryID)
			delete(s.entries, id)
		}
		s.jobs = append(s.jobs[:i], s.jobs[i+1:]...)
		_ = s.saveJobs()
		return true
	}
	return false
}

func (s *Service) ListJobs() []CronJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]CronJob, len(s.jobs))
	copy(out, s.jobs)
	return out
}

// EnableJob toggles a job, keeping the scheduler's entry table in sync for
// cron-expression jobs.
func (s *Service) EnableJob(id string, enabled bool) (*CronJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.jobs {
		if s.jobs[i].ID != id {
			continue
		}
		s.jobs[i].Enabled = enabled
		if s.jobs[i].Schedule.Kind == "cron" && s.sched != nil {
			if enabled {
				if _, ok := s.entries[id]; !ok {
					s.scheduleCron(&s.jobs[i])
				}
			} else if entryID, ok := s.entries[id]; ok {
				s.sched.Remove(entryID)
				delete(s.entries, id)
			}
		}
		_ = s.saveJobs()
		job := s.jobs[i]
		return &job, nil
	}
	return nil, fmt.Errorf("job %s not found", id)
}

func (s *Service) loadJobs() error {
	data, err := os.ReadFile(s.storePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, &s.jobs)
}

func (s *Service) saveJobs() error {
	if err := os.MkdirAll(filepath.Dir(s.storePath), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s.jobs, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.storePath, data, 0644)
}

func excerpt(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

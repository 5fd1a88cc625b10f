// Package recommend owns the process-wide trigger that asks the external
// recommendation service to rebuild its model. Any number of trigger calls
// while a rebuild is running coalesce into at most one queued rerun, so a
// burst of N mutations costs at most two external calls.
package recommend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sync"

	"github.com/Giang1311/BookStore-sub000/internal/config"
	kafkax "github.com/Giang1311/BookStore-sub000/internal/kafka"
)

// rebuildRequest is the wire contract of POST {baseUrl}{rebuildPath}.
type rebuildRequest struct {
	TopN     int     `json:"top_n"`
	CFWeight float64 `json:"cf_weight"`
	CBWeight float64 `json:"cb_weight"`
	Report   bool    `json:"report"`
}

// Stats is a point-in-time snapshot for operators. A growing
// ConsecutiveFailures means the rebuild backend is stuck.
type Stats struct {
	Runs                int64
	Failures            int64
	ConsecutiveFailures int64
	LastReason          string
	LastError           string
}

type result struct {
	reason string
	err    error
}

// Scheduler serializes every external rebuild call behind a single control
// goroutine; jobInFlight/rerunQueued live only on that goroutine's stack.
// Trigger never blocks and never reports errors back to its caller.
type Scheduler struct {
	cfg    config.Recommend
	client *http.Client

	triggers chan string
	stopped  chan struct{}

	// OnResult, when set, observes every finished call. Must be set before
	// Start and must not block.
	OnResult func(reason string, err error)

	mu    sync.Mutex
	stats Stats
}

func NewScheduler(cfg config.Recommend) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		client:   &http.Client{},
		triggers: make(chan string, 256),
		stopped:  make(chan struct{}),
	}
}

// Trigger requests a rebuild for the given reason. If a rebuild is already
// running the request collapses into the single pending rerun; the reason is
// not preserved. No-op when the pipeline is disabled.
func (s *Scheduler) Trigger(reason string) {
	if !s.cfg.Enabled {
		return
	}
	select {
	case s.triggers <- reason:
	default:
		// Buffer full means plenty of triggers are already pending; the rerun
		// they coalesce into covers this one too.
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	if !s.cfg.Enabled {
		log.Printf("[recommendations] auto pipeline disabled via DISABLE_AUTO_RECOMMENDATIONS")
		close(s.stopped)
		return
	}
	go s.run(ctx)
}

// Done is closed once the control goroutine has exited, or right away when
// the pipeline is disabled. Shutdown waits on it after cancelling the
// scheduler's context.
func (s *Scheduler) Done() <-chan struct{} { return s.stopped }

func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.stopped)

	var inFlight, rerunQueued bool
	results := make(chan result, 1)

	for {
		select {
		case <-ctx.Done():
			return
		case reason := <-s.triggers:
			if inFlight {
				rerunQueued = true
				log.Printf("[recommendations] pipeline already running, queued another run")
				continue
			}
			inFlight = true
			go s.launch(ctx, reason, results)
		case res := <-results:
			// Triggers that raced this completion fold into the same rerun
			// decision instead of dispatching a fresh call.
		drain:
			for {
				select {
				case <-s.triggers:
					rerunQueued = true
				default:
					break drain
				}
			}
			inFlight = false
			s.record(res)
			if !rerunQueued {
				continue
			}
			rerunQueued = false
			switch {
			case res.err == nil:
				inFlight = true
				go s.launch(ctx, "queued-rerun", results)
			case s.cfg.RetryOnError:
				inFlight = true
				go s.launch(ctx, "retry-after-error", results)
			}
		}
	}
}

func (s *Scheduler) launch(ctx context.Context, reason string, results chan<- result) {
	log.Printf("[recommendations] starting recommendation rebuild via microservice (%s)...", reason)
	err := s.call(ctx)
	if err != nil {
		log.Printf("[recommendations] recommendation rebuild failed: %v", err)
	} else {
		log.Printf("[recommendations] recommendation rebuild succeeded (%s)", reason)
	}
	results <- result{reason: reason, err: err}
}

func (s *Scheduler) call(ctx context.Context) error {
	endpoint, err := url.JoinPath(s.cfg.ServiceURL, s.cfg.RebuildPath)
	if err != nil {
		return fmt.Errorf("invalid recommendation service url: %w", err)
	}
	body := kafkax.MustMarshal(rebuildRequest{
		TopN:     s.cfg.TopN,
		CFWeight: s.cfg.CFWeight,
		CBWeight: s.cfg.CBWeight,
		Report:   s.cfg.ForceReport,
	})

	cctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(cctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("rebuild returned status %d: %s", resp.StatusCode, data)
	}
	return nil
}

func (s *Scheduler) record(res result) {
	s.mu.Lock()
	s.stats.Runs++
	s.stats.LastReason = res.reason
	if res.err != nil {
		s.stats.Failures++
		s.stats.ConsecutiveFailures++
		s.stats.LastError = res.err.Error()
	} else {
		s.stats.ConsecutiveFailures = 0
		s.stats.LastError = ""
	}
	s.mu.Unlock()

	if s.OnResult != nil {
		s.OnResult(res.reason, res.err)
	}
}

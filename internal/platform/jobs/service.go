package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"hrpay/internal/platform/metrics"
	"hrpay/internal/platform/querier"
	"hrpay/internal/requestctx"
)

const (
	JobRecomputeDrafts = "payslip_recompute_drafts"

	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

var (
	ErrQueueFull = errors.New("job queue full")
	ErrNotFound  = errors.New("job run not found")
)

type RunFunc func(context.Context) (any, error)

type Run struct {
	ID          string          `json:"id"`
	CompanyID   string          `json:"companyId"`
	JobType     string          `json:"jobType"`
	Status      string          `json:"status"`
	Details     json.RawMessage `json:"details,omitempty"`
	StartedAt   time.Time       `json:"startedAt"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
}

type Service struct {
	DB      querier.Querier
	Log     logrus.FieldLogger
	Metrics *metrics.Collector
	queue   chan job
}

type job struct {
	RunID     string
	Type      string
	CompanyID string
	RequestID string
	Run       RunFunc
}

func New(db querier.Querier, log logrus.FieldLogger, collector *metrics.Collector) *Service {
	return &Service{
		DB:      db,
		Log:     log,
		Metrics: collector,
		queue:   make(chan job, 128),
	}
}

func (s *Service) Start(ctx context.Context) {
	go s.worker(ctx)
}

// Enqueue records a queued run and hands it to the background worker.
func (s *Service) Enqueue(ctx context.Context, jobType, companyID string, run RunFunc) (string, error) {
	runID, err := s.insertRun(ctx, jobType, companyID, StatusQueued)
	if err != nil {
		return "", err
	}
	select {
	case s.queue <- job{RunID: runID, Type: jobType, CompanyID: companyID, RequestID: requestctx.GetRequestID(ctx), Run: run}:
		return runID, nil
	default:
		s.finishRun(ctx, runID, StatusFailed, map[string]any{"error": ErrQueueFull.Error()})
		s.Log.WithFields(logrus.Fields{"jobType": jobType, "companyId": companyID}).Warn("job queue full")
		return "", ErrQueueFull
	}
}

func (s *Service) RunNow(ctx context.Context, jobType, companyID string, run RunFunc) (string, any, error) {
	runID, err := s.insertRun(ctx, jobType, companyID, StatusRunning)
	if err != nil {
		s.Log.WithError(err).Warn("job run insert failed")
	}
	details, err := s.execute(ctx, job{RunID: runID, Type: jobType, CompanyID: companyID, Run: run})
	return runID, details, err
}

func (s *Service) Get(ctx context.Context, companyID, runID string) (Run, error) {
	var (
		out     Run
		details []byte
	)
	err := s.DB.QueryRow(ctx, `
    SELECT id, COALESCE(company_id::text, ''), job_type, status, details_json, started_at, completed_at
    FROM job_runs
    WHERE id = $1 AND company_id = $2
  `, runID, companyID).Scan(&out.ID, &out.CompanyID, &out.JobType, &out.Status, &details, &out.StartedAt, &out.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	if err != nil {
		return Run{}, err
	}
	if len(details) > 0 {
		out.Details = details
	}
	return out, nil
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if j.RunID != "" {
				if _, err := s.DB.Exec(ctx, "UPDATE job_runs SET status = $1 WHERE id = $2", StatusRunning, j.RunID); err != nil {
					s.Log.WithError(err).Warn("job run update failed")
				}
			}
			runCtx := requestctx.WithRequestID(ctx, j.RequestID)
			if _, err := s.execute(runCtx, j); err != nil {
				s.Log.WithFields(logrus.Fields{"jobType": j.Type, "companyId": j.CompanyID, "runId": j.RunID, "requestId": j.RequestID}).
					WithError(err).Warn("job run failed")
			}
		}
	}
}

func (s *Service) execute(ctx context.Context, j job) (any, error) {
	details, err := j.Run(ctx)
	status := StatusCompleted
	if err != nil {
		status = StatusFailed
		s.Metrics.RecordJobFailure()
		if details == nil {
			details = map[string]any{"error": err.Error()}
		}
	}
	s.finishRun(ctx, j.RunID, status, details)
	return details, err
}

func (s *Service) insertRun(ctx context.Context, jobType, companyID, status string) (string, error) {
	var runID string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO job_runs (company_id, job_type, status)
    VALUES (NULLIF($1, '')::uuid, $2, $3)
    RETURNING id
  `, companyID, jobType, status).Scan(&runID)
	return runID, err
}

func (s *Service) finishRun(ctx context.Context, runID, status string, details any) {
	if runID == "" {
		return
	}
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		s.Log.WithError(err).Warn("job details marshal failed")
		detailsJSON = []byte("{}")
	}
	if _, err := s.DB.Exec(ctx, `
    UPDATE job_runs
    SET status = $1, details_json = $2, completed_at = now()
    WHERE id = $3
  `, status, detailsJSON, runID); err != nil {
		s.Log.WithError(err).Warn("job run update failed")
	}
}

package payslip

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"hrpay/internal/domain/company"
	"hrpay/internal/domain/employee"
	"hrpay/internal/domain/payroll"
	"hrpay/internal/platform/crypto"
	"hrpay/internal/platform/events"
	"hrpay/internal/platform/jobs"
	"hrpay/internal/platform/logger"
	"hrpay/internal/platform/metrics"
	"hrpay/internal/platform/storage"
	"hrpay/internal/requestctx"
)

const (
	defaultCacheTTL    = 10 * time.Minute
	defaultConcurrency = 4
	previewKeyPrefix   = "preview:"
)

type EmployeeLookup interface {
	Get(ctx context.Context, companyID, id string) (employee.Employee, error)
}

type CompanyLookup interface {
	Get(ctx context.Context, id string) (company.Company, error)
}

type PreviewCache interface {
	GetObject(ctx context.Context, key string, dest any) (bool, error)
	SetObject(ctx context.Context, key string, obj any, ttl time.Duration) error
}

type Locker interface {
	Acquire(ctx context.Context, key string) (func(), error)
}

type JobRunner interface {
	Enqueue(ctx context.Context, jobType, companyID string, run jobs.RunFunc) (string, error)
}

// Options carries the optional collaborators. Nil members disable the
// feature they back.
type Options struct {
	Cache       PreviewCache
	CacheTTL    time.Duration
	Locker      Locker
	Events      events.Publisher
	Storage     storage.Store
	Crypto      *crypto.Service
	Jobs        JobRunner
	Metrics     *metrics.Collector
	Log         logrus.FieldLogger
	Formatter   *payroll.Formatter
	Concurrency int
}

type Service struct {
	Store       StoreAPI
	Employees   EmployeeLookup
	Companies   CompanyLookup
	Cache       PreviewCache
	CacheTTL    time.Duration
	Locker      Locker
	Events      events.Publisher
	Storage     storage.Store
	Crypto      *crypto.Service
	Jobs        JobRunner
	Metrics     *metrics.Collector
	Log         logrus.FieldLogger
	Formatter   payroll.Formatter
	Concurrency int
	Tracer      trace.Tracer
	Now         func() time.Time
}

func NewService(store StoreAPI, employees EmployeeLookup, companies CompanyLookup, opts Options) *Service {
	s := &Service{
		Store:       store,
		Employees:   employees,
		Companies:   companies,
		Cache:       opts.Cache,
		CacheTTL:    opts.CacheTTL,
		Locker:      opts.Locker,
		Events:      opts.Events,
		Storage:     opts.Storage,
		Crypto:      opts.Crypto,
		Jobs:        opts.Jobs,
		Metrics:     opts.Metrics,
		Log:         opts.Log,
		Formatter:   payroll.DefaultFormatter(),
		Concurrency: opts.Concurrency,
		Tracer:      otel.Tracer("hrpay/payslip"),
		Now:         time.Now,
	}
	if opts.Formatter != nil {
		s.Formatter = *opts.Formatter
	}
	if s.CacheTTL <= 0 {
		s.CacheTTL = defaultCacheTTL
	}
	if s.Concurrency <= 0 {
		s.Concurrency = defaultConcurrency
	}
	if s.Events == nil {
		s.Events = events.Noop{}
	}
	if s.Log == nil {
		s.Log = logger.Discard()
	}
	return s
}

// Preview computes a result without persisting it. Results are memoized by
// the hash of the normalized input when a cache is configured; the bool
// reports a cache hit.
func (s *Service) Preview(ctx context.Context, in payroll.Input) (payroll.Result, bool, error) {
	ctx, span := s.Tracer.Start(ctx, "payslip.Preview")
	defer span.End()

	key, err := previewKey(in)
	if err != nil {
		return payroll.Result{}, false, err
	}
	if s.Cache != nil {
		var cached payroll.Result
		found, err := s.Cache.GetObject(ctx, key, &cached)
		if err != nil {
			logger.LogError(s.Log, "payslip", "Preview", "cache read", key, err)
		} else if found {
			s.Metrics.RecordComputation(1, true)
			span.SetAttributes(attribute.Bool("payslip.cache_hit", true))
			return cached, true, nil
		}
	}

	res := payroll.Compute(in)
	s.Metrics.RecordComputation(1, false)
	if s.Cache != nil {
		if err := s.Cache.SetObject(ctx, key, res, s.CacheTTL); err != nil {
			logger.LogError(s.Log, "payslip", "Preview", "cache write", key, err)
		}
	}
	return res, false, nil
}

func previewKey(in payroll.Input) (string, error) {
	raw, err := json.Marshal(in)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return previewKeyPrefix + hex.EncodeToString(sum[:]), nil
}

func (s *Service) Create(ctx context.Context, companyID string, req CreateRequest) (p Payslip, err error) {
	ctx, span := s.startSpan(ctx, "payslip.Create", companyID, "")
	defer func() { endSpan(span, err) }()

	if err := req.Period.Validate(); err != nil {
		return Payslip{}, err
	}
	emp, err := s.Employees.Get(ctx, companyID, req.EmployeeID)
	if err != nil {
		return Payslip{}, err
	}
	in := emp.DefaultInput()
	if req.Input != nil {
		in = *req.Input
	}

	created, err := s.Store.Create(ctx, Payslip{
		CompanyID:    companyID,
		EmployeeID:   emp.ID,
		EmployeeName: emp.FullName(),
		Period:       req.Period,
		Status:       payroll.StatusDraft,
		Input:        in,
		Result:       payroll.Compute(in),
		CreatedBy:    req.ActorID,
	})
	if err != nil {
		return Payslip{}, err
	}
	s.Metrics.RecordComputation(1, false)
	return created, nil
}

func (s *Service) Get(ctx context.Context, companyID, id string) (Payslip, error) {
	return s.Store.Get(ctx, companyID, id)
}

// Update replaces the input of a draft and recomputes the result from
// scratch.
func (s *Service) Update(ctx context.Context, companyID, id string, req UpdateRequest) (p Payslip, err error) {
	ctx, span := s.startSpan(ctx, "payslip.Update", companyID, id)
	defer func() { endSpan(span, err) }()

	p, err = s.Store.Get(ctx, companyID, id)
	if err != nil {
		return Payslip{}, err
	}
	if !payroll.IsEditable(p.Status) {
		return Payslip{}, ErrNotEditable
	}
	if req.Period != nil {
		if err := req.Period.Validate(); err != nil {
			return Payslip{}, err
		}
		p.Period = *req.Period
	}
	if req.Input != nil {
		p.Input = *req.Input
	}
	p.Result = payroll.Compute(p.Input)

	updated, err := s.Store.UpdateDraft(ctx, p)
	if err != nil {
		return Payslip{}, err
	}
	s.Metrics.RecordComputation(1, false)
	return updated, nil
}

func (s *Service) List(ctx context.Context, companyID string, filter ListFilter) (ListResult, error) {
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return ListResult{}, ErrInvalidPeriod
	}
	if filter.Status != "" && !payroll.IsValidStatus(filter.Status) {
		return ListResult{}, payroll.ErrUnknownStatus
	}
	return s.Store.List(ctx, companyID, filter)
}

func (s *Service) Delete(ctx context.Context, companyID, id string) error {
	p, err := s.Store.Get(ctx, companyID, id)
	if err != nil {
		return err
	}
	if !payroll.IsEditable(p.Status) {
		return ErrNotEditable
	}
	return s.Store.DeleteDraft(ctx, companyID, id)
}

// Transition applies action to the payslip status. A held lock or a status
// that changed underneath yields ErrConflict.
func (s *Service) Transition(ctx context.Context, companyID, id string, req TransitionRequest) (p Payslip, err error) {
	ctx, span := s.startSpan(ctx, "payslip.Transition", companyID, id)
	span.SetAttributes(attribute.String("payslip.action", req.Action))
	defer func() { endSpan(span, err) }()

	if !payroll.IsValidAction(req.Action) {
		return Payslip{}, payroll.ErrUnknownAction
	}

	release := func() {}
	if s.Locker != nil {
		release, err = s.Locker.Acquire(ctx, "payslip:"+id)
		if err != nil {
			return Payslip{}, fmt.Errorf("%w: %v", ErrConflict, err)
		}
	}
	defer release()

	p, err = s.Store.Get(ctx, companyID, id)
	if err != nil {
		return Payslip{}, err
	}
	next, err := payroll.NextStatus(p.Status, req.Action)
	if err != nil {
		return Payslip{}, err
	}

	entry := HistoryEntry{
		PayslipID:  id,
		Action:     req.Action,
		FromStatus: p.Status,
		ToStatus:   next,
		ActorID:    req.ActorID,
	}
	if err := s.Store.Transition(ctx, companyID, id, entry); err != nil {
		return Payslip{}, err
	}
	s.Metrics.RecordTransition()

	now := s.Now().UTC()
	event := events.Event{
		Type:          events.TypePayslipStatusChanged,
		CompanyID:     companyID,
		PayslipID:     id,
		Action:        req.Action,
		FromStatus:    entry.FromStatus,
		ToStatus:      next,
		ActorID:       req.ActorID,
		CorrelationID: requestctx.CorrelationID(ctx, req.CorrelationID),
		OccurredAt:    now,
	}
	if err := s.Events.Publish(ctx, event); err != nil {
		logger.LogError(s.Log, "payslip", "Transition", "publish status event", event, err)
	}

	p.Status = next
	p.UpdatedAt = now
	return p, nil
}

func (s *Service) History(ctx context.Context, companyID, id string) ([]HistoryEntry, error) {
	if _, err := s.Store.Get(ctx, companyID, id); err != nil {
		return nil, err
	}
	return s.Store.History(ctx, companyID, id)
}

// Verify recomputes the stored input and compares the serialized results
// byte for byte.
func (s *Service) Verify(ctx context.Context, companyID, id string) (VerifyResult, error) {
	p, err := s.Store.Get(ctx, companyID, id)
	if err != nil {
		return VerifyResult{}, err
	}
	recomputed := payroll.Compute(p.Input)
	s.Metrics.RecordComputation(1, false)
	same, err := sameResult(p.Result, recomputed)
	if err != nil {
		return VerifyResult{}, err
	}
	return VerifyResult{
		PayslipID:  id,
		Consistent: same,
		Stored:     p.Result,
		Recomputed: recomputed,
	}, nil
}

func sameResult(a, b payroll.Result) (bool, error) {
	left, err := json.Marshal(a)
	if err != nil {
		return false, err
	}
	right, err := json.Marshal(b)
	if err != nil {
		return false, err
	}
	return bytes.Equal(left, right), nil
}

// RecomputeDrafts recomputes every draft of the company with at most
// Concurrency payslips in flight. Per-payslip failures are collected in the
// summary and do not stop the batch.
func (s *Service) RecomputeDrafts(ctx context.Context, companyID string) (summary RecomputeSummary, err error) {
	ctx, span := s.startSpan(ctx, "payslip.RecomputeDrafts", companyID, "")
	defer func() { endSpan(span, err) }()

	ids, err := s.Store.ListDraftIDs(ctx, companyID)
	if err != nil {
		return RecomputeSummary{}, err
	}
	summary.Total = len(ids)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.Concurrency)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			changed, err := s.recomputeDraft(gctx, companyID, id)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, ErrConflict), errors.Is(err, ErrNotEditable), errors.Is(err, ErrNotFound):
				summary.Skipped++
			case err != nil:
				logger.LogError(s.Log, "payslip", "RecomputeDrafts", "recompute draft", id, err)
				summary.Failed = append(summary.Failed, id)
			default:
				summary.Recomputed++
				if changed {
					summary.Changed++
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return summary, err
	}
	s.Metrics.RecordComputation(summary.Recomputed, false)
	return summary, nil
}

func (s *Service) recomputeDraft(ctx context.Context, companyID, id string) (bool, error) {
	p, err := s.Store.Get(ctx, companyID, id)
	if err != nil {
		return false, err
	}
	if !payroll.IsEditable(p.Status) {
		return false, ErrNotEditable
	}
	res := payroll.Compute(p.Input)
	same, err := sameResult(p.Result, res)
	if err != nil || same {
		return false, err
	}
	if err := s.Store.UpdateDraftResult(ctx, companyID, id, res); err != nil {
		return false, err
	}
	return true, nil
}

// StartRecompute queues RecomputeDrafts as a background job and returns the
// job run id.
func (s *Service) StartRecompute(ctx context.Context, companyID string) (string, error) {
	if s.Jobs == nil {
		return "", errors.New("job runner not configured")
	}
	return s.Jobs.Enqueue(ctx, jobs.JobRecomputeDrafts, companyID, func(ctx context.Context) (any, error) {
		summary, err := s.RecomputeDrafts(ctx, companyID)
		return summary, err
	})
}

func (s *Service) startSpan(ctx context.Context, name, companyID, payslipID string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{attribute.String("company.id", companyID)}
	if payslipID != "" {
		attrs = append(attrs, attribute.String("payslip.id", payslipID))
	}
	return s.Tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

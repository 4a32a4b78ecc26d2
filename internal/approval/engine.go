// Package approval implements expense approval routing: rule resolution,
// the four approval strategies and the transactional decision workflow.
package approval

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"gitlab.com/yelinaung/expense-approval/internal/logger"
	"gitlab.com/yelinaung/expense-approval/internal/models"
)

const instrumentationName = "gitlab.com/yelinaung/expense-approval/internal/approval"

// DefaultMaxRetries is how many times a conflicted decision is re-run from the read step.
const DefaultMaxRetries = 3

// Notifier is told about routing changes after they are committed.
type Notifier interface {
	ApprovalRequested(ctx context.Context, exp *models.Expense, approver *models.User) error
	ExpenseFinalized(ctx context.Context, exp *models.Expense, submitter *models.User) error
}

// DecideRequest is one approve/reject decision on an expense.
type DecideRequest struct {
	ExpenseID  int64
	ApproverID int64
	Decision   string
	Comment    string
}

// DecideResult is the committed effect of a decision.
type DecideResult struct {
	Status   models.ExpenseStatus
	Approval models.Approval
	Expense  models.Expense
	Outcome  Outcome
}

// Engine applies decisions to expenses.
type Engine struct {
	store                   Store
	resolver                *Resolver
	notifier                Notifier
	maxRetries              int
	requireRejectionComment bool
	now                     func() time.Time

	tracer    trace.Tracer
	decisions metric.Int64Counter
	conflicts metric.Int64Counter
}

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	resolver                *Resolver
	notifier                Notifier
	maxRetries              int
	requireRejectionComment bool
	now                     func() time.Time
	tracerProvider          trace.TracerProvider
	meterProvider           metric.MeterProvider
}

// WithResolver replaces the default user-then-company resolution order.
func WithResolver(r *Resolver) Option {
	return func(o *engineOptions) { o.resolver = r }
}

// WithNotifier sets the post-commit notifier.
func WithNotifier(n Notifier) Option {
	return func(o *engineOptions) { o.notifier = n }
}

// WithMaxRetries bounds how often a CONFLICT is retried before it is returned.
func WithMaxRetries(n int) Option {
	return func(o *engineOptions) { o.maxRetries = n }
}

// WithRejectionComment controls whether rejections must carry a comment.
func WithRejectionComment(required bool) Option {
	return func(o *engineOptions) { o.requireRejectionComment = required }
}

// WithClock overrides time.Now for approval timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *engineOptions) { o.now = now }
}

// WithTracerProvider overrides the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *engineOptions) { o.tracerProvider = tp }
}

// WithMeterProvider overrides the global meter provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *engineOptions) { o.meterProvider = mp }
}

// NewEngine creates an Engine on top of store.
func NewEngine(store Store, opts ...Option) (*Engine, error) {
	o := engineOptions{
		maxRetries:              DefaultMaxRetries,
		requireRejectionComment: true,
		now:                     time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.resolver == nil {
		o.resolver = NewResolver()
	}
	if o.tracerProvider == nil {
		o.tracerProvider = otel.GetTracerProvider()
	}
	if o.meterProvider == nil {
		o.meterProvider = otel.GetMeterProvider()
	}
	if o.maxRetries < 0 {
		o.maxRetries = 0
	}

	meter := o.meterProvider.Meter(instrumentationName)
	decisions, err := meter.Int64Counter("approval.decisions",
		metric.WithDescription("Committed approval decisions by outcome"))
	if err != nil {
		return nil, err
	}
	conflicts, err := meter.Int64Counter("approval.conflicts",
		metric.WithDescription("Decisions that hit a concurrent modification"))
	if err != nil {
		return nil, err
	}

	return &Engine{
		store:                   store,
		resolver:                o.resolver,
		notifier:                o.notifier,
		maxRetries:              o.maxRetries,
		requireRejectionComment: o.requireRejectionComment,
		now:                     o.now,
		tracer:                  o.tracerProvider.Tracer(instrumentationName),
		decisions:               decisions,
		conflicts:               conflicts,
	}, nil
}

// Decide records a decision and applies its outcome to the expense atomically.
// A CONFLICT is retried from the read step up to the configured bound.
func (e *Engine) Decide(ctx context.Context, req DecideRequest) (*DecideResult, error) {
	ctx, span := e.tracer.Start(ctx, "approval.Decide", trace.WithAttributes(
		attribute.Int64("expense.id", req.ExpenseID),
	))
	defer span.End()

	status, comment, err := e.validateDecision(req)
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	var (
		result     *DecideResult
		recipients []int64
	)
	for attempt := 0; ; attempt++ {
		result, recipients, err = e.decideOnce(ctx, req.ExpenseID, req.ApproverID, status, comment)
		if err == nil || !errors.Is(err, ErrConflict) {
			break
		}
		e.conflicts.Add(ctx, 1)
		if attempt >= e.maxRetries {
			break
		}
		logger.Log.Warn().
			Int64("expense_id", req.ExpenseID).
			Int("attempt", attempt+1).
			Msg("Decision conflicted, retrying")
	}
	if err != nil {
		recordError(span, err)
		logger.Log.Info().
			Int64("expense_id", req.ExpenseID).
			Str("approver", logger.HashUserID(req.ApproverID)).
			Str("code", string(CodeOf(err))).
			Err(err).
			Msg("Decision refused")
		return nil, err
	}

	span.SetAttributes(
		attribute.String("approval.outcome", result.Outcome.Kind.String()),
		attribute.String("expense.status", string(result.Status)),
	)
	e.decisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("decision", string(status)),
		attribute.String("outcome", result.Outcome.Kind.String()),
	))
	logger.Log.Info().
		Int64("expense_id", req.ExpenseID).
		Str("approver", logger.HashUserID(req.ApproverID)).
		Str("decision", string(status)).
		Str("comment", logger.SanitizeComment(comment)).
		Int("step", result.Approval.StepNumber).
		Str("outcome", result.Outcome.String()).
		Msg("Decision recorded")

	e.notify(ctx, &result.Expense, result.Outcome, recipients)
	return result, nil
}

func (e *Engine) validateDecision(req DecideRequest) (models.ApprovalStatus, string, error) {
	status, err := models.ParseDecision(req.Decision)
	if err != nil {
		return "", "", Wrap(CodeValidation, err, "decision must be approve or reject")
	}
	comment := strings.TrimSpace(req.Comment)
	if len(comment) > models.MaxCommentLength {
		return "", "", Validationf("comment exceeds %d characters", models.MaxCommentLength)
	}
	if status == models.ApprovalStatusRejected && e.requireRejectionComment && comment == "" {
		return "", "", Validationf("a comment is required when rejecting")
	}
	return status, comment, nil
}

func (e *Engine) decideOnce(
	ctx context.Context,
	expenseID, approverID int64,
	status models.ApprovalStatus,
	comment string,
) (*DecideResult, []int64, error) {
	var (
		result     *DecideResult
		recipients []int64
	)
	err := e.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		recipients = nil
		exp, err := tx.LockExpense(ctx, expenseID)
		if err != nil {
			return err
		}
		if !CanDecide(exp.Status) {
			return IllegalStatef("expense %d is %s", exp.ID, exp.Status)
		}

		caller, err := tx.GetUser(ctx, approverID)
		if errors.Is(err, ErrNotFound) {
			return Deniedf("user %d is not a known approver", approverID)
		}
		if err != nil {
			return err
		}

		rule, err := e.resolver.Resolve(ctx, tx, exp.SubmitterID)
		if err != nil {
			return err
		}
		history, err := tx.ListApprovals(ctx, exp.ID)
		if err != nil {
			return err
		}

		override, err := authorize(caller, rule, exp, history)
		if err != nil {
			return err
		}

		approval := &models.Approval{
			ExpenseID:  exp.ID,
			ApproverID: caller.ID,
			StepNumber: exp.CurrentApprovalStep,
			Status:     status,
			Comments:   comment,
			ApprovedAt: e.now(),
		}
		if err := tx.InsertApproval(ctx, approval); err != nil {
			return err
		}
		history = append(history, *approval)

		outcome, err := evaluate(rule, history, Decision{
			ApproverID: caller.ID,
			Status:     status,
			Step:       exp.CurrentApprovalStep,
			Override:   override,
		})
		if err != nil {
			return err
		}
		if _, err := Apply(exp, outcome); err != nil {
			return err
		}
		if err := tx.UpdateExpenseRouting(ctx, exp); err != nil {
			return err
		}

		result = &DecideResult{
			Status:   exp.Status,
			Approval: *approval,
			Expense:  *exp,
			Outcome:  outcome,
		}
		if outcome.Kind == OutcomeAdvance {
			recipients = Eligible(rule, exp, history)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return result, recipients, nil
}

// authorize accepts eligible approvers and admins of the expense's company.
// The returned flag is set when the caller acts only through the admin override.
func authorize(caller *models.User, rule *Rule, exp *models.Expense, history []models.Approval) (bool, error) {
	if slices.Contains(Eligible(rule, exp, history), caller.ID) {
		return false, nil
	}
	if caller.IsAdmin() && caller.CompanyID == exp.CompanyID {
		return true, nil
	}
	return false, Deniedf("user %d may not decide on expense %d", caller.ID, exp.ID)
}

// evaluate finalizes ungoverned expenses with the caller's decision and
// delegates everything else to the rule's strategy.
func evaluate(rule *Rule, history []models.Approval, latest Decision) (Outcome, error) {
	if rule == nil {
		return Finalize(latest.Status), nil
	}
	strategy, err := StrategyFor(rule.Type)
	if err != nil {
		return Outcome{}, err
	}
	return strategy.Evaluate(rule, history, latest), nil
}

// Submit moves a draft expense to pending and routes it to its first approver.
// An expense with no rule and nobody to route to is approved immediately.
func (e *Engine) Submit(ctx context.Context, expenseID, callerID int64) (*models.Expense, error) {
	ctx, span := e.tracer.Start(ctx, "approval.Submit", trace.WithAttributes(
		attribute.Int64("expense.id", expenseID),
	))
	defer span.End()

	var (
		submitted  models.Expense
		outcome    Outcome
		recipients []int64
	)
	err := e.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		exp, err := tx.LockExpense(ctx, expenseID)
		if err != nil {
			return err
		}
		if !CanSubmit(exp.Status) {
			return IllegalStatef("expense %d is %s", exp.ID, exp.Status)
		}

		caller, err := tx.GetUser(ctx, callerID)
		if errors.Is(err, ErrNotFound) {
			return Deniedf("user %d is unknown", callerID)
		}
		if err != nil {
			return err
		}
		if caller.ID != exp.SubmitterID && !(caller.IsAdmin() && caller.CompanyID == exp.CompanyID) {
			return Deniedf("user %d may not submit expense %d", caller.ID, exp.ID)
		}

		rule, err := e.resolver.Resolve(ctx, tx, exp.SubmitterID)
		if err != nil {
			return err
		}
		outcome, err = initialRoute(ctx, tx, rule, exp)
		if err != nil {
			return err
		}
		if _, err := Apply(exp, outcome); err != nil {
			return err
		}
		if err := tx.UpdateExpenseRouting(ctx, exp); err != nil {
			return err
		}
		submitted = *exp
		recipients = nil
		if outcome.Kind == OutcomeAdvance {
			recipients = Eligible(rule, exp, nil)
		}
		return nil
	})
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	logger.Log.Info().
		Int64("expense_id", expenseID).
		Str("submitter", logger.HashUserID(submitted.SubmitterID)).
		Str("status", string(submitted.Status)).
		Str("outcome", outcome.String()).
		Msg("Expense submitted")

	e.notify(ctx, &submitted, outcome, recipients)
	return &submitted, nil
}

// initialRoute picks the first approver of a freshly submitted expense.
func initialRoute(ctx context.Context, tx Tx, rule *Rule, exp *models.Expense) (Outcome, error) {
	submitter, err := tx.GetUser(ctx, exp.SubmitterID)
	if err != nil {
		return Outcome{}, err
	}

	fallback := func() (*int64, error) {
		if submitter.ManagerID != nil {
			return submitter.ManagerID, nil
		}
		admin, err := tx.FirstAdmin(ctx, exp.CompanyID)
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return &admin.ID, nil
	}

	if rule == nil {
		approver, err := fallback()
		if err != nil {
			return Outcome{}, err
		}
		if approver == nil {
			return Finalize(models.ApprovalStatusApproved), nil
		}
		return Advance(*approver, 1), nil
	}

	switch rule.Type {
	case models.ApprovalTypeSequential:
		// Step 0 is the manager's pre-approval; the manager's approval routes to sequence 1.
		if rule.IsManagerApprover && submitter.ManagerID != nil {
			return Advance(*submitter.ManagerID, 0), nil
		}
		if first, ok := rule.ApproverAt(1); ok {
			return Advance(first.ApproverID, 1), nil
		}
		approver, err := fallback()
		if err != nil {
			return Outcome{}, err
		}
		if approver == nil {
			return Finalize(models.ApprovalStatusApproved), nil
		}
		return Advance(*approver, 0), nil

	case models.ApprovalTypeSpecificApprover:
		return Advance(*rule.SpecificApproverID, 1), nil

	default:
		if len(rule.Approvers) > 0 {
			return Advance(rule.Approvers[0].ApproverID, 1), nil
		}
		if rule.SpecificApproverID != nil {
			return Advance(*rule.SpecificApproverID, 1), nil
		}
		// No approvers means a threshold of zero approvals.
		return Finalize(models.ApprovalStatusApproved), nil
	}
}

// ListPending returns the pending expenses approverID may decide on now, oldest first.
// Under parallel rules that is every expense where the approver has not voted yet,
// whatever the stored current approver is. Admins see every pending expense of their company.
func (e *Engine) ListPending(ctx context.Context, approverID int64) ([]models.Expense, error) {
	user, err := e.store.GetUser(ctx, approverID)
	if err != nil {
		return nil, err
	}

	expenses, err := e.store.ListPendingByCompany(ctx, user.CompanyID)
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin() {
		expenses, err = e.awaiting(ctx, approverID, expenses)
		if err != nil {
			return nil, err
		}
	}

	slices.SortStableFunc(expenses, func(a, b models.Expense) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return expenses, nil
}

// awaiting keeps the expenses on which approverID is eligible. An expense whose
// rule no longer validates is skipped; deciding on it reports the rule error.
func (e *Engine) awaiting(ctx context.Context, approverID int64, pending []models.Expense) ([]models.Expense, error) {
	rules := make(map[int64]*Rule)
	out := make([]models.Expense, 0, len(pending))
	for _, exp := range pending {
		rule, ok := rules[exp.SubmitterID]
		if !ok {
			var err error
			rule, err = e.resolver.Resolve(ctx, e.store, exp.SubmitterID)
			if errors.Is(err, ErrValidation) {
				logger.Log.Warn().Err(err).Int64("expense_id", exp.ID).Msg("Skipping expense with invalid rule")
				continue
			}
			if err != nil {
				return nil, err
			}
			rules[exp.SubmitterID] = rule
		}

		history, err := e.store.ListApprovals(ctx, exp.ID)
		if err != nil {
			return nil, err
		}
		if slices.Contains(Eligible(rule, &exp, history), approverID) {
			out = append(out, exp)
		}
	}
	return out, nil
}

// History returns the approval trail of an expense ordered by step number.
func (e *Engine) History(ctx context.Context, expenseID int64) ([]models.Approval, error) {
	if _, err := e.store.GetExpense(ctx, expenseID); err != nil {
		return nil, err
	}
	approvals, err := e.store.ListApprovals(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(approvals, func(a, b models.Approval) int {
		return a.StepNumber - b.StepNumber
	})
	return approvals, nil
}

// EligibleApprovers returns who, besides company admins, may decide on the expense now.
func (e *Engine) EligibleApprovers(ctx context.Context, expenseID int64) ([]int64, error) {
	exp, err := e.store.GetExpense(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if !CanDecide(exp.Status) {
		return []int64{}, nil
	}
	rule, err := e.resolver.Resolve(ctx, e.store, exp.SubmitterID)
	if err != nil {
		return nil, err
	}
	history, err := e.store.ListApprovals(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	eligible := Eligible(rule, exp, history)
	if eligible == nil {
		eligible = []int64{}
	}
	return eligible, nil
}

// notify runs after commit. Failures are logged and never change the result.
// recipients are the approvers asked to act on an advanced expense.
func (e *Engine) notify(ctx context.Context, exp *models.Expense, outcome Outcome, recipients []int64) {
	if e.notifier == nil {
		return
	}

	switch outcome.Kind {
	case OutcomeAdvance:
		for _, id := range recipients {
			approver, err := e.store.GetUser(ctx, id)
			if err == nil {
				err = e.notifier.ApprovalRequested(ctx, exp, approver)
			}
			if err != nil {
				logger.Log.Warn().
					Err(err).
					Int64("expense_id", exp.ID).
					Str("approver", logger.HashUserID(id)).
					Msg("Failed to send approval request notification")
			}
		}
	case OutcomeFinalize:
		submitter, err := e.store.GetUser(ctx, exp.SubmitterID)
		if err == nil {
			err = e.notifier.ExpenseFinalized(ctx, exp, submitter)
		}
		if err != nil {
			logger.Log.Warn().Err(err).Int64("expense_id", exp.ID).Msg("Failed to send finalized notification")
		}
	}
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(CodeOf(err)))
}

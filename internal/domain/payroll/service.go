package payroll

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"hrops/internal/platform/lock"
	"hrops/internal/platform/logger"
	"hrops/internal/platform/metrics"
)

const (
	generationLockPrefix = "payroll:generate:"
	defaultGenerationTTL = 2 * time.Minute
)

type Service struct {
	store   StoreAPI
	locker  lock.Locker
	metrics *metrics.Collector
	lockTTL time.Duration
}

func NewService(store StoreAPI, locker lock.Locker, collector *metrics.Collector, lockTTL time.Duration) *Service {
	if locker == nil {
		locker = lock.NewLocal()
	}
	if lockTTL <= 0 {
		lockTTL = defaultGenerationTTL
	}
	return &Service{store: store, locker: locker, metrics: collector, lockTTL: lockTTL}
}

// GenerationLockKey is the single-writer lock taken while month is generated.
func GenerationLockKey(month string) string {
	return generationLockPrefix + month
}

// SelectConfiguration picks the authoritative configuration among the active
// rows. With no row it returns the defaults together with
// ErrConfigurationMissing so callers can tell the two cases apart.
func SelectConfiguration(rows []StoredConfiguration) (RuleConfiguration, error) {
	switch len(rows) {
	case 0:
		return DefaultRuleConfiguration(), ErrConfigurationMissing
	case 1:
		return rows[0].Resolve(), nil
	default:
		return RuleConfiguration{}, fmt.Errorf("%w: %d rows", ErrAmbiguousConfiguration, len(rows))
	}
}

// Configuration returns the effective rule configuration. A stored
// configuration that fails validation is reported as ErrInvalidConfiguration
// so payroll is never computed with it.
func (s *Service) Configuration(ctx context.Context) (RuleConfiguration, error) {
	cfg, err := s.activeConfiguration(ctx)
	if err != nil {
		return RuleConfiguration{}, err
	}
	if err := cfg.Validate(); err != nil {
		logger.FromContext(ctx).Error().Err(err).Int("config_version", cfg.Version).Msg("active payroll rule configuration is invalid")
		return RuleConfiguration{}, fmt.Errorf("active configuration version %d: %w", cfg.Version, err)
	}
	return cfg, nil
}

func (s *Service) activeConfiguration(ctx context.Context) (RuleConfiguration, error) {
	rows, err := s.store.ActiveRuleConfigurations(ctx)
	if err != nil {
		return RuleConfiguration{}, fmt.Errorf("load rule configuration: %w", err)
	}
	cfg, err := SelectConfiguration(rows)
	if errors.Is(err, ErrConfigurationMissing) {
		logger.FromContext(ctx).Debug().Msg("no active payroll rule configuration, using defaults")
		return cfg, nil
	}
	return cfg, err
}

// UpdateConfiguration merges overrides over the effective configuration and
// stores the result as the new active version. The current configuration is
// not validated first, so an update can repair an invalid stored version.
func (s *Service) UpdateConfiguration(ctx context.Context, overrides RuleOverrides) (RuleConfiguration, error) {
	current, err := s.activeConfiguration(ctx)
	if err != nil {
		return RuleConfiguration{}, err
	}
	next := current.Merge(overrides)
	if err := next.Validate(); err != nil {
		return RuleConfiguration{}, err
	}
	stored, err := s.store.SaveRuleConfiguration(ctx, next)
	if err != nil {
		return RuleConfiguration{}, fmt.Errorf("save rule configuration: %w", err)
	}
	cfg := stored.Resolve()
	logger.FromContext(ctx).Info().Int("config_version", cfg.Version).Str("config_name", cfg.Name).Msg("payroll rule configuration updated")
	return cfg, nil
}

type monthInputs struct {
	employees []Employee
	absences  []AbsenceRecord
	overtimes []OvertimeRecord
	existing  []Payslip
	cfg       RuleConfiguration
}

func (s *Service) loadMonth(ctx context.Context, month string) (monthInputs, error) {
	var in monthInputs
	var err error
	if in.cfg, err = s.Configuration(ctx); err != nil {
		return monthInputs{}, err
	}
	if in.employees, err = s.store.ListEmployees(ctx); err != nil {
		return monthInputs{}, fmt.Errorf("list employees: %w", err)
	}
	if in.absences, err = s.store.ListAbsences(ctx, month); err != nil {
		return monthInputs{}, fmt.Errorf("list absences: %w", err)
	}
	if in.overtimes, err = s.store.ListOvertimes(ctx, month); err != nil {
		return monthInputs{}, fmt.Errorf("list overtimes: %w", err)
	}
	if in.existing, err = s.store.ListPayslips(ctx, month); err != nil {
		return monthInputs{}, fmt.Errorf("list payslips: %w", err)
	}
	return in, nil
}

// Preview computes the payslips Generate would create without storing them.
func (s *Service) Preview(ctx context.Context, month string) (GenerationResult, error) {
	month, err := ParseMonthReference(month)
	if err != nil {
		return GenerationResult{}, err
	}
	in, err := s.loadMonth(ctx, month)
	if err != nil {
		return GenerationResult{}, err
	}
	result := GeneratePayroll(month, in.employees, in.absences, in.overtimes, in.existing, in.cfg)
	for i := range result.Payslips {
		result.Payslips[i] = result.Payslips[i].Rounded()
	}
	return result, nil
}

// Generate creates the draft payslips of month. It holds the month's
// generation lock for the whole run; a payslip rejected by the store as a
// duplicate is reported as skipped. A storage failure aborts the run and the
// partial result is returned with the error. Running it again is safe.
func (s *Service) Generate(ctx context.Context, month string) (GenerationResult, error) {
	month, err := ParseMonthReference(month)
	if err != nil {
		return GenerationResult{}, err
	}
	log := logger.FromContext(ctx).With().Str("month_reference", month).Logger()

	release, err := s.locker.Acquire(ctx, GenerationLockKey(month), s.lockTTL)
	if err != nil {
		s.metrics.RecordGenerationFailure()
		return GenerationResult{}, fmt.Errorf("payroll generation for %s: %w", month, err)
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			log.Warn().Err(err).Msg("release generation lock failed")
		}
	}()

	in, err := s.loadMonth(ctx, month)
	if err != nil {
		s.metrics.RecordGenerationFailure()
		log.Error().Err(err).Msg("payroll generation aborted")
		return GenerationResult{}, err
	}

	computed := GeneratePayroll(month, in.employees, in.absences, in.overtimes, in.existing, in.cfg)
	for _, warning := range computed.Warnings {
		log.Warn().Str("employee_id", warning.EmployeeID).Str("code", warning.Code).Msg(warning.Message)
	}

	result := GenerationResult{
		MonthReference: month,
		ConfigVersion:  in.cfg.Version,
		Payslips:       make([]Payslip, 0, len(computed.Payslips)),
		Skipped:        computed.Skipped,
		Warnings:       computed.Warnings,
	}
	for _, slip := range computed.Payslips {
		created, err := s.store.CreatePayslip(ctx, slip.Rounded())
		if errors.Is(err, ErrPayslipExists) {
			result.Skipped = append(result.Skipped, SkippedEmployee{EmployeeID: slip.EmployeeID, Reason: SkipReasonPayslipExists})
			continue
		}
		if err != nil {
			s.metrics.RecordGenerationFailure()
			log.Error().Err(err).Str("employee_id", slip.EmployeeID).Int("created", len(result.Payslips)).Msg("payroll generation aborted")
			return result, fmt.Errorf("create payslip for employee %s: %w", slip.EmployeeID, err)
		}
		result.Payslips = append(result.Payslips, created)
	}

	summary := result.Summary()
	s.metrics.RecordGeneration(summary.Created, summary.Skipped, summary.Warnings)
	log.Info().
		Int("config_version", result.ConfigVersion).
		Int("created", summary.Created).
		Int("skipped", summary.Skipped).
		Int("warnings", summary.Warnings).
		Msg("payroll generated")
	return result, nil
}

// GenerationJob adapts Generate to the job runner; the run details are the
// generation summary.
func (s *Service) GenerationJob(month string) func(context.Context) (any, error) {
	return func(ctx context.Context) (any, error) {
		result, err := s.Generate(ctx, month)
		if err != nil {
			return map[string]any{"monthReference": month, "error": err.Error()}, err
		}
		return result.Summary(), nil
	}
}

// ListPayslips returns one page of the month's payslips ordered by employee
// name, and the total count.
func (s *Service) ListPayslips(ctx context.Context, month string, limit, offset int) ([]Payslip, int, error) {
	month, err := ParseMonthReference(month)
	if err != nil {
		return nil, 0, err
	}
	payslips, err := s.store.ListPayslips(ctx, month)
	if err != nil {
		return nil, 0, fmt.Errorf("list payslips: %w", err)
	}
	sort.SliceStable(payslips, func(i, j int) bool {
		if payslips[i].EmployeeName != payslips[j].EmployeeName {
			return payslips[i].EmployeeName < payslips[j].EmployeeName
		}
		return payslips[i].EmployeeID < payslips[j].EmployeeID
	})

	total := len(payslips)
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []Payslip{}, total, nil
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	return payslips[offset:end], total, nil
}

func (s *Service) GetPayslip(ctx context.Context, id string) (Payslip, error) {
	return s.store.GetPayslip(ctx, id)
}

// ApprovePayslip moves a draft payslip to approved.
func (s *Service) ApprovePayslip(ctx context.Context, id string) (Payslip, error) {
	return s.transition(ctx, id, PayslipStatusDraft, PayslipStatusApproved)
}

// MarkPayslipPaid moves an approved payslip to paid.
func (s *Service) MarkPayslipPaid(ctx context.Context, id string) (Payslip, error) {
	return s.transition(ctx, id, PayslipStatusApproved, PayslipStatusPaid)
}

func (s *Service) transition(ctx context.Context, id, from, to string) (Payslip, error) {
	if err := s.store.UpdatePayslipStatus(ctx, id, from, to); err != nil {
		return Payslip{}, err
	}
	logger.FromContext(ctx).Info().Str("payslip_id", id).Str("status", to).Msg("payslip status updated")
	return s.store.GetPayslip(ctx, id)
}

// Ready reports whether the store is reachable.
func (s *Service) Ready(ctx context.Context) error {
	return s.store.Ping(ctx)
}

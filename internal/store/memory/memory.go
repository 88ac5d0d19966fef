// Package memory provides an in-memory payroll.StoreAPI for tests and
// single-process development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"hrops/internal/domain/payroll"
)

type payslipKey struct {
	EmployeeID     string
	MonthReference string
}

type jobRun struct {
	JobType string
	Status  string
	Details []byte
}

type Store struct {
	mu        sync.RWMutex
	employees []payroll.Employee
	absences  []payroll.AbsenceRecord
	overtimes []payroll.OvertimeRecord
	payslips  map[string]payroll.Payslip
	byKey     map[payslipKey]string
	configs   []payroll.StoredConfiguration
	jobRuns   map[string]jobRun
	now       func() time.Time
}

func New() *Store {
	return &Store{
		payslips: make(map[string]payroll.Payslip),
		byKey:    make(map[payslipKey]string),
		jobRuns:  make(map[string]jobRun),
		now:      time.Now,
	}
}

func (m *Store) Ping(context.Context) error {
	return nil
}

// AddEmployee registers an employee, assigning an ID when it has none.
func (m *Store) AddEmployee(employee payroll.Employee) payroll.Employee {
	m.mu.Lock()
	defer m.mu.Unlock()
	if employee.ID == "" {
		employee.ID = uuid.NewString()
	}
	m.employees = append(m.employees, employee)
	return employee
}

func (m *Store) AddAbsence(record payroll.AbsenceRecord) payroll.AbsenceRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.MonthReference == "" && !record.Date.IsZero() {
		record.MonthReference = payroll.MonthReferenceOf(record.Date)
	}
	m.absences = append(m.absences, record)
	return record
}

func (m *Store) AddOvertime(record payroll.OvertimeRecord) payroll.OvertimeRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.MonthReference == "" && !record.Date.IsZero() {
		record.MonthReference = payroll.MonthReferenceOf(record.Date)
	}
	m.overtimes = append(m.overtimes, record)
	return record
}

// AddActiveConfiguration stores a configuration row flagged active without
// deactivating the others.
func (m *Store) AddActiveConfiguration(stored payroll.StoredConfiguration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.configs = append(m.configs, stored)
}

func (m *Store) ListEmployees(context.Context) ([]payroll.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]payroll.Employee, len(m.employees))
	copy(out, m.employees)
	return out, nil
}

func (m *Store) ListAbsences(_ context.Context, monthReference string) ([]payroll.AbsenceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []payroll.AbsenceRecord
	for _, record := range m.absences {
		if record.MonthReference == monthReference {
			out = append(out, record)
		}
	}
	return out, nil
}

func (m *Store) ListOvertimes(_ context.Context, monthReference string) ([]payroll.OvertimeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []payroll.OvertimeRecord
	for _, record := range m.overtimes {
		if record.MonthReference == monthReference {
			out = append(out, record)
		}
	}
	return out, nil
}

func (m *Store) ListPayslips(_ context.Context, monthReference string) ([]payroll.Payslip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []payroll.Payslip
	for _, payslip := range m.payslips {
		if payslip.MonthReference == monthReference {
			out = append(out, payslip)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt) || (out[i].CreatedAt.Equal(out[j].CreatedAt) && out[i].ID < out[j].ID)
	})
	return out, nil
}

func (m *Store) GetPayslip(_ context.Context, id string) (payroll.Payslip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	payslip, ok := m.payslips[id]
	if !ok {
		return payroll.Payslip{}, payroll.ErrPayslipNotFound
	}
	return payslip, nil
}

// CreatePayslip claims the (employee, month) key and stores the payslip in
// one critical section.
func (m *Store) CreatePayslip(_ context.Context, payslip payroll.Payslip) (payroll.Payslip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := payslipKey{EmployeeID: payslip.EmployeeID, MonthReference: payslip.MonthReference}
	if _, exists := m.byKey[k]; exists {
		return payroll.Payslip{}, payroll.ErrPayslipExists
	}
	payslip.ID = uuid.NewString()
	payslip.CreatedAt = m.now().UTC()
	m.byKey[k] = payslip.ID
	m.payslips[payslip.ID] = payslip
	return payslip, nil
}

func (m *Store) UpdatePayslipStatus(_ context.Context, id, from, to string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	payslip, ok := m.payslips[id]
	if !ok {
		return payroll.ErrPayslipNotFound
	}
	if payslip.Status != from {
		return fmt.Errorf("%w: %s to %s", payroll.ErrInvalidStatusTransition, payslip.Status, to)
	}
	payslip.Status = to
	m.payslips[id] = payslip
	return nil
}

func (m *Store) ActiveRuleConfigurations(context.Context) ([]payroll.StoredConfiguration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]payroll.StoredConfiguration, len(m.configs))
	copy(out, m.configs)
	return out, nil
}

func (m *Store) SaveRuleConfiguration(_ context.Context, cfg payroll.RuleConfiguration) (payroll.StoredConfiguration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	version := 1
	for _, stored := range m.configs {
		if stored.Version >= version {
			version = stored.Version + 1
		}
	}
	stored := payroll.StoredFrom(cfg, version, m.now().UTC())
	m.configs = []payroll.StoredConfiguration{stored}
	return stored, nil
}

func (m *Store) CreateJobRun(_ context.Context, jobType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.NewString()
	m.jobRuns[id] = jobRun{JobType: jobType, Status: "running"}
	return id, nil
}

func (m *Store) UpdateJobRun(_ context.Context, runID, status string, detailsJSON []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.jobRuns[runID]
	if !ok {
		return fmt.Errorf("job run %s not found", runID)
	}
	run.Status = status
	run.Details = detailsJSON
	m.jobRuns[runID] = run
	return nil
}

// JobRunStatuses returns the status of every recorded run of jobType.
func (m *Store) JobRunStatuses(jobType string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for _, run := range m.jobRuns {
		if run.JobType == jobType {
			out = append(out, run.Status)
		}
	}
	sort.Strings(out)
	return out
}

var _ payroll.StoreAPI = (*Store)(nil)

/*
Package sqlite provides a SQLite-backed payroll.StoreAPI for single-node
deployments and local development.

Amounts are stored as TEXT holding the decimal string, so values round-trip
without float conversion. The schema is migrated on New.

The unique index on payslips(employee_id, month_reference) is what makes
concurrent generation safe: the losing insert is reported as
payroll.ErrPayslipExists. A partial unique index keeps at most one active
rule configuration.
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"hrops/internal/domain/payroll"
)

const (
	dateLayout      = "2006-01-02"
	timestampLayout = time.RFC3339Nano
)

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New opens (or creates) the database at dbPath. Use ":memory:" for a
// throwaway database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db, now: time.Now}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		base_salary TEXT,
		status TEXT NOT NULL DEFAULT 'active'
	);

	CREATE TABLE IF NOT EXISTS absences (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL REFERENCES employees(id),
		absence_date TEXT NOT NULL,
		month_reference TEXT NOT NULL,
		category TEXT NOT NULL,
		days_off INTEGER NOT NULL DEFAULT 1,
		discount_salary INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_absences_month ON absences(month_reference);

	CREATE TABLE IF NOT EXISTS overtimes (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL REFERENCES employees(id),
		overtime_date TEXT NOT NULL,
		month_reference TEXT NOT NULL,
		hours TEXT NOT NULL,
		tier TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending'
	);
	CREATE INDEX IF NOT EXISTS idx_overtimes_month ON overtimes(month_reference);

	CREATE TABLE IF NOT EXISTS payroll_rule_configurations (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		version INTEGER NOT NULL,
		active INTEGER NOT NULL DEFAULT 0,
		work_days_per_month INTEGER,
		work_hours_per_day INTEGER,
		overtime_50_percent TEXT,
		overtime_100_percent TEXT,
		absence_discount_enabled INTEGER,
		medical_certificate_discount INTEGER,
		inss_enabled INTEGER,
		irrf_enabled INTEGER,
		vt_discount_percent TEXT,
		vt_enabled INTEGER,
		updated_at TEXT NOT NULL,
		UNIQUE(name, version)
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_rule_configurations_active
		ON payroll_rule_configurations(active) WHERE active = 1;

	CREATE TABLE IF NOT EXISTS payslips (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		employee_name TEXT NOT NULL,
		month_reference TEXT NOT NULL,
		base_salary TEXT NOT NULL,
		work_days INTEGER NOT NULL,
		absences_days INTEGER NOT NULL,
		absences_discount TEXT NOT NULL,
		medical_certificate_days INTEGER NOT NULL,
		overtime_50_hours TEXT NOT NULL,
		overtime_50_value TEXT NOT NULL,
		overtime_100_hours TEXT NOT NULL,
		overtime_100_value TEXT NOT NULL,
		total_overtime TEXT NOT NULL,
		inss_value TEXT NOT NULL,
		irrf_value TEXT NOT NULL,
		vt_discount TEXT NOT NULL,
		gross_salary TEXT NOT NULL,
		total_discounts TEXT NOT NULL,
		net_salary TEXT NOT NULL,
		status TEXT NOT NULL,
		config_version INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE(employee_id, month_reference)
	);
	CREATE INDEX IF NOT EXISTS idx_payslips_month ON payslips(month_reference);

	CREATE TABLE IF NOT EXISTS job_runs (
		id TEXT PRIMARY KEY,
		job_type TEXT NOT NULL,
		status TEXT NOT NULL,
		details_json TEXT NOT NULL DEFAULT '{}',
		started_at TEXT NOT NULL,
		completed_at TEXT
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// AddEmployee inserts an employee, assigning an ID when it has none.
func (s *Store) AddEmployee(ctx context.Context, employee payroll.Employee) (payroll.Employee, error) {
	if employee.ID == "" {
		employee.ID = uuid.NewString()
	}
	var salary any
	if employee.BaseSalary.Valid {
		salary = employee.BaseSalary.Decimal.String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO employees (id, name, base_salary, status) VALUES (?, ?, ?, ?)
	`, employee.ID, employee.Name, salary, employee.Status)
	if err != nil {
		return payroll.Employee{}, err
	}
	return employee, nil
}

func (s *Store) AddAbsence(ctx context.Context, record payroll.AbsenceRecord) (payroll.AbsenceRecord, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.MonthReference == "" {
		record.MonthReference = payroll.MonthReferenceOf(record.Date)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO absences (id, employee_id, absence_date, month_reference, category, days_off, discount_salary)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, record.ID, record.EmployeeID, record.Date.Format(dateLayout), record.MonthReference, record.Category, record.DaysOff, record.DiscountSalary)
	if err != nil {
		return payroll.AbsenceRecord{}, err
	}
	return record, nil
}

func (s *Store) AddOvertime(ctx context.Context, record payroll.OvertimeRecord) (payroll.OvertimeRecord, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.MonthReference == "" {
		record.MonthReference = payroll.MonthReferenceOf(record.Date)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO overtimes (id, employee_id, overtime_date, month_reference, hours, tier, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, record.ID, record.EmployeeID, record.Date.Format(dateLayout), record.MonthReference, record.Hours.String(), record.Tier, record.Status)
	if err != nil {
		return payroll.OvertimeRecord{}, err
	}
	return record, nil
}

func (s *Store) ListEmployees(ctx context.Context) ([]payroll.Employee, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, base_salary, status FROM employees ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []payroll.Employee
	for rows.Next() {
		var employee payroll.Employee
		var salary sql.NullString
		if err := rows.Scan(&employee.ID, &employee.Name, &salary, &employee.Status); err != nil {
			return nil, err
		}
		if salary.Valid {
			value, err := decimal.NewFromString(salary.String)
			if err != nil {
				return nil, fmt.Errorf("employee %s salary: %w", employee.ID, err)
			}
			employee.BaseSalary = decimal.NewNullDecimal(value)
		}
		employees = append(employees, employee)
	}
	return employees, rows.Err()
}

func (s *Store) ListAbsences(ctx context.Context, monthReference string) ([]payroll.AbsenceRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, employee_id, absence_date, month_reference, category, days_off, discount_salary
		FROM absences WHERE month_reference = ? ORDER BY absence_date, id
	`, monthReference)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []payroll.AbsenceRecord
	for rows.Next() {
		var record payroll.AbsenceRecord
		var date string
		if err := rows.Scan(&record.ID, &record.EmployeeID, &date, &record.MonthReference, &record.Category, &record.DaysOff, &record.DiscountSalary); err != nil {
			return nil, err
		}
		if record.Date, err = time.Parse(dateLayout, date); err != nil {
			return nil, fmt.Errorf("absence %s date: %w", record.ID, err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (s *Store) ListOvertimes(ctx context.Context, monthReference string) ([]payroll.OvertimeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, employee_id, overtime_date, month_reference, hours, tier, status
		FROM overtimes WHERE month_reference = ? ORDER BY overtime_date, id
	`, monthReference)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []payroll.OvertimeRecord
	for rows.Next() {
		var record payroll.OvertimeRecord
		var date, hours string
		if err := rows.Scan(&record.ID, &record.EmployeeID, &date, &record.MonthReference, &hours, &record.Tier, &record.Status); err != nil {
			return nil, err
		}
		if record.Date, err = time.Parse(dateLayout, date); err != nil {
			return nil, fmt.Errorf("overtime %s date: %w", record.ID, err)
		}
		if record.Hours, err = decimal.NewFromString(hours); err != nil {
			return nil, fmt.Errorf("overtime %s hours: %w", record.ID, err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

const payslipColumns = `id, employee_id, employee_name, month_reference, base_salary,
	work_days, absences_days, absences_discount, medical_certificate_days,
	overtime_50_hours, overtime_50_value, overtime_100_hours, overtime_100_value,
	total_overtime, inss_value, irrf_value, vt_discount,
	gross_salary, total_discounts, net_salary, status, config_version, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanPayslip(row scanner) (payroll.Payslip, error) {
	var p payroll.Payslip
	var amounts [13]string
	var createdAt string
	if err := row.Scan(&p.ID, &p.EmployeeID, &p.EmployeeName, &p.MonthReference, &amounts[0],
		&p.WorkDays, &p.AbsencesDays, &amounts[1], &p.MedicalCertificateDays,
		&amounts[2], &amounts[3], &amounts[4], &amounts[5],
		&amounts[6], &amounts[7], &amounts[8], &amounts[9],
		&amounts[10], &amounts[11], &amounts[12], &p.Status, &p.ConfigVersion, &createdAt); err != nil {
		return payroll.Payslip{}, err
	}
	targets := []*decimal.Decimal{
		&p.BaseSalary, &p.AbsencesDiscount,
		&p.Overtime50Hours, &p.Overtime50Value, &p.Overtime100Hours, &p.Overtime100Value,
		&p.TotalOvertime, &p.INSSValue, &p.IRRFValue, &p.VTDiscount,
		&p.GrossSalary, &p.TotalDiscounts, &p.NetSalary,
	}
	for i, target := range targets {
		value, err := decimal.NewFromString(amounts[i])
		if err != nil {
			return payroll.Payslip{}, fmt.Errorf("payslip %s amount: %w", p.ID, err)
		}
		*target = value
	}
	created, err := time.Parse(timestampLayout, createdAt)
	if err != nil {
		return payroll.Payslip{}, fmt.Errorf("payslip %s created_at: %w", p.ID, err)
	}
	p.CreatedAt = created
	return p, nil
}

func (s *Store) ListPayslips(ctx context.Context, monthReference string) ([]payroll.Payslip, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+payslipColumns+`
		FROM payslips WHERE month_reference = ? ORDER BY employee_name, employee_id
	`, monthReference)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payslips []payroll.Payslip
	for rows.Next() {
		payslip, err := scanPayslip(rows)
		if err != nil {
			return nil, err
		}
		payslips = append(payslips, payslip)
	}
	return payslips, rows.Err()
}

func (s *Store) GetPayslip(ctx context.Context, id string) (payroll.Payslip, error) {
	payslip, err := scanPayslip(s.db.QueryRowContext(ctx, `SELECT `+payslipColumns+` FROM payslips WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return payroll.Payslip{}, payroll.ErrPayslipNotFound
	}
	return payslip, err
}

func (s *Store) CreatePayslip(ctx context.Context, p payroll.Payslip) (payroll.Payslip, error) {
	p.ID = uuid.NewString()
	p.CreatedAt = s.now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payslips (`+payslipColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.EmployeeID, p.EmployeeName, p.MonthReference, p.BaseSalary.String(),
		p.WorkDays, p.AbsencesDays, p.AbsencesDiscount.String(), p.MedicalCertificateDays,
		p.Overtime50Hours.String(), p.Overtime50Value.String(), p.Overtime100Hours.String(), p.Overtime100Value.String(),
		p.TotalOvertime.String(), p.INSSValue.String(), p.IRRFValue.String(), p.VTDiscount.String(),
		p.GrossSalary.String(), p.TotalDiscounts.String(), p.NetSalary.String(), p.Status, p.ConfigVersion,
		p.CreatedAt.Format(timestampLayout))
	if err != nil {
		if isUniqueViolation(err) {
			return payroll.Payslip{}, payroll.ErrPayslipExists
		}
		return payroll.Payslip{}, err
	}
	return p, nil
}

func (s *Store) UpdatePayslipStatus(ctx context.Context, id, from, to string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE payslips SET status = ? WHERE id = ? AND status = ?`, to, id, from)
	if err != nil {
		return err
	}
	if affected, err := result.RowsAffected(); err != nil {
		return err
	} else if affected > 0 {
		return nil
	}
	var current string
	err = s.db.QueryRowContext(ctx, `SELECT status FROM payslips WHERE id = ?`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return payroll.ErrPayslipNotFound
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s to %s", payroll.ErrInvalidStatusTransition, current, to)
}

func (s *Store) ActiveRuleConfigurations(ctx context.Context) ([]payroll.StoredConfiguration, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, version, work_days_per_month, work_hours_per_day,
		       overtime_50_percent, overtime_100_percent,
		       absence_discount_enabled, medical_certificate_discount,
		       inss_enabled, irrf_enabled, vt_discount_percent, vt_enabled, updated_at
		FROM payroll_rule_configurations
		WHERE active = 1
		ORDER BY version DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []payroll.StoredConfiguration
	for rows.Next() {
		var (
			stored                               payroll.StoredConfiguration
			name, updatedAt                      string
			workDays, workHours                  sql.NullInt64
			overtime50, overtime100, vtPercent   sql.NullString
			absenceDiscount, certificateDiscount sql.NullBool
			inss, irrf, vt                       sql.NullBool
		)
		if err := rows.Scan(&name, &stored.Version, &workDays, &workHours, &overtime50, &overtime100,
			&absenceDiscount, &certificateDiscount, &inss, &irrf, &vtPercent, &vt, &updatedAt); err != nil {
			return nil, err
		}
		v := &stored.Values
		v.Name = &name
		v.WorkDaysPerMonth = nullInt(workDays)
		v.WorkHoursPerDay = nullInt(workHours)
		v.AbsenceDiscountEnabled = nullBool(absenceDiscount)
		v.MedicalCertificateDiscount = nullBool(certificateDiscount)
		v.INSSEnabled = nullBool(inss)
		v.IRRFEnabled = nullBool(irrf)
		v.VTEnabled = nullBool(vt)
		if v.Overtime50Percent, err = nullDecimal(overtime50); err != nil {
			return nil, err
		}
		if v.Overtime100Percent, err = nullDecimal(overtime100); err != nil {
			return nil, err
		}
		if v.VTDiscountPercent, err = nullDecimal(vtPercent); err != nil {
			return nil, err
		}
		if stored.UpdatedAt, err = time.Parse(timestampLayout, updatedAt); err != nil {
			return nil, fmt.Errorf("rule configuration updated_at: %w", err)
		}
		configs = append(configs, stored)
	}
	return configs, rows.Err()
}

func (s *Store) SaveRuleConfiguration(ctx context.Context, cfg payroll.RuleConfiguration) (payroll.StoredConfiguration, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return payroll.StoredConfiguration{}, err
	}
	defer tx.Rollback()

	var version int
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) + 1 FROM payroll_rule_configurations`).Scan(&version); err != nil {
		return payroll.StoredConfiguration{}, err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE payroll_rule_configurations SET active = 0 WHERE active = 1`); err != nil {
		return payroll.StoredConfiguration{}, err
	}
	updatedAt := s.now().UTC()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO payroll_rule_configurations (
			id, name, version, active, work_days_per_month, work_hours_per_day,
			overtime_50_percent, overtime_100_percent, absence_discount_enabled, medical_certificate_discount,
			inss_enabled, irrf_enabled, vt_discount_percent, vt_enabled, updated_at
		) VALUES (?, ?, ?, 1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, uuid.NewString(), cfg.Name, version, cfg.WorkDaysPerMonth, cfg.WorkHoursPerDay,
		cfg.Overtime50Percent.String(), cfg.Overtime100Percent.String(), cfg.AbsenceDiscountEnabled, cfg.MedicalCertificateDiscount,
		cfg.INSSEnabled, cfg.IRRFEnabled, cfg.VTDiscountPercent.String(), cfg.VTEnabled, updatedAt.Format(timestampLayout)); err != nil {
		return payroll.StoredConfiguration{}, err
	}
	if err := tx.Commit(); err != nil {
		return payroll.StoredConfiguration{}, err
	}
	return payroll.StoredFrom(cfg, version, updatedAt), nil
}

func (s *Store) CreateJobRun(ctx context.Context, jobType string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO job_runs (id, job_type, status, started_at) VALUES (?, ?, 'running', ?)
	`, id, jobType, s.now().UTC().Format(timestampLayout))
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) UpdateJobRun(ctx context.Context, runID, status string, detailsJSON []byte) error {
	if detailsJSON == nil {
		detailsJSON = []byte("{}")
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE job_runs SET status = ?, details_json = ?, completed_at = ? WHERE id = ?
	`, status, string(detailsJSON), s.now().UTC().Format(timestampLayout), runID)
	return err
}

// JobRunStatus returns the status of one recorded job run.
func (s *Store) JobRunStatus(ctx context.Context, runID string) (string, error) {
	var status string
	err := s.db.QueryRowContext(ctx, `SELECT status FROM job_runs WHERE id = ?`, runID).Scan(&status)
	return status, err
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

func nullInt(value sql.NullInt64) *int {
	if !value.Valid {
		return nil
	}
	v := int(value.Int64)
	return &v
}

func nullBool(value sql.NullBool) *bool {
	if !value.Valid {
		return nil
	}
	v := value.Bool
	return &v
}

func nullDecimal(value sql.NullString) (*decimal.Decimal, error) {
	if !value.Valid {
		return nil, nil
	}
	d, err := decimal.NewFromString(value.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

var _ payroll.StoreAPI = (*Store)(nil)

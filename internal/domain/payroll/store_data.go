package payroll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const uniqueViolation = "23505"

// Store is the postgres StoreAPI. Numeric columns are read as text and
// parsed into decimals so no precision is lost on the way.
type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.DB.Ping(ctx)
}

func (s *Store) ListEmployees(ctx context.Context) ([]Employee, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id::text, name, base_salary::text, status
    FROM employees
    ORDER BY name, id
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []Employee
	for rows.Next() {
		var employee Employee
		var salary *string
		if err := rows.Scan(&employee.ID, &employee.Name, &salary, &employee.Status); err != nil {
			return nil, err
		}
		if employee.BaseSalary, err = parseNullDecimal(salary); err != nil {
			return nil, fmt.Errorf("employee %s salary: %w", employee.ID, err)
		}
		employees = append(employees, employee)
	}
	return employees, rows.Err()
}

func (s *Store) ListAbsences(ctx context.Context, monthReference string) ([]AbsenceRecord, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id::text, employee_id::text, absence_date, month_reference, category, days_off, discount_salary
    FROM absences
    WHERE month_reference = $1
    ORDER BY absence_date, id
  `, monthReference)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []AbsenceRecord
	for rows.Next() {
		var record AbsenceRecord
		if err := rows.Scan(&record.ID, &record.EmployeeID, &record.Date, &record.MonthReference, &record.Category, &record.DaysOff, &record.DiscountSalary); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (s *Store) ListOvertimes(ctx context.Context, monthReference string) ([]OvertimeRecord, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id::text, employee_id::text, overtime_date, month_reference, hours::text, tier, status
    FROM overtimes
    WHERE month_reference = $1
    ORDER BY overtime_date, id
  `, monthReference)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []OvertimeRecord
	for rows.Next() {
		var record OvertimeRecord
		var hours string
		if err := rows.Scan(&record.ID, &record.EmployeeID, &record.Date, &record.MonthReference, &hours, &record.Tier, &record.Status); err != nil {
			return nil, err
		}
		if record.Hours, err = decimal.NewFromString(hours); err != nil {
			return nil, fmt.Errorf("overtime %s hours: %w", record.ID, err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

const payslipColumns = `
    id::text, employee_id::text, employee_name, month_reference, base_salary::text,
    work_days, absences_days, absences_discount::text, medical_certificate_days,
    overtime_50_hours::text, overtime_50_value::text, overtime_100_hours::text, overtime_100_value::text,
    total_overtime::text, inss_value::text, irrf_value::text, vt_discount::text,
    gross_salary::text, total_discounts::text, net_salary::text, status, config_version, created_at`

func (s *Store) ListPayslips(ctx context.Context, monthReference string) ([]Payslip, error) {
	rows, err := s.DB.Query(ctx, `SELECT `+payslipColumns+`
    FROM payslips
    WHERE month_reference = $1
    ORDER BY employee_name, employee_id
  `, monthReference)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payslips []Payslip
	for rows.Next() {
		payslip, err := scanPayslip(rows)
		if err != nil {
			return nil, err
		}
		payslips = append(payslips, payslip)
	}
	return payslips, rows.Err()
}

func (s *Store) GetPayslip(ctx context.Context, id string) (Payslip, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Payslip{}, ErrPayslipNotFound
	}
	payslip, err := scanPayslip(s.DB.QueryRow(ctx, `SELECT `+payslipColumns+`
    FROM payslips
    WHERE id = $1
  `, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Payslip{}, ErrPayslipNotFound
	}
	return payslip, err
}

func (s *Store) CreatePayslip(ctx context.Context, p Payslip) (Payslip, error) {
	err := s.DB.QueryRow(ctx, `
    INSERT INTO payslips (
      employee_id, employee_name, month_reference, base_salary,
      work_days, absences_days, absences_discount, medical_certificate_days,
      overtime_50_hours, overtime_50_value, overtime_100_hours, overtime_100_value,
      total_overtime, inss_value, irrf_value, vt_discount,
      gross_salary, total_discounts, net_salary, status, config_version
    )
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
    RETURNING id::text, created_at
  `, p.EmployeeID, p.EmployeeName, p.MonthReference, p.BaseSalary.String(),
		p.WorkDays, p.AbsencesDays, p.AbsencesDiscount.String(), p.MedicalCertificateDays,
		p.Overtime50Hours.String(), p.Overtime50Value.String(), p.Overtime100Hours.String(), p.Overtime100Value.String(),
		p.TotalOvertime.String(), p.INSSValue.String(), p.IRRFValue.String(), p.VTDiscount.String(),
		p.GrossSalary.String(), p.TotalDiscounts.String(), p.NetSalary.String(), p.Status, p.ConfigVersion,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Payslip{}, ErrPayslipExists
		}
		return Payslip{}, err
	}
	return p, nil
}

func (s *Store) UpdatePayslipStatus(ctx context.Context, id, from, to string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrPayslipNotFound
	}
	tag, err := s.DB.Exec(ctx, `
    UPDATE payslips SET status = $1
    WHERE id = $2 AND status = $3
  `, to, id, from)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	var current string
	err = s.DB.QueryRow(ctx, `SELECT status FROM payslips WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrPayslipNotFound
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s to %s", ErrInvalidStatusTransition, current, to)
}

func (s *Store) ActiveRuleConfigurations(ctx context.Context) ([]StoredConfiguration, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT name, version, work_days_per_month, work_hours_per_day,
           overtime_50_percent::text, overtime_100_percent::text,
           absence_discount_enabled, medical_certificate_discount,
           inss_enabled, irrf_enabled, vt_discount_percent::text, vt_enabled, updated_at
    FROM payroll_rule_configurations
    WHERE active
    ORDER BY version DESC
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []StoredConfiguration
	for rows.Next() {
		var stored StoredConfiguration
		var name string
		var overtime50, overtime100, vtPercent *string
		v := &stored.Values
		if err := rows.Scan(&name, &stored.Version, &v.WorkDaysPerMonth, &v.WorkHoursPerDay,
			&overtime50, &overtime100,
			&v.AbsenceDiscountEnabled, &v.MedicalCertificateDiscount,
			&v.INSSEnabled, &v.IRRFEnabled, &vtPercent, &v.VTEnabled, &stored.UpdatedAt); err != nil {
			return nil, err
		}
		v.Name = &name
		if v.Overtime50Percent, err = parseDecimalPtr(overtime50); err != nil {
			return nil, err
		}
		if v.Overtime100Percent, err = parseDecimalPtr(overtime100); err != nil {
			return nil, err
		}
		if v.VTDiscountPercent, err = parseDecimalPtr(vtPercent); err != nil {
			return nil, err
		}
		configs = append(configs, stored)
	}
	return configs, rows.Err()
}

// SaveRuleConfiguration stores cfg as the only active configuration with the
// next version number.
func (s *Store) SaveRuleConfiguration(ctx context.Context, cfg RuleConfiguration) (StoredConfiguration, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return StoredConfiguration{}, err
	}
	defer tx.Rollback(ctx)

	var version int
	if err := tx.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) + 1 FROM payroll_rule_configurations`).Scan(&version); err != nil {
		return StoredConfiguration{}, err
	}
	if _, err := tx.Exec(ctx, `UPDATE payroll_rule_configurations SET active = false WHERE active`); err != nil {
		return StoredConfiguration{}, err
	}
	var updatedAt time.Time
	if err := tx.QueryRow(ctx, `
    INSERT INTO payroll_rule_configurations (
      name, version, active, work_days_per_month, work_hours_per_day,
      overtime_50_percent, overtime_100_percent, absence_discount_enabled, medical_certificate_discount,
      inss_enabled, irrf_enabled, vt_discount_percent, vt_enabled
    )
    VALUES ($1,$2,true,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
    RETURNING updated_at
  `, cfg.Name, version, cfg.WorkDaysPerMonth, cfg.WorkHoursPerDay,
		cfg.Overtime50Percent.String(), cfg.Overtime100Percent.String(), cfg.AbsenceDiscountEnabled, cfg.MedicalCertificateDiscount,
		cfg.INSSEnabled, cfg.IRRFEnabled, cfg.VTDiscountPercent.String(), cfg.VTEnabled,
	).Scan(&updatedAt); err != nil {
		return StoredConfiguration{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return StoredConfiguration{}, err
	}
	return StoredFrom(cfg, version, updatedAt), nil
}

func (s *Store) CreateJobRun(ctx context.Context, jobType string) (string, error) {
	var runID string
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO job_runs (job_type, status)
    VALUES ($1,$2)
    RETURNING id::text
  `, jobType, "running").Scan(&runID); err != nil {
		return "", err
	}
	return runID, nil
}

func (s *Store) UpdateJobRun(ctx context.Context, runID, status string, detailsJSON []byte) error {
	if detailsJSON == nil {
		detailsJSON = []byte("{}")
	}
	_, execErr := s.DB.Exec(ctx, `
    UPDATE job_runs SET status = $1, details_json = $2, completed_at = now()
    WHERE id = $3
  `, status, detailsJSON, runID)
	return execErr
}

func scanPayslip(row pgx.Row) (Payslip, error) {
	var p Payslip
	var amounts [13]string
	if err := row.Scan(&p.ID, &p.EmployeeID, &p.EmployeeName, &p.MonthReference, &amounts[0],
		&p.WorkDays, &p.AbsencesDays, &amounts[1], &p.MedicalCertificateDays,
		&amounts[2], &amounts[3], &amounts[4], &amounts[5],
		&amounts[6], &amounts[7], &amounts[8], &amounts[9],
		&amounts[10], &amounts[11], &amounts[12], &p.Status, &p.ConfigVersion, &p.CreatedAt); err != nil {
		return Payslip{}, err
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
			return Payslip{}, fmt.Errorf("payslip %s amount: %w", p.ID, err)
		}
		*target = value
	}
	return p, nil
}

func parseNullDecimal(value *string) (decimal.NullDecimal, error) {
	if value == nil {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(*value)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

func parseDecimalPtr(value *string) (*decimal.Decimal, error) {
	if value == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*value)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

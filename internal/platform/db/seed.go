package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"hrops/internal/domain/payroll"
)

// Seed stores the default rule configuration as version 1 when no
// configuration has ever been saved. It is safe to run on every start.
func Seed(ctx context.Context, pool *pgxpool.Pool) error {
	var count int
	if err := pool.QueryRow(ctx, "SELECT COUNT(1) FROM payroll_rule_configurations").Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	stored, err := payroll.NewStore(pool).SaveRuleConfiguration(ctx, payroll.DefaultRuleConfiguration())
	if err != nil {
		return err
	}
	log.Info().Int("config_version", stored.Version).Msg("default payroll rule configuration seeded")
	return nil
}

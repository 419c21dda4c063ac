package migration

import (
	"context"

	"github.com/smallbiznis/bizplannaija/internal/clock"
	"github.com/smallbiznis/bizplannaija/internal/config"
	"github.com/smallbiznis/bizplannaija/internal/seed"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, clk clock.Clock, log *zap.Logger) error {
		log = log.Named("migration")
		if err := Migrate(conn); err != nil {
			return err
		}
		log.Info("schema up to date", zap.String("dialect", conn.Dialector.Name()))

		accounts, err := seed.ParseAccounts(cfg.SeedUsers)
		if err != nil {
			return err
		}
		created, err := seed.EnsureUsers(context.Background(), conn, accounts, clk.Now())
		if err != nil {
			return err
		}
		if created > 0 {
			log.Info("seeded accounts", zap.Int("created", created))
		}
		return nil
	}),
)

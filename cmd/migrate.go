package cmd

import (
	"errors"

	"github.com/votabienperu/backend/config"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var migrateDown bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Run:   runMigrate,
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateDown, "down", false, "revert the most recent migration")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(_ *cobra.Command, _ []string) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	m, err := migrate.New("file://migrations", "mysql://"+cfg.Database.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize migrations")
	}
	defer m.Close()

	if migrateDown {
		err = m.Steps(-1)
	} else {
		err = m.Up()
	}

	if errors.Is(err, migrate.ErrNoChange) {
		logrus.Info("Database schema is up to date")
		return
	}
	if err != nil {
		logrus.WithError(err).Fatal("Migration failed")
	}

	logrus.Info("Migrations applied")
}

package cmd

import (
	"os"

	"github.com/votabienperu/backend/config"

	"github.com/sirupsen/logrus"
)

func configureLogging(cfg *config.Config) error {
	if cfg.App.IsProduction() {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if value := os.Getenv("LOG_LEVEL"); value != "" {
		level, err := logrus.ParseLevel(value)
		if err != nil {
			return err
		}
		logrus.SetLevel(level)
	}

	return nil
}

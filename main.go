package main

import (
	"os"

	"github.com/sirupsen/logrus"

	"tiertrend/app"
	"tiertrend/config"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		log.SetLevel(level)
	}

	cfg := config.LoadFromEnv(log)

	application := app.New(cfg, log)
	if err := application.Start(); err != nil {
		log.Fatal(err)
	}
}

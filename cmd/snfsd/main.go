package main

import (
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.StandardLogger()
	if err := configureLogging(logger, defaultConfig.LogLevel); err != nil {
		logger.Fatal(err)
	}

	c, err := LoadConfig()
	if err != nil {
		logger.Fatalf("loading config: %v", err)
	}

	if err := c.Run(); err != nil {
		logger.Fatal(err)
	}
}

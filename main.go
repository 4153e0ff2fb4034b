package main

import (
	"os"

	"github.com/kilianp07/mqtt-test-client/cmd"
	"github.com/kilianp07/mqtt-test-client/infra/logger"
)

func main() {
	if err := cmd.Execute(); err != nil {
		logger.New("main").Errorf("%v", err)
		os.Exit(1)
	}
}

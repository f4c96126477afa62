package main

import (
	"context"
	"flag"
	"time"

	"github.com/shandysiswandi/otpgate/internal/app"
)

func main() {
	configPath := flag.String("config", "", "path to the config file (defaults to CONFIG_PATH or ./config/config.yaml)")
	flag.Parse()

	application := app.New(*configPath) // Initialize the application
	wait := application.Start()         // Start the application and wait for the termination signal
	<-wait                              // Wait for the application to receive a termination signal
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	application.Stop(ctx) // Stop the application gracefully
}

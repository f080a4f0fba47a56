package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"marketpulse/internal/cli"
)

func main() {
	// A missing .env is fine; the environment and config.toml still apply.
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

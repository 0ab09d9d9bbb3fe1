// Package main provides grinctl, the operator CLI for the rolling service.
package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/grinmorio/rolling/internal/cli"
)

func main() {
	_ = godotenv.Load()
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

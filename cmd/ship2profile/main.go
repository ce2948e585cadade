package main

import (
	"os"

	"github.com/wonny/ship2profile/cmd/ship2profile/commands"
)

// main is the entry point for the ship2profile CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/ship2profile [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}

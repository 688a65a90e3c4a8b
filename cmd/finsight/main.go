package main

import (
	"os"

	"github.com/YuvrajArora777/Finsight-Clean/cmd/finsight/commands"
)

// main is the entry point for the FinSight CLI
// ⭐ Unified CLI entry point: go run ./cmd/finsight [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}

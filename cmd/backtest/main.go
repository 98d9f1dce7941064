package main

import (
	"os"

	"github.com/quantfold/backtest/cmd/backtest/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

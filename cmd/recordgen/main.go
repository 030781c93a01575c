package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/BC-Softworks/record-generator/internal/logger"
)

func main() {
	err := NewRootCmd().Execute()

	logger.Sync(zap.L())

	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)

		os.Exit(1)
	}
}

package main

import (
	"context"
	"os"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/garrettladley/chirp/internal/version"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:     "notifyctl",
		Short:   "Send and receive chirp notifications",
		Version: version.Get(),
	}

	rootCmd.AddCommand(listenCmd())
	rootCmd.AddCommand(inboxCmd())
	rootCmd.AddCommand(sendCmd())
	rootCmd.AddCommand(watchCmd())

	if err := fang.Execute(context.Background(), rootCmd, fang.WithNotifySignal(os.Interrupt, syscall.SIGTERM)); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/moonshot-emu/textstream/stream"
)

func main() {
	var (
		socketPath string
		bulkPath   string
		vsyncHz    float64
		verbose    bool
	)

	root := &cobra.Command{
		Use:   "textstream-host",
		Short: "Serves a simulated text-mode display over the textstream protocol",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHost(socketPath, bulkPath, vsyncHz, verbose)
		},
		DisableAutoGenTag: true,
	}

	root.Flags().StringVar(&socketPath, "socket", "/tmp/textstream.sock", "primary Unix socket path")
	root.Flags().StringVar(&bulkPath, "bulk-socket", "", "optional bulk-channel Unix socket path")
	root.Flags().Float64Var(&vsyncHz, "vsync-hz", 60, "simulated display tick rate")
	root.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runHost(socketPath, bulkPath string, vsyncHz float64, verbose bool) error {
	stream.SetVerboseLogging(verbose)

	if vsyncHz <= 0 {
		vsyncHz = 60
	}

	host := newDemoHost()
	st := stream.New(host, host)
	if err := st.Listen(socketPath, bulkPath); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	st.Attach(host)

	done := make(chan struct{})
	go host.Run(done, time.Duration(float64(time.Second)/vsyncHz))

	fmt.Printf("textstream-host listening on %s (%.1f Hz)\n", socketPath, vsyncHz)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	close(done)
	return st.Close()
}

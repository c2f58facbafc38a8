// Command loopback demonstrates the modem and transport by wiring two
// PhysicalModems back to back through an in-memory LoopbackChannel and
// sending a file or stdin payload reliably across it. It replaces the
// reference implementation's HTTP/WebSocket demo server, which depends
// on a real sound card and a browser UI, neither of which is in scope
// here.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/jhan-dev/acoustic-modem/internal/config"
	"github.com/jhan-dev/acoustic-modem/internal/transport"
)

func main() {
	var (
		configPath = pflag.StringP("config", "c", "", "path to a YAML config file overlaying the defaults")
		inputPath  = pflag.StringP("input", "i", "-", "file to send, or - for stdin")
		verbose    = pflag.BoolP("verbose", "v", false, "enable debug logging")
	)
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "loopback sends a payload across two in-memory modems joined by a loopback channel.\n\n")
		fmt.Fprintf(os.Stderr, "Usage: loopback [flags]\n\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	logger := log.New(os.Stderr)
	if *verbose {
		logger.SetLevel(log.DebugLevel)
	} else {
		logger.SetLevel(log.InfoLevel)
	}

	if err := run(logger, *configPath, *inputPath); err != nil {
		logger.Error("run failed", "err", err)
		os.Exit(1)
	}
}

func run(logger *log.Logger, configPath, inputPath string) error {
	settings := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		settings = loaded
	}

	payload, err := readPayload(inputPath)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	logger.Info("payload loaded", "bytes", len(payload), "source", inputPath)

	chSend, chRecv, err := transport.NewLoopbackPair(settings.Modem, logger)
	if err != nil {
		return fmt.Errorf("configuring loopback channel: %w", err)
	}

	sender := transport.New(chSend, logger.WithPrefix("sender"))
	receiver := transport.New(chRecv, logger.WithPrefix("receiver"))
	if err := sender.Configure(settings.Transport); err != nil {
		return fmt.Errorf("configuring sender: %w", err)
	}
	if err := receiver.Configure(settings.Transport); err != nil {
		return fmt.Errorf("configuring receiver: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	type recvResult struct {
		payload []byte
		err     error
	}
	recvDone := make(chan recvResult, 1)
	go func() {
		p, err := receiver.Receive()
		recvDone <- recvResult{p, err}
	}()

	go func() {
		<-ctx.Done()
		logger.Warn("signal received, resetting transports")
		sender.Reset()
		receiver.Reset()
	}()

	start := time.Now()
	sendErr := sender.Send(payload, func(fragment, total int) {
		logger.Info("fragment acked", "fragment", fragment, "total", total)
	})
	if sendErr != nil {
		return fmt.Errorf("sending payload: %w", sendErr)
	}

	result := <-recvDone
	elapsed := time.Since(start)
	if result.err != nil {
		return fmt.Errorf("receiving payload: %w", result.err)
	}

	logger.Info("transfer complete",
		"bytes", len(result.payload),
		"elapsed", elapsed,
		"throughput_bps", throughputBitsPerSecond(len(result.payload), elapsed))

	if len(result.payload) != len(payload) {
		return fmt.Errorf("round trip length mismatch: sent %d, received %d", len(payload), len(result.payload))
	}
	return nil
}

func readPayload(path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func throughputBitsPerSecond(n int, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(n*8) / elapsed.Seconds()
}

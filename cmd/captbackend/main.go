// Command captbackend is a CUPS-style print backend for Canon CAPT v1 laser
// printers attached over USB. CUPS execs it once per job (and once, with no
// arguments, for device discovery); see spec.md §6.1-§6.2.
//
// Grounded on original_source/captbackend/main.cpp: the argv arity check,
// the DEVICE_URI/content-type environment lookup, and the
// discover-or-dispatch-then-release control flow, redesigned around
// context.Context/os/signal.NotifyContext instead of std::stop_source and
// around internal/capt/orchestrator instead of inline open/claim/reserve calls.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/darkvision77/captppd/internal/capt/cancel"
	"github.com/darkvision77/captppd/internal/capt/config"
	"github.com/darkvision77/captppd/internal/capt/logging"
	"github.com/darkvision77/captppd/internal/capt/orchestrator"
	"github.com/darkvision77/captppd/internal/capt/reason"
	"github.com/darkvision77/captppd/internal/capt/usb"
)

// CUPS backend exit codes (spec.md §6.5); named the way cups/backend.h does.
const (
	backendOK     = 0
	backendFailed = 1
)

func usage(prog string) {
	fmt.Fprintf(os.Stdout, "Usage: %s job-id user title copies options [file]\n", prog)
}

func main() {
	os.Exit(run(os.Args, os.Stdin, os.Stdout, os.Stderr))
}

func run(argv []string, stdin *os.File, stdout, stderr *os.File) int {
	log := logging.New(stderr, logging.INFO)

	if len(argv) != 1 && len(argv) != 6 && len(argv) != 7 {
		usage(argv[0])
		return backendFailed
	}

	settings, err := config.Load()
	if err != nil {
		log.Warn("failed to load configuration, using defaults", "err", err)
		settings = config.Default()
	}

	log.Debug("captbackend starting", "argc", len(argv))

	transportTimeout := time.Duration(settings.TransportTimeoutSeconds) * time.Second
	enumerator := usb.NewGousbEnumerator(usb.Config{
		ReadTimeout:  transportTimeout,
		WriteTimeout: transportTimeout,
	})
	orch := orchestrator.New(enumerator, log, settings)
	defer orch.Close()

	if len(argv) == 1 {
		if err := orch.Discover(stdout); err != nil {
			log.Critical("discovery failed", "err", err)
			return backendFailed
		}
		return backendOK
	}

	targetURI, ok := os.LookupEnv("DEVICE_URI")
	if !ok || targetURI == "" {
		log.Critical("DEVICE_URI is not set")
		return backendFailed
	}

	isRasterJob, err := classifyContentType()
	if err != nil {
		log.Critical(err.Error())
		return backendFailed
	}

	input := stdin
	if len(argv) == 7 {
		f, err := os.Open(argv[6])
		if err != nil {
			log.Critical("failed to open input file", "path", argv[6], "err", err)
			return backendFailed
		}
		defer f.Close()
		input = f
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	token := cancel.New(ctx)

	reporter := reason.New(stderr)
	defer reporter.Close()

	job := orchestrator.Job{TargetURI: targetURI, Reporter: reporter}
	if isRasterJob {
		job.Raster = input
	}

	if err := orch.Run(token, job); err != nil {
		log.Critical("job failed", "err", err)
		return backendFailed
	}
	return backendOK
}

// classifyContentType resolves FINAL_CONTENT_TYPE (falling back to
// CONTENT_TYPE) into a raster job (true) or a clean command (false), per
// spec.md §6.2. Anything else is fatal.
func classifyContentType() (isRasterJob bool, err error) {
	contentType, ok := os.LookupEnv("FINAL_CONTENT_TYPE")
	if !ok || (contentType != "application/vnd.cups-raster" && contentType != "application/vnd.cups-command") {
		contentType, ok = os.LookupEnv("CONTENT_TYPE")
		if !ok || (contentType != "application/vnd.cups-raster" && contentType != "application/vnd.cups-command") {
			return false, fmt.Errorf("unsupported content type")
		}
	}
	return contentType == "application/vnd.cups-raster", nil
}

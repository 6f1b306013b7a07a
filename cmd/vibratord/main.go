package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"syscall"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	haptic "github.com/ehrlich-b/go-haptic"
)

// charmLogger adapts a *charmlog.Logger to interfaces.Logger. charmlog's
// Logger already exposes Printf for drop-in log.Logger compatibility; Debugf
// and Errorf are built on its structured Debug/Error by formatting first.
type charmLogger struct {
	*charmlog.Logger
}

func (l charmLogger) Debugf(format string, args ...interface{}) {
	l.Logger.Debug(fmt.Sprintf(format, args...))
}

func (l charmLogger) Errorf(format string, args ...interface{}) {
	l.Logger.Error(fmt.Sprintf(format, args...))
}

func main() {
	var (
		devicePath = pflag.StringP("device", "d", haptic.DefaultDevicePath, "FF-capable input device to drive.")
		localSock  = pflag.StringP("local-socket", "l", haptic.DefaultLocalSocketPath, "Local UNIX-domain socket to listen on.")
		rpmsgSock  = pflag.StringP("rpmsg-socket", "r", haptic.DefaultRpmsgSocketPath, "Cross-core RPMSG-domain socket to listen on.")
		statePath  = pflag.StringP("state-file", "s", haptic.DefaultStatePath, "File backing persisted intensity/calibration.")
		verbose    = pflag.BoolP("verbose", "v", false, "Verbose (debug-level) logging.")
		help       = pflag.BoolP("help", "h", false, "Display help text.")
	)

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "vibratord - force-feedback vibrator daemon\n\n")
		fmt.Fprintf(os.Stderr, "Usage: vibratord [options]\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(1)
	}

	logger := charmLogger{charmlog.New(os.Stderr)}
	if *verbose {
		logger.SetLevel(charmlog.DebugLevel)
	}

	params := haptic.DefaultParams()
	params.DevicePath = *devicePath
	params.LocalSocketPath = *localSock
	params.RPMSGSocketPath = *rpmsgSock
	params.StatePath = *statePath

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	options := &haptic.Options{Logger: logger}

	device, err := haptic.CreateAndServe(ctx, params, options)
	if err != nil {
		logger.Errorf("failed to create device: %v", err)
		os.Exit(1)
	}
	defer func() {
		logger.Printf("stopping device")
		if err := haptic.StopAndDelete(context.Background(), device); err != nil {
			logger.Errorf("error stopping device: %v", err)
		} else {
			logger.Printf("device stopped successfully")
		}
	}()

	logger.Printf("vibratord serving device=%s local=%s rpmsg=%s", params.DevicePath, params.LocalSocketPath, params.RPMSGSocketPath)

	stackDumpCh := make(chan os.Signal, 1)
	signal.Notify(stackDumpCh, syscall.SIGUSR1)
	go func() {
		for range stackDumpCh {
			buf := make([]byte, 1024*1024)
			n := runtime.Stack(buf, true)
			fmt.Fprintf(os.Stderr, "\n=== GOROUTINE STACK DUMP ===\n%s\n=== END ===\n\n", buf[:n])
			pprof.Lookup("goroutine").WriteTo(os.Stderr, 2)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Printf("received shutdown signal")
	cancel()

	cleanupDone := make(chan struct{})
	go func() {
		if err := haptic.StopAndDelete(context.Background(), device); err != nil {
			logger.Errorf("error stopping device: %v", err)
		}
		close(cleanupDone)
	}()

	select {
	case <-cleanupDone:
	case <-time.After(1 * time.Second):
		logger.Printf("cleanup timeout, forcing exit")
	}

	// os.Exit bypasses the deferred StopAndDelete above; the goroutine just
	// above already ran it, matching the teacher's cmd/ublk-mem shutdown path.
	os.Exit(0)
}

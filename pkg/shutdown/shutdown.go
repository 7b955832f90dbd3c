package shutdown

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/godbcore/go-db-core/pkg/logx"
)

// WaitForShutdown waits for OS signals (SIGINT, SIGTERM) to gracefully shut down the application.
// It runs the cleanup code provided by the cleanupCallback function within a context with a specified timeout.
//
// Parameters:
//   - rootCtx: The parent context.
//   - timeoutMilli: The timeout duration in milliseconds to wait for the cleanup callback to complete.
//   - cleanupCallback: A function that contains the cleanup code to execute during shutdown, and that takes a timeoutCtx.
//
// Usage:
//
//	shutdown.WaitForShutdown(context.Background(), 5000, func(timeoutCtx context.Context) {
//	    // Cleanup code here
//	    fmt.Println("Cleaning up resources...")
//	})
func WaitForShutdown(rootCtx context.Context, timeoutMilli int64, cleanupCallback func(timeoutCtx context.Context)) {
	// Handle SIGINT and SIGTERM signals
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	// capture sigterm and other system call here
	signalCaptured := <-signals
	logx.GetLogger().LogDebug(rootCtx, fmt.Sprintf("Interrupt signal captured: %s", signalCaptured.String()))
	// Create a context with a timeout to give time to release resource
	timeoutCtx, cancel := context.WithTimeout(rootCtx, time.Duration(timeoutMilli)*time.Millisecond)

	defer cancel()
	cleanUp(timeoutCtx, cleanupCallback)
}

// cleanUp executes the provided cleanup callback function and logs the result.
// It waits for either the cleanup to complete or the context to be cancelled.
//
// Parameters:
//   - timeoutCtx: The context to use for the cleanup callback.
//   - cleanupCallback: A function that contains the cleanup code to execute.
func cleanUp(timeoutCtx context.Context, cleanupCallback func(timeoutCtx context.Context)) {
	logx.GetLogger().LogInfo(timeoutCtx, "Cleaning up all resources ....")

	// Channel used to receive the result from cleanup callback function
	ch := make(chan string, 1)

	go func() {
		defer close(ch)
		if cleanupCallback != nil {
			cleanupCallback(timeoutCtx)
		}
		ch <- "All resources cleaned up"
	}()

	select {
	case <-timeoutCtx.Done():
		logx.GetLogger().LogError(timeoutCtx, "Deadline exceeded during context cancellation", timeoutCtx.Err())
	case result := <-ch:
		logx.GetLogger().LogInfo(timeoutCtx, result)
	}
}

package console

import (
	"bufio"
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// ReadLines submits each line read from r until EOF.
func ReadLines(r io.Reader, submit SubmitFunc) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		submit(sc.Text())
	}
	return sc.Err()
}

// HandleSignals turns SIGINT and SIGTERM into operator commands: the first
// asks every process to stop, any later one kills them. It returns when ctx
// is done.
func HandleSignals(ctx context.Context, submit SubmitFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	forwardSignals(ctx, sigCh, submit)
}

func forwardSignals(ctx context.Context, sigCh <-chan os.Signal, submit SubmitFunc) {
	interrupts := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-sigCh:
			interrupts++
			if interrupts == 1 {
				submit(InterruptCommand)
			} else {
				submit(ForceInterruptCommand)
			}
		}
	}
}

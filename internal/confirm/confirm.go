package confirm

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// Confirmer presents a yes/no question to the operator and returns the
// explicit answer. Implementations block until an answer is available or the
// context is cancelled; cancellation is reported as a decline.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// Stdio implements Confirmer over a reader/writer pair, re-prompting until
// the operator gives an explicit yes or no.
type Stdio struct {
	In  io.Reader
	Out io.Writer
}

// NewStdio creates a Confirmer bound to the process stdin/stdout
func NewStdio() *Stdio {
	return &Stdio{In: os.Stdin, Out: os.Stdout}
}

// Confirm prints the prompt and blocks for a y/n answer. No default is
// assumed: anything other than an explicit yes or no re-prompts. A cancelled
// context declines.
func (s *Stdio) Confirm(ctx context.Context, prompt string) (bool, error) {
	type answer struct {
		value bool
		err   error
	}
	ch := make(chan answer, 1)

	// On cancellation the goroutine stays blocked in ReadString until the
	// process exits. Acceptable for a short-lived CLI; the buffered channel
	// keeps a late answer from blocking it forever.
	go func() {
		reader := bufio.NewReader(s.In)
		for {
			fmt.Fprintf(s.Out, "%s [y/n]: ", prompt)

			line, err := reader.ReadString('\n')
			if err != nil {
				ch <- answer{err: fmt.Errorf("failed to read answer: %w", err)}
				return
			}

			switch strings.ToLower(strings.TrimSpace(line)) {
			case "y", "yes":
				ch <- answer{value: true}
				return
			case "n", "no":
				ch <- answer{value: false}
				return
			}
			// Anything else falls through and re-prompts.
		}
	}()

	select {
	case <-ctx.Done():
		// Cancellation while waiting is equivalent to declining.
		return false, nil
	case a := <-ch:
		return a.value, a.err
	}
}

// Auto implements Confirmer with a fixed answer for unattended runs
type Auto struct {
	Answer bool
}

// Confirm returns the pre-configured answer without prompting
func (a Auto) Confirm(_ context.Context, _ string) (bool, error) {
	return a.Answer, nil
}

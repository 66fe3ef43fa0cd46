package types

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gosuri/uilive"
)

// TERMINAL PRINTER

// TerminalPrinter refreshes the status line of the running experiment
type TerminalPrinter struct {
	output    *ProgressOutput
	ctx       context.Context
	cancel    context.CancelFunc
	frequency time.Duration
	done      chan struct{}

	writer *uilive.Writer
}

func NewTerminalPrinter(ctx context.Context, out io.Writer, output *ProgressOutput, frequency time.Duration) *TerminalPrinter {
	printerCtx, cancel := context.WithCancel(ctx)
	writer := uilive.New()
	writer.Out = out

	return &TerminalPrinter{
		output:    output,
		ctx:       printerCtx,
		cancel:    cancel,
		frequency: frequency,
		done:      make(chan struct{}),

		writer: writer,
	}
}

func (p *TerminalPrinter) Start() {
	go func() {
		defer close(p.done)
		for {
			select {
			case <-p.ctx.Done():
				p.print()
				return
			case <-time.After(p.frequency):
				p.print()
			}
		}
	}()
}

// Stop prints the last status and waits for the printer to exit
func (p *TerminalPrinter) Stop() {
	p.cancel()
	<-p.done
}

func (p *TerminalPrinter) print() {
	s := p.output.Get()
	if s == "" {
		return
	}
	fmt.Fprint(p.writer, s+"\n")
	p.writer.Flush()
}

// PROGRESS OUTPUT

// used to update and print experiment outputs
type ProgressOutput struct {
	mu        sync.Mutex
	printable string
}

func NewProgressOutput() *ProgressOutput {
	return &ProgressOutput{}
}

// Set the output string (blocking)
func (p *ProgressOutput) Set(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.printable = s
}

// Try to set the output string (non-blocking)
func (p *ProgressOutput) TrySet(s string) bool {
	if p.mu.TryLock() {
		defer p.mu.Unlock()
		p.printable = s
		return true
	}
	return false
}

// Get the output string (blocking)
func (p *ProgressOutput) Get() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.printable
}

// Package display renders a live-refreshing status line for a
// long-running terminal operation, wrapping github.com/gosuri/uilive.
package display

import (
	"bytes"
	"io"
	"sync"
	"time"

	"github.com/gosuri/uilive"
)

// Displayer produces the next frame of status text. It returns false once
// there is nothing left to show, ending the Display's Run loop.
type Displayer interface {
	Display(io.Writer) bool
}

// Display repaints a terminal line at a fixed interval by polling a
// Displayer, used by the CLI's submit command to show an IN_PROGRESS
// request's elapsed time until it leaves that state.
type Display struct {
	live     *uilive.Writer
	interval time.Duration
	updater  Displayer
	buffer   *bytes.Buffer
	close    chan struct{}
	done     sync.WaitGroup
}

func New(updater Displayer, interval time.Duration) *Display {
	return &Display{
		live:     uilive.New(),
		interval: interval,
		updater:  updater,
		buffer:   bytes.NewBuffer(nil),
		close:    make(chan struct{}),
	}
}

func (d *Display) update() bool {
	d.buffer.Reset()
	cont := d.updater.Display(d.buffer)
	// Ignore any errors.
	_, _ = io.Copy(d.live, d.buffer)
	_ = d.live.Flush()
	return cont
}

// Run repaints until the Displayer reports it is done, then returns.
func (d *Display) Run() {
	d.done.Add(1)
	defer d.done.Done()
	for {
		if !d.update() {
			return
		}
		select {
		case <-d.close:
			return
		case <-time.After(d.interval):
		}
	}
}

// Bypass returns a writer that prints above the live line without
// disturbing it, for interleaved log lines.
func (d *Display) Bypass() io.Writer {
	return d.live.Bypass()
}

// Close stops Run early and repaints one final frame.
func (d *Display) Close() {
	select {
	case <-d.close:
	default:
		close(d.close)
	}
	d.done.Wait()
	d.update()
}

// Wait blocks until Run has returned.
func (d *Display) Wait() {
	d.done.Wait()
}

package cli

import (
	"io"
	"sync"

	"github.com/cheggaaa/pb"
)

// barProgress renders composition evaluation as a terminal progress bar.
type barProgress struct {
	prefix string
	out    io.Writer

	mu  sync.Mutex
	bar *pb.ProgressBar
}

func newBarProgress(prefix string, out io.Writer) *barProgress {
	return &barProgress{prefix: prefix, out: out}
}

func (p *barProgress) Start(total int) {
	bar := pb.New(total).Prefix(p.prefix)
	bar.Output = p.out
	bar.SetMaxWidth(100)
	bar.ShowCounters = true
	bar.ShowPercent = true
	bar.Start()
	p.mu.Lock()
	p.bar = bar
	p.mu.Unlock()
}

func (p *barProgress) Increment() {
	p.mu.Lock()
	bar := p.bar
	p.mu.Unlock()
	if bar != nil {
		bar.Increment()
	}
}

func (p *barProgress) Finish() {
	p.mu.Lock()
	bar := p.bar
	p.bar = nil
	p.mu.Unlock()
	if bar != nil {
		bar.Finish()
	}
}

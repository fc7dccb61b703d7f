// Package progress draws a single-line progress bar on a terminal.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"
	"golang.org/x/time/rate"
)

const defaultWidth = 80

// Bar is a progress bar safe for concurrent use. Redraws are limited to
// ten per second; the final update is always drawn.
type Bar struct {
	mu      sync.Mutex
	w       io.Writer
	label   string
	width   int
	enabled bool
	limiter *rate.Limiter
	last    int
}

// New returns a bar that draws on w when w is a terminal and stays silent
// otherwise.
func New(w io.Writer, label string) *Bar {
	enabled, width := false, defaultWidth
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		enabled = true
		if cols, _, err := term.GetSize(int(f.Fd())); err == nil && cols > 0 {
			width = cols
		}
	}
	return newBar(w, label, width, enabled, rate.Every(100*time.Millisecond))
}

func newBar(w io.Writer, label string, width int, enabled bool, every rate.Limit) *Bar {
	return &Bar{
		w:       w,
		label:   label,
		width:   width,
		enabled: enabled,
		limiter: rate.NewLimiter(every, 1),
		last:    -1,
	}
}

// Update records that done of total units are complete. Its signature
// matches mpexplain.ProgressFunc.
func (b *Bar) Update(done, total int) {
	if !b.enabled || total <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	// Workers report out of order; never move backwards.
	if done <= b.last {
		return
	}
	b.last = done
	if done < total && !b.limiter.Allow() {
		return
	}
	fmt.Fprint(b.w, "\r"+b.render(done, total))
	if done >= total {
		fmt.Fprintln(b.w)
	}
}

func (b *Bar) render(done, total int) string {
	pct := float64(done) / float64(total)
	suffix := fmt.Sprintf(" %3.0f%% %d/%d", pct*100, done, total)
	barWidth := b.width - len(b.label) - len(suffix) - 3
	if barWidth < 1 {
		return b.label + suffix
	}
	filled := int(pct * float64(barWidth))
	return b.label + " [" + strings.Repeat("=", filled) + strings.Repeat(" ", barWidth-filled) + "]" + suffix
}

package view

import (
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/viewport"
)

// TermViewport is a terminal window over rendered rows, measured in rows
// instead of pixels. The session fills and scrolls it from its own
// goroutine while the terminal program draws it, so access is locked.
type TermViewport struct {
	mx    *sync.Mutex
	model viewport.Model
	rows  []string
}

func NewTermViewport(width, height int) *TermViewport {
	return &TermViewport{
		mx:    &sync.Mutex{},
		model: viewport.New(max(width, 1), max(height, 1)),
	}
}

// SetRows replaces the content, keeping the scroll offset in range.
func (v *TermViewport) SetRows(rows []string) {
	v.mx.Lock()
	defer v.mx.Unlock()
	v.rows = rows
	v.model.SetContent(strings.Join(rows, "\n"))
}

func (v *TermViewport) Metrics() (scrollHeight, scrollTop, clientHeight int) {
	v.mx.Lock()
	defer v.mx.Unlock()
	return v.model.TotalLineCount(), v.model.YOffset, v.model.Height
}

func (v *TermViewport) ScrollToBottom() {
	v.mx.Lock()
	defer v.mx.Unlock()
	v.model.GotoBottom()
}

// ScrollBy moves the window by n rows; negative n scrolls back.
func (v *TermViewport) ScrollBy(n int) {
	v.mx.Lock()
	defer v.mx.Unlock()
	v.model.SetYOffset(v.model.YOffset + n)
}

// Resize follows the terminal size. A viewport that was at the bottom
// stays there.
func (v *TermViewport) Resize(width, height int) {
	v.mx.Lock()
	defer v.mx.Unlock()
	atBottom := v.model.AtBottom()
	v.model.Width = max(width, 1)
	v.model.Height = max(height, 1)
	if atBottom {
		v.model.GotoBottom()
	} else {
		v.model.SetYOffset(v.model.YOffset)
	}
}

// Visible returns the rows currently inside the window.
func (v *TermViewport) Visible() []string {
	v.mx.Lock()
	defer v.mx.Unlock()
	top := min(v.model.YOffset, len(v.rows))
	end := min(top+v.model.Height, len(v.rows))
	return v.rows[top:end]
}

// View draws the window for the terminal program.
func (v *TermViewport) View() string {
	v.mx.Lock()
	defer v.mx.Unlock()
	return v.model.View()
}

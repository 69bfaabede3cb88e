package wait

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dylan/wchflash/tui/shared"
)

func TestCountdownFinishes(t *testing.T) {
	var m tea.Model = New("Waiting for device to stabilize...", 300*time.Millisecond)
	if !strings.Contains(m.View(), "stabilize") {
		t.Errorf("view = %q", m.View())
	}

	ticks := 0
	for !m.(Model).Done() {
		m, _ = m.Update(shared.WaitTickMsg{})
		ticks++
		if ticks > 10 {
			t.Fatal("countdown never finished")
		}
	}
	if ticks != 3 {
		t.Errorf("ticks = %d, want 3", ticks)
	}
	if m.(Model).Percent() != 1 {
		t.Errorf("Percent() = %v", m.(Model).Percent())
	}
}

func TestCtrlCAbortsCountdown(t *testing.T) {
	next, _ := New("x", time.Second).Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if !next.(Model).aborted {
		t.Error("ctrl+c should abort")
	}
}

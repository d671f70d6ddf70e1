// Package debugger provides an interactive terminal UI for single-
// stepping the emulated machine and inspecting CPU/memory state.
package debugger

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/davecgh/go-spew/spew"

	"gones/internal/bus"
)

type model struct {
	bus    *bus.Bus
	offset uint16 // PC at construction; pageTable does not read it and shows fixed rows
	prevPC uint16
}

// Init starts the model with no command; the machine is expected to
// already be reset and have a cartridge loaded by the caller.
func (m model) Init() tea.Cmd {
	return nil
}

// Update advances the machine by one instruction per "j"/space press.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ", "j":
			m.prevPC = m.bus.CPU.PC
			m.bus.StepInstruction()
		case "r":
			m.bus.Reset()
			m.prevPC = m.bus.CPU.PC
		}
	}
	return m, nil
}

// renderPage renders one 16-byte row of memory, highlighting the byte at
// the program counter.
func (m model) renderPage(start uint16) string {
	s := fmt.Sprintf("%04x | ", start)
	for i := uint16(0); i < 16; i++ {
		addr := start + i
		b := m.bus.Peek(addr)
		if addr == m.bus.CPU.PC {
			s += fmt.Sprintf("[%02x] ", b)
		} else {
			s += fmt.Sprintf(" %02x  ", b)
		}
	}
	return s
}

func (m model) status() string {
	p := m.bus.CPU.P
	var flags string
	for _, bit := range []uint8{0x80, 0x40, 0x20, 0x10, 0x08, 0x04, 0x02, 0x01} {
		if p&bit != 0 {
			flags += "/ "
		} else {
			flags += "  "
		}
	}
	return fmt.Sprintf(`
PC: %04x (%04x)
 A: %02x
 X: %02x
 Y: %02x
SP: %02x
 P: %02x
N V _ B D I Z C
`,
		m.bus.CPU.PC,
		m.prevPC,
		m.bus.CPU.A,
		m.bus.CPU.X,
		m.bus.CPU.Y,
		m.bus.CPU.SP,
		p,
	) + flags
}

func (m model) pageTable() string {
	header := "page | "
	for b := 0; b < 16; b++ {
		header += fmt.Sprintf("  %01x  ", b)
	}

	rows := []string{header}
	pc := m.bus.CPU.PC &^ 0x000F
	offsets := []uint16{0, 0x0200, 0x8000, pc}
	for _, base := range offsets {
		rows = append(rows, m.renderPage(base))
	}
	return strings.Join(rows, "\n")
}

// View renders the page table, register/flag status, and a spew dump of
// the whole PPU struct.
func (m model) View() string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		lipgloss.JoinHorizontal(
			lipgloss.Top,
			m.pageTable(),
			m.status(),
		),
		"",
		spew.Sdump(m.bus.PPU),
		"",
		"space/j: step instruction | r: reset | q: quit",
	)
}

// Run starts the interactive TUI against an already-constructed Bus
// with a cartridge loaded. It blocks until the user quits.
func Run(b *bus.Bus) error {
	_, err := tea.NewProgram(model{bus: b, offset: b.CPU.PC, prevPC: b.CPU.PC}).Run()
	return err
}

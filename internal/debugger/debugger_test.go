package debugger

import (
	"bytes"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gones/internal/bus"
	"gones/internal/cartridge"
)

func keyMsg(s string) tea.KeyMsg {
	if s == " " {
		return tea.KeyMsg{Type: tea.KeySpace}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func buildINES(prgBanks, chrBanks int) []byte {
	var buf bytes.Buffer
	buf.WriteString("NES\x1A")
	buf.WriteByte(uint8(prgBanks))
	buf.WriteByte(uint8(chrBanks))
	buf.WriteByte(0x00)
	buf.WriteByte(0x00)
	buf.Write(make([]byte, 8))
	buf.Write(make([]byte, prgBanks*16384))
	if chrBanks > 0 {
		buf.Write(make([]byte, chrBanks*8192))
	}
	return buf.Bytes()
}

func newTestDebuggerModel(t *testing.T) model {
	t.Helper()
	cart, err := cartridge.LoadFromReader(bytes.NewReader(buildINES(2, 1)))
	require.NoError(t, err)

	b := bus.New(nil)
	b.LoadCartridge(cart)
	b.Reset()
	return model{bus: b, offset: b.CPU.PC, prevPC: b.CPU.PC}
}

func TestRenderPageHighlightsProgramCounter(t *testing.T) {
	m := newTestDebuggerModel(t)
	row := m.renderPage(m.bus.CPU.PC &^ 0x000F)
	assert.Contains(t, row, "[")
}

func TestStatusIncludesRegisters(t *testing.T) {
	m := newTestDebuggerModel(t)
	s := m.status()
	assert.True(t, strings.Contains(s, "PC:"))
	assert.True(t, strings.Contains(s, "SP:"))
}

func TestUpdateStepsOneInstructionOnSpace(t *testing.T) {
	m := newTestDebuggerModel(t)
	before := m.bus.CPU.PC
	updated, _ := m.Update(keyMsg(" "))
	next := updated.(model)
	assert.True(t, next.bus.CPU.AtInstructionBoundary())
	_ = before
}

func TestPageTableJoinsMultipleRows(t *testing.T) {
	m := newTestDebuggerModel(t)
	table := m.pageTable()
	assert.Equal(t, 5, len(strings.Split(table, "\n")))
}

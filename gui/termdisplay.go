package gui

import (
	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"
	"github.com/picolight/provd/wifi"
)

const (
	displayWidth  = 60
	displayHeight = 16
)

// TermDisplay renders the GUI in a terminal. It doubles as the development
// stand-in for the device's physical screen.
type TermDisplay struct {
	text *widgets.Paragraph
	list *widgets.List

	lines    map[int]string
	networks bool
}

// Compile time check for interface compatibility
var _ Display = (*TermDisplay)(nil)

func NewTermDisplay() (*TermDisplay, error) {
	err := ui.Init()
	if err != nil {
		return nil, err
	}

	text := widgets.NewParagraph()
	text.Border = true
	text.SetRect(0, 0, displayWidth, 5)

	list := widgets.NewList()
	list.Border = true
	list.SelectedRowStyle = ui.NewStyle(ui.ColorBlack, ui.ColorWhite)
	list.SetRect(0, 0, displayWidth, displayHeight)

	return &TermDisplay{
		text:  text,
		list:  list,
		lines: make(map[int]string),
	}, nil
}

func (d *TermDisplay) Close() {
	ui.Close()
}

func (d *TermDisplay) Clear() {
	d.lines = make(map[int]string)
	d.networks = false

	ui.Clear()
}

func (d *TermDisplay) ShowText(line int, text string) {
	d.lines[line] = text
}

func (d *TermDisplay) ShowNetworks(results []wifi.ScanResult, selected int) {
	rows := make([]string, 0, len(results))
	for _, result := range results {
		rows = append(rows, FormatNetwork(result))
	}

	d.list.Title = "Wireless Networks"
	d.list.Rows = rows
	d.list.SelectedRow = selected
	d.networks = true
}

func (d *TermDisplay) ShowPasswordEntry(ssid wifi.SSID, masked string) {
	d.lines[0] = "SSID: " + ssid.String()
	d.lines[1] = "Password: " + masked + "_"
}

func (d *TermDisplay) Update() {
	if d.networks {
		ui.Render(d.list)
		return
	}

	text := ""
	for line := 0; line < 4; line++ {
		if content, ok := d.lines[line]; ok {
			text += content
		}
		text += "\n"
	}

	d.text.Text = text
	ui.Render(d.text)
}

// Pump translates terminal key events into GUI inputs until the event
// stream closes.
func (d *TermDisplay) Pump(g *GUI) {
	for event := range ui.PollEvents() {
		if event.Type != ui.KeyboardEvent {
			continue
		}

		switch event.ID {
		case "<Up>":
			g.HandleInput(InputUp, 0)
		case "<Down>":
			g.HandleInput(InputDown, 0)
		case "<Enter>":
			g.HandleInput(InputSelect, 0)
		case "<Backspace>", "<Escape>":
			g.HandleInput(InputBack, 0)
		case "<Space>":
			g.HandleInput(InputChar, ' ')
		default:
			// termui encodes special keys as <...>, everything else is
			// a literal character
			if len(event.ID) == 1 {
				g.HandleInput(InputChar, event.ID[0])
			}
		}
	}
}

package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/damoang/image-organizer/internal/client"
)

const (
	fieldPath = iota
	fieldTitle
	fieldAlt
	fieldCaption
	fieldDescription
	fieldKey
)

var fieldLabels = []string{"File", "Title", "Alt", "Caption", "Description", "Upload key"}

// uploadForm terminal rendition of an instance's upload form
type uploadForm struct {
	inputs []textinput.Model
	focus  int
}

func newUploadForm(settings *client.UploadSettings) uploadForm {
	n := fieldKey
	if settings != nil && settings.KeyRequired {
		n = fieldKey + 1
	}
	f := uploadForm{inputs: make([]textinput.Model, n)}
	for i := range f.inputs {
		in := textinput.New()
		in.Prompt = ""
		in.CharLimit = 255
		switch i {
		case fieldPath:
			in.Placeholder = "/path/to/image.jpg"
			in.CharLimit = 4096
		case fieldCaption:
			in.CharLimit = 500
		case fieldDescription:
			in.CharLimit = 5000
		case fieldKey:
			in.EchoMode = textinput.EchoPassword
			in.EchoCharacter = '•'
		}
		f.inputs[i] = in
	}
	return f
}

func (f *uploadForm) focusField(i int) tea.Cmd {
	for j := range f.inputs {
		f.inputs[j].Blur()
	}
	f.focus = (i + len(f.inputs)) % len(f.inputs)
	return f.inputs[f.focus].Focus()
}

func (f *uploadForm) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}

func (f *uploadForm) value(i int) string {
	if i >= len(f.inputs) {
		return ""
	}
	return f.inputs[i].Value()
}

// draft reads the chosen file; an empty path yields a draft without file
func (f *uploadForm) draft() (client.UploadDraft, error) {
	d := client.UploadDraft{
		Title:       f.value(fieldTitle),
		Alt:         f.value(fieldAlt),
		Caption:     f.value(fieldCaption),
		Description: f.value(fieldDescription),
		UploadKey:   f.value(fieldKey),
	}
	path := strings.TrimSpace(f.value(fieldPath))
	if path == "" {
		return d, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return d, fmt.Errorf("read %s: %w", path, err)
	}
	d.Filename = filepath.Base(path)
	d.File = data
	return d, nil
}

func (f *uploadForm) reset() {
	for i := range f.inputs {
		f.inputs[i].Reset()
	}
}

func (f uploadForm) view() string {
	var b strings.Builder
	for i, in := range f.inputs {
		label := fmt.Sprintf("%-12s", fieldLabels[i])
		if i == f.focus {
			label = cursorStyle.Render(label)
		} else {
			label = captionStyle.Render(label)
		}
		b.WriteString(label + " " + in.View() + "\n")
	}
	return b.String()
}

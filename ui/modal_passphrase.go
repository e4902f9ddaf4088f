package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"aster/config"
)

// PassphraseModal prompts for an SSH key passphrase before the main UI starts.
// Shown when the credential store's SSH key is passphrase protected.
type PassphraseModal struct {
	keyPath   string
	input     textinput.Model
	err       string
	width     int
	height    int
	cancelled bool
}

func NewPassphraseModal(keyPath string) PassphraseModal {
	input := NewPassphraseInput("Enter passphrase")
	input.Focus()

	return PassphraseModal{
		keyPath: keyPath,
		input:   input,
	}
}

func (m PassphraseModal) Init() tea.Cmd {
	return textinput.Blink
}

func (m PassphraseModal) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.cancelled = true
			return m, tea.Quit

		case "enter":
			if m.input.Value() == "" {
				m.err = "Passphrase cannot be empty"
				return m, nil
			}
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m PassphraseModal) View() string {
	return RenderPassphraseModal(
		"SSH Key Passphrase Required",
		m.keyPath,
		m.input,
		m.err,
		m.width,
		m.height,
	)
}

// GetPassphrase returns the entered passphrase (empty if cancelled)
func (m PassphraseModal) GetPassphrase() string {
	if m.cancelled {
		return ""
	}
	return m.input.Value()
}

// IsCancelled returns true if the user pressed Esc
func (m PassphraseModal) IsCancelled() bool {
	return m.cancelled
}

// NewPassphraseInput creates a configured textinput for passphrase entry
func NewPassphraseInput(placeholder string) textinput.Model {
	input := textinput.New()
	input.Placeholder = placeholder
	input.Width = 50
	input.CharLimit = 200
	input.EchoMode = textinput.EchoPassword
	input.EchoCharacter = '•'
	return input
}

// RenderPassphraseModal renders a modal prompting for an SSH key passphrase
func RenderPassphraseModal(title, keyPath string, passphraseInput textinput.Model, errorMsg string, width, height int) string {
	if width < 20 || height < 10 {
		return "Terminal too small"
	}

	modalWidth := 70
	if width < modalWidth+10 {
		modalWidth = width - 10
		if modalWidth < 10 {
			modalWidth = 10
		}
	}

	var messageLines []string
	messageLines = append(messageLines, strings.Repeat(" ", modalWidth))

	msg1 := "The SSH key is encrypted with a passphrase."
	msg2 := fmt.Sprintf("Key: %s", keyPath)
	msg3 := "Please enter the passphrase:"

	messageLines = append(messageLines, centerTextLine(msg1, modalWidth))
	messageLines = append(messageLines, centerTextLine(msg2, modalWidth))
	messageLines = append(messageLines, centerTextLine(msg3, modalWidth))
	messageLines = append(messageLines, strings.Repeat(" ", modalWidth))

	messageLines = append(messageLines, centerTextLine(passphraseInput.View(), modalWidth))
	messageLines = append(messageLines, strings.Repeat(" ", modalWidth))

	if errorMsg != "" {
		errLine := "⚠ " + errorMsg
		styledErr := lipgloss.NewStyle().
			Foreground(dangerColor).
			Bold(true).
			Render(errLine)
		messageLines = append(messageLines, centerTextLine(styledErr, modalWidth))
		messageLines = append(messageLines, strings.Repeat(" ", modalWidth))
	}

	footer := "Enter Continue  |  Esc Cancel"

	return RenderThreeSectionModal(
		title,
		messageLines,
		footer,
		ModalTypeInfo,
		modalWidth,
		width,
		height,
	)
}

// centerTextLine centers a line of text within a given width
func centerTextLine(text string, width int) string {
	textWidth := lipgloss.Width(text)
	if textWidth >= width {
		return text
	}

	leftPad := (width - textWidth) / 2
	rightPad := width - textWidth - leftPad
	return strings.Repeat(" ", leftPad) + text + strings.Repeat(" ", rightPad)
}

// LoadCredentialsWithPassphrase sets the passphrase on the credential store
// and attempts to load credentials with it. Returns an error when the
// passphrase is wrong.
func LoadCredentialsWithPassphrase(cfg *config.Config, passphrase string) error {
	if cfg == nil || cfg.CredentialStore == nil {
		return fmt.Errorf("invalid config - cannot set passphrase")
	}

	cfg.CredentialStore.SetPassphrase(passphrase)

	if err := cfg.CredentialStore.Load(cfg.DataDir()); err != nil {
		if config.DebugLog != nil {
			config.DebugLog.Printf("Failed to load credentials with passphrase: %v", err)
		}
		return err
	}

	return nil
}

package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"

	"aster/storage"
)

func renderConversationManager(conversations []storage.ConversationMetadata, selectedIdx int, currentConversationID string, renameMode bool, renameInput textinput.Model, exportMode bool, exportInput textinput.Model, exporting bool, exportCleaningUp bool, exportSpinner spinner.Model, exportSuccess string, importPicker FilePickerState, importSuccess *storage.Conversation, confirmDelete *storage.ConversationMetadata, filterMode bool, filterInput textinput.Model, filteredConversations []storage.ConversationMetadata, width, height int) string {
	modalWidth := width - 10
	if modalWidth > 110 {
		modalWidth = 110
	}
	modalHeight := height - 6

	// Show delete confirmation if set
	if confirmDelete != nil {
		warningText := lipgloss.NewStyle().Foreground(dangerColor).Render("This action cannot be undone.")
		return RenderConfirmationModal(ConfirmationState{
			Active:  true,
			Title:   "⚠ Delete Conversation",
			Message: fmt.Sprintf("Are you sure you want to delete:\n\n\"%s\"\n\n%s", confirmDelete.Name, warningText),
		}, width, height)
	}

	// Show import modal if in import mode
	if importPicker.Active {
		return RenderFilePickerModal(importPicker, width, height)
	}

	// Show export modal if in export mode
	if exportMode {
		return renderExportModal(exportInput, exporting, exportCleaningUp, exportSpinner, exportSuccess, width, height)
	}

	// Title section (no borders)
	titleSection := lipgloss.NewStyle().
		Bold(true).
		Align(lipgloss.Center).
		Width(modalWidth).
		Render("Conversation Manager")

	// Header: show filter input or count
	var header string
	if filterMode {
		header = filterInput.View()
	} else {
		displayList := conversations
		if len(filteredConversations) > 0 {
			displayList = filteredConversations
		}
		if len(conversations) == len(displayList) {
			header = fmt.Sprintf("%d conversations", len(conversations))
		} else {
			header = fmt.Sprintf("%d of %d conversations", len(displayList), len(conversations))
		}
	}

	headerSection := lipgloss.NewStyle().
		Foreground(dimColor).
		Align(lipgloss.Center).
		Width(modalWidth).
		BorderTop(true).
		BorderBottom(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(dimColor).
		Render(header)

	// Determine which list to display
	displayList := conversations
	if filterMode && len(filteredConversations) > 0 {
		displayList = filteredConversations
	}

	// Conversation list
	var listLines []string
	maxLines := modalHeight - 8 // Reserve space for title, borders, header, footer

	if len(displayList) == 0 {
		emptyMsg := ""
		if filterMode {
			emptyMsg = "No matches found"
		} else {
			emptyMsg = "No conversations yet. Start chatting to create one!"
		}
		emptyMsgStyled := lipgloss.NewStyle().
			Foreground(dimColor).
			Italic(true).
			Align(lipgloss.Center).
			Width(modalWidth).
			Render(emptyMsg)
		listLines = append(listLines, emptyMsgStyled)
	} else {
		startIdx := 0
		endIdx := len(displayList)

		// Scroll if needed
		if len(displayList) > maxLines {
			if selectedIdx < maxLines/2 {
				endIdx = maxLines
			} else if selectedIdx >= len(displayList)-maxLines/2 {
				startIdx = len(displayList) - maxLines
			} else {
				startIdx = selectedIdx - maxLines/2
				endIdx = startIdx + maxLines
			}
		}

		for i := startIdx; i < endIdx && i < len(displayList); i++ {
			conv := displayList[i]

			indicator := "  "
			if i == selectedIdx {
				indicator = "▶ "
			}

			// Conversation name (truncate if needed)
			name := conv.Name
			maxNameWidth := modalWidth - 40 // Reserve space for metadata + padding

			// Show textinput if in rename mode for this conversation
			var nameDisplay string
			var hasBullet bool
			if renameMode && i == selectedIdx {
				styledInput := lipgloss.NewStyle().
					Foreground(accentColor).
					Bold(true).
					Render(renameInput.View())
				nameDisplay = styledInput
			} else {
				if len(name) > maxNameWidth {
					name = name[:maxNameWidth-3] + "..."
				}
				nameDisplay = name

				// Bullet marks a custom system prompt, added after spacing math
				if conv.SystemPrompt != "" {
					hasBullet = true
				}
			}

			hasCurrentMarker := false
			if conv.ID == currentConversationID && !renameMode {
				hasCurrentMarker = true
			}

			// Message count
			msgCount := fmt.Sprintf("%d msgs", conv.MessageCount)
			if conv.MessageCount == 1 {
				msgCount = "1 msg"
			}

			// Model (truncate)
			model := conv.Model
			if strings.Contains(model, ":") {
				parts := strings.Split(model, ":")
				model = parts[0]
			}
			if len(model) > 10 {
				model = model[:10]
			}

			timeAgo := formatTimeAgo(conv.UpdatedAt)

			// Style the name display individually BEFORE building leftSide
			nameStyled := nameDisplay
			if i == selectedIdx {
				nameStyled = lipgloss.NewStyle().Foreground(successColor).Bold(true).Render(nameDisplay)
			} else if conv.ID == currentConversationID {
				nameStyled = lipgloss.NewStyle().Foreground(accentColor).Bold(true).Render(nameDisplay)
			}

			leftSide := fmt.Sprintf("%s%s", indicator, nameStyled)

			rightSide := fmt.Sprintf("%s  %10s  %8s", msgCount, model, timeAgo)

			// Spacing uses VISUAL width, not the ANSI-styled string length
			leftVisualWidth := len(indicator) + len(nameDisplay)
			spacing := modalWidth - 4 - leftVisualWidth - len(rightSide)

			if hasCurrentMarker {
				spacing -= 10 // " (current)" = 10 visible characters
			}
			if hasBullet {
				spacing -= 2 // " •" = 2 visible characters
			}

			if spacing < 2 {
				spacing = 2
			}

			// Add styled markers after spacing calculation
			if hasCurrentMarker {
				markerColor := accentColor
				if i == selectedIdx {
					markerColor = successColor
				}
				currentStyled := lipgloss.NewStyle().Foreground(markerColor).Render("(current)")
				leftSide = leftSide + " " + currentStyled
			}
			if hasBullet {
				bulletStyled := lipgloss.NewStyle().Foreground(accentColor).Render("•")
				leftSide = leftSide + " " + bulletStyled
			}

			rightSideStyled := rightSide
			if i == selectedIdx {
				rightSideStyled = lipgloss.NewStyle().Foreground(successColor).Bold(true).Render(rightSide)
			} else if conv.ID == currentConversationID {
				rightSideStyled = lipgloss.NewStyle().Foreground(accentColor).Bold(true).Render(rightSide)
			}

			styledLine := fmt.Sprintf("  %s%s%s  ", leftSide, strings.Repeat(" ", spacing), rightSideStyled)

			paddedLine := lipgloss.NewStyle().
				Width(modalWidth).
				Render(styledLine)

			listLines = append(listLines, paddedLine)
		}
	}

	// Add empty line before and after list
	emptyLine := strings.Repeat(" ", modalWidth)
	listLines = append([]string{emptyLine}, listLines...)
	listLines = append(listLines, emptyLine)

	// Footer
	var footerText string
	if renameMode {
		footerText = FormatFooter("Alt+U", "Clear", "Enter", "Save", "Esc", "Cancel")
	} else if filterMode {
		footerText = FormatFooter("Type", "to filter", "Alt+J/K", "Navigate", "Enter", "Load", "Esc", "Cancel")
	} else {
		footerText = FormatFooter("/", "Filter", "j/k", "Navigate", "Enter", "Load", "e", "Edit", "i", "Import", "n", "New", "r", "Rename", "x", "Export", "d", "Delete", "Esc", "Exit")
	}
	footerSection := lipgloss.NewStyle().
		Align(lipgloss.Center).
		Width(modalWidth).
		BorderTop(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(dimColor).
		Render(footerText)

	var sections []string
	sections = append(sections, titleSection)
	sections = append(sections, headerSection)
	sections = append(sections, listLines...)
	sections = append(sections, footerSection)

	content := strings.Join(sections, "\n")

	modalStyle := lipgloss.NewStyle().
		Width(width).
		Height(height).
		Align(lipgloss.Center, lipgloss.Center)

	return modalStyle.Render(content)
}

// formatTimeAgo formats a time as a relative string (e.g., "2h ago", "3d ago")
func formatTimeAgo(t time.Time) string {
	duration := time.Since(t)

	if duration < time.Minute {
		return "just now"
	} else if duration < time.Hour {
		mins := int(duration.Minutes())
		return fmt.Sprintf("%dm ago", mins)
	} else if duration < 24*time.Hour {
		hours := int(duration.Hours())
		return fmt.Sprintf("%dh ago", hours)
	} else if duration < 7*24*time.Hour {
		days := int(duration.Hours() / 24)
		return fmt.Sprintf("%dd ago", days)
	} else if duration < 30*24*time.Hour {
		weeks := int(duration.Hours() / 24 / 7)
		return fmt.Sprintf("%dw ago", weeks)
	} else {
		months := int(duration.Hours() / 24 / 30)
		return fmt.Sprintf("%dmo ago", months)
	}
}

func renderExportModal(exportInput textinput.Model, exporting bool, cleaningUp bool, exportSpinner spinner.Model, successPath string, width, height int) string {
	if successPath != "" {
		return renderExportSuccess(successPath, "Export", width, height)
	}

	modalWidth := width - 10
	if modalWidth > 80 {
		modalWidth = 80
	}

	// State 3: Cleaning up (BorderTop/BorderBottom pattern like import cleanup)
	if cleaningUp {
		var contentLines []string
		contentLines = append(contentLines, strings.Repeat(" ", modalWidth))

		cleanupLine := fmt.Sprintf("%s Cleaning up...", exportSpinner.View())
		styledCleanup := lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")).
			Bold(true).
			Align(lipgloss.Center).
			Width(modalWidth).
			Render(cleanupLine)

		contentLines = append(contentLines, styledCleanup)
		contentLines = append(contentLines, strings.Repeat(" ", modalWidth))

		content := lipgloss.NewStyle().
			BorderTop(true).
			BorderBottom(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(dimColor).
			Width(modalWidth).
			Render(strings.Join(contentLines, "\n"))

		return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
	}

	// State 2: Processing export (borderless 3-section)
	if exporting {
		title := "Processing Export"

		var messageLines []string
		messageLines = append(messageLines, strings.Repeat(" ", modalWidth))

		exportLine := fmt.Sprintf("%s Exporting conversation...", exportSpinner.View())
		styledExport := lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")).
			Bold(true).
			Align(lipgloss.Center).
			Width(modalWidth).
			Render(exportLine)

		messageLines = append(messageLines, styledExport)
		messageLines = append(messageLines, strings.Repeat(" ", modalWidth))

		footer := "Press Esc to cancel"

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

	// State 1: Input mode (borderless 3-section)
	title := "Export Conversation to JSON"

	var messageLines []string
	messageLines = append(messageLines, strings.Repeat(" ", modalWidth))

	promptStyle := lipgloss.NewStyle().
		Width(modalWidth).
		Align(lipgloss.Left)

	messageLines = append(messageLines, promptStyle.Render("  Export to:"))

	inputLine := lipgloss.NewStyle().
		Foreground(accentColor).
		Bold(true).
		Width(modalWidth).
		Align(lipgloss.Left).
		Render("  " + exportInput.View())

	messageLines = append(messageLines, inputLine)
	messageLines = append(messageLines, strings.Repeat(" ", modalWidth))

	footer := "Esc Cancel  Enter Export  Alt+U Clear"

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

func renderExportSuccess(exportPath string, operationType string, width, height int) string {
	modalWidth := 70
	if width < modalWidth+10 {
		modalWidth = width - 10
	}

	successTitle := "✓ " + operationType + " Successful"

	var messageLines []string
	messageLines = append(messageLines, strings.Repeat(" ", modalWidth))

	pathMsg := fmt.Sprintf("Exported to:\n%s", exportPath)
	wrappedMsg := wordWrap(pathMsg, modalWidth-4)
	messageStyle := lipgloss.NewStyle().
		Width(modalWidth).
		Foreground(accentColor).
		Align(lipgloss.Left)

	for _, line := range strings.Split(wrappedMsg, "\n") {
		styledLine := messageStyle.Render("  " + line)
		messageLines = append(messageLines, styledLine)
	}

	messageLines = append(messageLines, strings.Repeat(" ", modalWidth))

	footer := "Press Enter to acknowledge"

	// Success title uses successColor, which the shared helper does not expose
	var titleColor lipgloss.Color = successColor

	titleVisualWidth := lipgloss.Width(successTitle)
	leftPad := (modalWidth - titleVisualWidth) / 2
	if leftPad < 0 {
		leftPad = 0
	}
	rightPad := modalWidth - titleVisualWidth - leftPad
	centeredTitle := strings.Repeat(" ", leftPad) + successTitle + strings.Repeat(" ", rightPad)

	titleSection := lipgloss.NewStyle().
		Bold(true).
		Foreground(titleColor).
		Render(centeredTitle)

	messageSection := lipgloss.NewStyle().
		BorderTop(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(dimColor).
		Width(modalWidth).
		Render(strings.Join(messageLines, "\n"))

	footerSection := lipgloss.NewStyle().
		Foreground(dimColor).
		Align(lipgloss.Center).
		Width(modalWidth).
		BorderTop(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(dimColor).
		Render(footer)

	sections := []string{titleSection, messageSection, footerSection}
	content := strings.Join(sections, "\n")

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}

func renderImportSuccess(conv *storage.Conversation, width, height int) string {
	modalWidth := 70
	if width < modalWidth+10 {
		modalWidth = width - 10
	}

	titleStyled := lipgloss.NewStyle().
		Bold(true).
		Foreground(successColor).
		Align(lipgloss.Center).
		Width(modalWidth).
		Render("✓ Import Successful")

	message := fmt.Sprintf("Imported: %s\nMessages: %d\nModel: %s",
		conv.Name,
		len(conv.Messages),
		conv.Model)

	wrappedMsg := wordWrap(message, modalWidth-4)
	messageStyled := lipgloss.NewStyle().
		Width(modalWidth - 4).
		Foreground(accentColor).
		Render(wrappedMsg)

	footer := lipgloss.NewStyle().
		Foreground(dimColor).
		Align(lipgloss.Center).
		Width(modalWidth - 2).
		Render("Press Enter to acknowledge")

	borderStyle := lipgloss.NewStyle().
		Foreground(dimColor).
		Width(modalWidth)

	topBorder := borderStyle.Render("┌" + strings.Repeat("─", modalWidth-2) + "┐")
	middleBorder := borderStyle.Render("├" + strings.Repeat("─", modalWidth-2) + "┤")
	bottomBorder := borderStyle.Render("└" + strings.Repeat("─", modalWidth-2) + "┘")
	emptyLine := "│" + strings.Repeat(" ", modalWidth-2) + "│"

	var content strings.Builder
	content.WriteString(topBorder + "\n")
	content.WriteString("│" + titleStyled + "│\n")
	content.WriteString(middleBorder + "\n")
	content.WriteString(emptyLine + "\n")

	for _, line := range strings.Split(messageStyled, "\n") {
		paddedLine := lipgloss.NewStyle().
			Width(modalWidth - 2).
			Render("  " + line)
		content.WriteString("│" + paddedLine + "│\n")
	}

	content.WriteString(emptyLine + "\n")
	content.WriteString(middleBorder + "\n")
	content.WriteString("│" + footer + "│\n")
	content.WriteString(bottomBorder)

	return lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		content.String(),
	)
}

func renderConversationModal(title string, nameInput textinput.Model, promptInput textarea.Model, focusedField int, width, height int, availableTools []string, allowedTools []string, selectedToolIdx int) string {
	modalWidth := width - 10
	if modalWidth > 80 {
		modalWidth = 80
	}

	// 1. Title section - centered, bold, accentColor
	titleSection := lipgloss.NewStyle().
		Bold(true).
		Foreground(accentColor).
		Align(lipgloss.Center).
		Width(modalWidth).
		Render(title)

	// 2. Message section - build content lines
	var messageLines []string
	messageLines = append(messageLines, strings.Repeat(" ", modalWidth))

	// Conversation Name field
	nameLabel := "Conversation Name:"
	nameLabelStyle := lipgloss.NewStyle().Width(modalWidth)
	if focusedField == 0 {
		nameLabelStyle = nameLabelStyle.Foreground(successColor).Bold(true)
	}
	messageLines = append(messageLines, nameLabelStyle.Render("  "+nameLabel))

	nameStyle := lipgloss.NewStyle().Width(modalWidth)
	if focusedField == 0 {
		nameStyle = nameStyle.Foreground(accentColor).Bold(true)
	}
	messageLines = append(messageLines, nameStyle.Render("  "+nameInput.View()))
	messageLines = append(messageLines, strings.Repeat(" ", modalWidth))

	// System Prompt field
	promptLabel := "System Prompt:"
	promptLabelStyle := lipgloss.NewStyle().Width(modalWidth)
	if focusedField == 1 {
		promptLabelStyle = promptLabelStyle.Foreground(successColor).Bold(true)
	}
	messageLines = append(messageLines, promptLabelStyle.Render("  "+promptLabel))

	promptStyle := lipgloss.NewStyle().Width(modalWidth)
	if focusedField == 1 {
		promptStyle = promptStyle.Foreground(accentColor).Bold(true)
	}
	promptView := promptStyle.Render(promptInput.View())
	for _, line := range strings.Split(promptView, "\n") {
		messageLines = append(messageLines, lipgloss.NewStyle().Width(modalWidth).Render("  "+line))
	}

	// Tool whitelist section, only shown when the caller passes tools (edit mode)
	if len(availableTools) > 0 {
		messageLines = append(messageLines, strings.Repeat(" ", modalWidth))

		toolHeaderLabel := "Always-Allowed Tools:"
		toolHeaderStyle := lipgloss.NewStyle().Width(modalWidth)
		if focusedField == 2 {
			toolHeaderStyle = toolHeaderStyle.Foreground(successColor).Bold(true)
		}
		messageLines = append(messageLines, toolHeaderStyle.Render("  "+toolHeaderLabel))
		messageLines = append(messageLines, strings.Repeat(" ", modalWidth))

		for i, toolName := range availableTools {
			isAllowed := false
			for _, allowed := range allowedTools {
				if allowed == toolName {
					isAllowed = true
					break
				}
			}

			indicator := "  "
			if i == selectedToolIdx {
				indicator = "▶ "
			}

			isSelected := i == selectedToolIdx && focusedField == 2

			var checkboxStyled, statusStyled, nameStyled string
			if isSelected {
				if isAllowed {
					checkboxStyled = lipgloss.NewStyle().Foreground(successColor).Render("✓")
					statusStyled = lipgloss.NewStyle().Foreground(successColor).Render("[Allowed]")
				} else {
					checkboxStyled = lipgloss.NewStyle().Foreground(successColor).Render("✗")
					statusStyled = lipgloss.NewStyle().Foreground(successColor).Render("[Ask]")
				}
				nameStyled = lipgloss.NewStyle().Foreground(successColor).Render(toolName)
			} else {
				if isAllowed {
					checkboxStyled = lipgloss.NewStyle().Foreground(successColor).Render("✓")
					statusStyled = lipgloss.NewStyle().Foreground(successColor).Render("[Allowed]")
				} else {
					checkboxStyled = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Render("✗")
					statusStyled = lipgloss.NewStyle().Foreground(dimColor).Render("[Ask]")
				}
				nameStyled = toolName
			}

			// Format: "    ▶ ✓ read_file [Allowed]"
			toolLine := fmt.Sprintf("    %s%s %s %s", indicator, checkboxStyled, nameStyled, statusStyled)

			lineStyle := lipgloss.NewStyle().Width(modalWidth)
			if isSelected {
				lineStyle = lineStyle.Bold(true)
			}
			messageLines = append(messageLines, lineStyle.Render(toolLine))
		}
	}

	messageLines = append(messageLines, strings.Repeat(" ", modalWidth))

	messageSection := lipgloss.NewStyle().
		BorderTop(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(dimColor).
		Width(modalWidth).
		Render(strings.Join(messageLines, "\n"))

	// 3. Footer section
	var footer string
	if title == "Edit conversation" {
		if focusedField == 2 {
			footer = FormatFooter("j/k", "Navigate", "e", "Allow", "d", "Ask", "Tab", "Next Field", "Alt+Enter", "Save", "Esc", "Cancel")
		} else {
			footer = FormatFooter("Tab/Shift+Tab", "Switch Fields", "Alt+U", "Clear", "Alt+Enter", "Save", "Esc", "Cancel")
		}
	} else {
		footer = FormatFooter("Tab/Shift+Tab", "Switch Fields", "Enter", "Create", "Esc", "Cancel")
	}

	footerSection := lipgloss.NewStyle().
		Foreground(dimColor).
		Align(lipgloss.Center).
		Width(modalWidth).
		BorderTop(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(dimColor).
		Render(footer)

	// 4. Combine sections
	sections := []string{titleSection, messageSection, footerSection}
	content := strings.Join(sections, "\n")

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}

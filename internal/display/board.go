package display

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/hammamikhairi/ottoflow/internal/engine"
)

// summaryIndent lines a step summary up under its label.
const summaryIndent = 8

// RenderBoard returns the whole session as a checklist. width wraps step
// summaries; zero or less disables wrapping.
func RenderBoard(b *engine.Board, width int) string {
	var sb strings.Builder
	sb.WriteString(renderTitle(b))
	sb.WriteByte('\n')
	for _, v := range b.Steps {
		sb.WriteString(renderStep(v, width, false))
		sb.WriteByte('\n')
	}
	return sb.String()
}

func renderTitle(b *engine.Board) string {
	title := titleStyle.Render(b.Recipe.Name)
	if b.Session.Servings > 0 {
		title += secondaryStyle.Render(fmt.Sprintf("  serves %d", b.Session.Servings))
	}
	return title
}

// renderStep draws one checklist row plus its wrapped summary.
func renderStep(v engine.StepView, width int, selected bool) string {
	marker := "[ ]"
	style := readyStyle
	state := "ready"
	switch {
	case v.Completed:
		marker = "[x]"
		style = completedStyle
		state = ""
	case v.Blocked:
		style = blockedStyle
		state = "waiting on " + StepList(v.WaitingOn)
	}

	cursor := "  "
	if selected {
		cursor = cursorStyle.Render("> ")
	}

	var sb strings.Builder
	sb.WriteString(cursor)
	sb.WriteString(style.Render(fmt.Sprintf("%s %2d. %s", marker, v.Index+1, v.Label)))
	if state != "" {
		sb.WriteString(secondaryStyle.Render("  · " + state))
	}
	if v.Summary != "" && !v.Completed {
		for _, line := range wrap(v.Summary, width-summaryIndent) {
			sb.WriteByte('\n')
			sb.WriteString(strings.Repeat(" ", summaryIndent))
			sb.WriteString(secondaryStyle.Render(line))
		}
	}
	return sb.String()
}

// RenderProgress returns the one-line status bar: steps done and steps
// ready.
func RenderProgress(b *engine.Board, width int) string {
	parts := []string{
		barDoneStyle.Render(fmt.Sprintf("%d/%d done", b.Done(), len(b.Steps))),
	}
	if len(b.Ready) > 0 {
		parts = append(parts, barReadyStyle.Render("ready: "+StepList(b.Ready)))
	} else if b.Done() == len(b.Steps) {
		parts = append(parts, barDoneStyle.Render("all steps complete"))
	}
	content := " " + strings.Join(parts, sepStyle.Render("  │  ")) + " "

	if width <= 0 {
		width = 80
	}
	return barBg.Width(width).Render(content)
}

// RenderReady lists the steps that can be performed now.
func RenderReady(b *engine.Board, width int) string {
	if len(b.Ready) == 0 {
		if b.Done() == len(b.Steps) {
			return secondaryStyle.Render("Nothing left to do.")
		}
		return secondaryStyle.Render("No step is ready.")
	}
	var sb strings.Builder
	for i, idx := range b.Ready {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(renderStep(b.Steps[idx], width, false))
	}
	return sb.String()
}

// StepList formats 0-based step indices as a one-based list: "1, 4".
func StepList(steps []int) string {
	parts := make([]string, len(steps))
	for i, s := range steps {
		parts[i] = strconv.Itoa(s + 1)
	}
	return strings.Join(parts, ", ")
}

// wrap breaks text into lines no wider than width.
func wrap(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}
	rendered := lipgloss.NewStyle().Width(width).Render(text)
	lines := strings.Split(rendered, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " ")
	}
	return lines
}

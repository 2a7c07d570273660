package main

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

const (
	colorSuccess = "#10B981"
	colorError   = "#EF4444"
	colorPrimary = "#7C3AED"
	colorGray    = "#6B7280"
)

// styles renders status markers for one output stream. Colors are dropped
// when the stream is not a terminal.
type styles struct {
	ok    lipgloss.Style
	fail  lipgloss.Style
	title lipgloss.Style
	dim   lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		ok:    r.NewStyle().Foreground(lipgloss.Color(colorSuccess)).Bold(true),
		fail:  r.NewStyle().Foreground(lipgloss.Color(colorError)).Bold(true),
		title: r.NewStyle().Foreground(lipgloss.Color(colorPrimary)).Bold(true),
		dim:   r.NewStyle().Foreground(lipgloss.Color(colorGray)),
	}
}

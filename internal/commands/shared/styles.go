// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package shared

import (
	"github.com/charmbracelet/lipgloss"
)

// Colors adapt to light and dark terminals. Output that is not a terminal,
// such as a pipe or a test buffer, is rendered without escapes.
var (
	green  = lipgloss.AdaptiveColor{Light: "28", Dark: "42"}
	orange = lipgloss.AdaptiveColor{Light: "166", Dark: "214"}
	red    = lipgloss.AdaptiveColor{Light: "160", Dark: "196"}
	gray   = lipgloss.AdaptiveColor{Light: "242", Dark: "245"}
	blue   = lipgloss.AdaptiveColor{Light: "25", Dark: "39"}
)

var (
	StatusOK    = lipgloss.NewStyle().Foreground(green)
	StatusWarn  = lipgloss.NewStyle().Foreground(orange)
	StatusError = lipgloss.NewStyle().Foreground(red)

	// Muted styles labels and paths.
	Muted = lipgloss.NewStyle().Foreground(gray)

	Header = lipgloss.NewStyle().Bold(true).Foreground(blue)

	// Masked styles a masked secret so it is not mistaken for the value.
	Masked = lipgloss.NewStyle().Italic(true).Foreground(gray)
)

const (
	SymbolOK    = "✓"
	SymbolWarn  = "⚠"
	SymbolError = "✗"
	SymbolArrow = "→"
)

func RenderOK(msg string) string    { return StatusOK.Render(SymbolOK) + " " + msg }
func RenderWarn(msg string) string  { return StatusWarn.Render(SymbolWarn) + " " + msg }
func RenderError(msg string) string { return StatusError.Render(SymbolError) + " " + msg }

// RenderBackend renders one line of the backend probe table. The selected
// backend is marked with an arrow.
func RenderBackend(name string, available, selected bool) string {
	marker := "  "
	if selected {
		marker = StatusOK.Render(SymbolArrow) + " "
	}
	if available {
		return marker + RenderOK(name)
	}
	return marker + RenderError(name) + " " + Muted.Render("(unavailable)")
}

// RenderLabel renders a "label: value" pair with a muted label.
func RenderLabel(label, value string) string {
	return Muted.Render(label+":") + " " + value
}

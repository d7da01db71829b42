// Package render projects cache and draft state into display-ready values.
// Everything here is a pure function of its input.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/lebroads/pothole-map/internal/models"
)

// Severity is the visual encoding of an intensity
type Severity struct {
	Intensity int    `json:"intensity"`
	Stars     string `json:"stars"`
	Label     string `json:"label"`
	Color     string `json:"color"`
}

// colours from mild to severe, indexed by intensity-1
var severityColors = [models.MaxIntensity]string{
	"#2e7d32",
	"#9acd32",
	"#ffc107",
	"#fd7e14",
	"#dc3545",
}

func clampIntensity(intensity int) int {
	if intensity < models.MinIntensity {
		return models.MinIntensity
	}
	if intensity > models.MaxIntensity {
		return models.MaxIntensity
	}
	return intensity
}

// Stars renders intensity as filled and empty stars, e.g. ★★★☆☆
func Stars(intensity int) string {
	n := clampIntensity(intensity)
	return strings.Repeat("★", n) + strings.Repeat("☆", models.MaxIntensity-n)
}

// SeverityColor returns the marker colour for an intensity
func SeverityColor(intensity int) string {
	return severityColors[clampIntensity(intensity)-1]
}

// SeverityOf derives the full severity projection
func SeverityOf(intensity int) Severity {
	n := clampIntensity(intensity)
	return Severity{
		Intensity: n,
		Stars:     Stars(n),
		Label:     fmt.Sprintf("%s (%d/%d)", Stars(n), n, models.MaxIntensity),
		Color:     SeverityColor(n),
	}
}

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#039;",
)

// EscapeHTML escapes user text for display inside markup
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

// Coordinates formats a position with the given number of decimals
func Coordinates(p models.Position, decimals int) string {
	return fmt.Sprintf("%.*f, %.*f", decimals, p.Lat, decimals, p.Lng)
}

// Popup is the display model of a cached report
type Popup struct {
	ReportID    int64           `json:"report_id"`
	Title       string          `json:"title"`
	RoadSide    string          `json:"road_side"`
	Severity    Severity        `json:"severity"`
	Descriptor  string          `json:"descriptor"`
	Coordinates string          `json:"coordinates"`
	Position    models.Position `json:"position"`
	Upvotes     int             `json:"upvotes"`
	Downvotes   int             `json:"downvotes"`
	Score       int             `json:"score"`
	CreatedAt   time.Time       `json:"created_at"`
	HTML        string          `json:"html"`
}

var popupTemplate = template.Must(template.New("popup").Parse(`<div>
  <strong>{{.Title}}</strong><br/>
  <em>{{.RoadSide}}</em> side of the road<br/>
  Intensity: {{.Severity.Label}}<br/>
  {{if .Descriptor}}<div style="margin-top:6px">{{.Descriptor}}</div>{{end}}
  <div style="margin-top:6px">Score: {{.Score}} (▲{{.Upvotes}} ▼{{.Downvotes}})</div>
  <div style="margin-top:6px;color:#666;font-size:12px">{{.Coordinates}}</div>
</div>`))

// PopupFor projects a report into its popup
func PopupFor(r models.Report) Popup {
	p := Popup{
		ReportID:    r.ID,
		Title:       "Pothole",
		RoadSide:    string(r.RoadSide),
		Severity:    SeverityOf(r.Intensity),
		Descriptor:  EscapeHTML(r.Descriptor),
		Coordinates: Coordinates(r.Position, 5),
		Position:    r.Position,
		Upvotes:     r.Upvotes,
		Downvotes:   r.Downvotes,
		Score:       r.Score,
		CreatedAt:   r.CreatedAt,
	}
	p.HTML = popupHTML(p, r.Descriptor)
	return p
}

// the template escapes the raw descriptor itself
func popupHTML(p Popup, rawDescriptor string) string {
	view := p
	view.Descriptor = rawDescriptor

	var buf bytes.Buffer
	if err := popupTemplate.Execute(&buf, view); err != nil {
		return ""
	}
	return buf.String()
}

// Popups projects a cache snapshot, keeping its order
func Popups(reports []models.Report) []Popup {
	out := make([]Popup, 0, len(reports))
	for _, r := range reports {
		out = append(out, PopupFor(r))
	}
	return out
}

// DraftView is the display model of the draft form
type DraftView struct {
	Token       string          `json:"token"`
	Position    models.Position `json:"position"`
	Coordinates string          `json:"coordinates"`
	RoadSide    string          `json:"road_side"`
	Descriptor  string          `json:"descriptor"`
	Severity    Severity        `json:"severity"`
}

// DraftViewFor projects a draft into its form state
func DraftViewFor(d models.Draft) DraftView {
	return DraftView{
		Token:       d.Token,
		Position:    d.Position,
		Coordinates: Coordinates(d.Position, 6),
		RoadSide:    string(d.RoadSide),
		Descriptor:  EscapeHTML(d.Descriptor),
		Severity:    SeverityOf(d.Intensity),
	}
}

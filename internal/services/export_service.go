// internal/services/export_service.go
package services

import (
	"fmt"
	"html"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"

	apperrors "github.com/johnmartinello/gscript/internal/errors"
	"github.com/johnmartinello/gscript/internal/models"
	"github.com/johnmartinello/gscript/internal/utils"
)

// ExportResult describes a file produced by an export
type ExportResult struct {
	FilePath  string    `json:"file_path"`
	Format    string    `json:"format"`
	FileSize  int64     `json:"file_size"`
	CreatedAt time.Time `json:"created_at"`
}

// ExportService renders read-only views of a project: a print-formatted
// screenplay document and a PNG snapshot of the story graph. Neither output
// is reimportable.
type ExportService struct {
	ExportDir string
}

// NewExportService creates the service, ensuring the export directory exists
func NewExportService(exportDir string) *ExportService {
	if exportDir == "" {
		exportDir = "data/exports"
	}
	if err := os.MkdirAll(exportDir, 0755); err != nil {
		utils.GetLogger().Warn("failed to create export directory", map[string]interface{}{
			"dir": exportDir, "error": err.Error(),
		})
	}
	return &ExportService{ExportDir: exportDir}
}

// ------------------------------------------------
// Screenplay HTML
// ------------------------------------------------

// ScreenplayHTML renders the whole project in industry screenplay layout:
// Courier body, uppercase sluglines, centered character cues, indented
// dialogue, choice points as indented option blocks
func (s *ExportService) ScreenplayHTML(project *models.Project) (string, error) {
	if project == nil {
		return "", apperrors.NewValidationError("no project to export", nil)
	}

	var parts []string
	for _, scene := range project.Scenes {
		parts = append(parts, fmt.Sprintf(`<div class="scene-heading">%s</div>`, html.EscapeString(scene.Title)))
		for _, beat := range scene.Beats {
			parts = append(parts, beatToHTML(beat)...)
		}
		parts = append(parts, `<div class="scene-break"></div>`)
	}

	doc := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
  body { font-family: 'Courier New', Courier, monospace; font-size: 12pt; margin: 1in; line-height: 1.2; }
  .scene-heading { font-weight: bold; margin-top: 1em; }
  .slugline { text-transform: uppercase; margin-bottom: 0.5em; }
  .action { margin: 0.5em 0; }
  .character { text-align: center; margin-top: 1em; }
  .dialogue { margin-left: 2in; margin-right: 2in; margin-bottom: 0.5em; }
  .parenthetical { margin-left: 1.5in; margin-right: 2in; font-size: 0.95em; }
  .transition { text-align: right; margin: 0.5em 0; }
  .choice { margin: 0.5em 0; border-left: 2px solid #666; padding-left: 0.5em; }
  .choice-option { margin: 0.2em 0; }
  .set-variable { margin: 0.5em 0; color: #666; font-style: italic; }
  .scene-break { height: 0; margin: 0; }
  @media print { body { margin: 1in; } }
</style>
</head>
<body>
%s
</body>
</html>`, html.EscapeString(project.Name), strings.Join(parts, "\n"))

	return doc, nil
}

func beatToHTML(beat models.Beat) []string {
	switch beat.Type {
	case models.BeatSceneHeading:
		return []string{fmt.Sprintf(`<div class="slugline">%s</div>`, html.EscapeString(beat.Text))}
	case models.BeatAction:
		return []string{fmt.Sprintf(`<div class="action">%s</div>`, html.EscapeString(beat.Text))}
	case models.BeatCharacterCue:
		return []string{fmt.Sprintf(`<div class="character">%s</div>`, html.EscapeString(beat.Text))}
	case models.BeatDialogue:
		return []string{fmt.Sprintf(`<div class="dialogue">%s</div>`, html.EscapeString(beat.Text))}
	case models.BeatParenthetical:
		return []string{fmt.Sprintf(`<div class="parenthetical">(%s)</div>`, html.EscapeString(beat.Text))}
	case models.BeatTransition:
		return []string{fmt.Sprintf(`<div class="transition">%s</div>`, html.EscapeString(strings.ToUpper(beat.Text)))}
	case models.BeatChoicePoint:
		parts := []string{`<div class="choice">`}
		for _, opt := range beat.Options {
			parts = append(parts, fmt.Sprintf(`  <div class="choice-option">%s</div>`, html.EscapeString(opt.Label)))
		}
		parts = append(parts, `</div>`)
		return parts
	case models.BeatSetVariable:
		return []string{fmt.Sprintf(`<div class="set-variable">set %s = %s</div>`,
			html.EscapeString(beat.VariableID), html.EscapeString(beat.Value))}
	}
	return nil
}

// SaveScreenplayHTML writes the screenplay render into the export directory
func (s *ExportService) SaveScreenplayHTML(project *models.Project) (*ExportResult, error) {
	doc, err := s.ScreenplayHTML(project)
	if err != nil {
		return nil, err
	}
	filename := fmt.Sprintf("%s_%s.html", sanitizeFilename(project.Name), time.Now().Format("20060102_150405"))
	return s.writeExport(filename, []byte(doc), "html")
}

// ------------------------------------------------
// Graph PNG snapshot
// ------------------------------------------------

const (
	nodeWidth  = 160.0
	nodeHeight = 48.0
	pngPadding = 60.0
)

// SaveGraphPNG draws the story graph from the project's layout positions:
// one box per scene, an arrowed line per edge with its label at the
// midpoint
func (s *ExportService) SaveGraphPNG(project *models.Project) (*ExportResult, error) {
	if project == nil {
		return nil, apperrors.NewValidationError("no project to export", nil)
	}
	if len(project.Scenes) == 0 {
		return nil, apperrors.NewValidationError("nothing to export: project has no scenes", nil)
	}

	// Bounds over every node box
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, scene := range project.Scenes {
		pos := project.NodePositions[scene.ID]
		minX = math.Min(minX, pos.X)
		minY = math.Min(minY, pos.Y)
		maxX = math.Max(maxX, pos.X+nodeWidth)
		maxY = math.Max(maxY, pos.Y+nodeHeight)
	}

	width := int(maxX - minX + 2*pngPadding)
	height := int(maxY - minY + 2*pngPadding)

	dc := gg.NewContext(width, height)
	dc.SetColor(color.White)
	dc.Clear()

	ttfFont, err := truetype.Parse(gomono.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	face := truetype.NewFace(ttfFont, &truetype.Options{
		Size:    12,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	dc.SetFontFace(face)

	// Node centers, for edge anchoring
	centers := make(map[string][2]float64, len(project.Scenes))
	for _, scene := range project.Scenes {
		pos := project.NodePositions[scene.ID]
		x := pos.X - minX + pngPadding
		y := pos.Y - minY + pngPadding
		centers[scene.ID] = [2]float64{x + nodeWidth/2, y + nodeHeight/2}
	}

	// Edges behind nodes
	for _, edge := range project.Edges {
		from, okFrom := centers[edge.SourceSceneID]
		to, okTo := centers[edge.TargetSceneID]
		if !okFrom || !okTo {
			continue
		}
		drawEdge(dc, from, to, edge.Label)
	}

	for _, scene := range project.Scenes {
		pos := project.NodePositions[scene.ID]
		x := pos.X - minX + pngPadding
		y := pos.Y - minY + pngPadding
		drawNode(dc, x, y, scene.Title)
	}

	filename := fmt.Sprintf("%s_graph_%s.png", sanitizeFilename(project.Name), time.Now().Format("20060102_150405"))
	fullPath := filepath.Join(s.ExportDir, filename)
	if err := dc.SavePNG(fullPath); err != nil {
		return nil, fmt.Errorf("failed to write PNG: %w", err)
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		return nil, err
	}
	return &ExportResult{
		FilePath:  fullPath,
		Format:    "png",
		FileSize:  info.Size(),
		CreatedAt: time.Now(),
	}, nil
}

func drawNode(dc *gg.Context, x, y float64, title string) {
	dc.SetColor(color.White)
	dc.DrawRectangle(x, y, nodeWidth, nodeHeight)
	dc.Fill()
	dc.SetColor(color.Black)
	dc.SetLineWidth(1.5)
	dc.DrawRectangle(x, y, nodeWidth, nodeHeight)
	dc.Stroke()

	label := title
	if len(label) > 18 {
		label = label[:17] + "…"
	}
	dc.DrawStringAnchored(label, x+nodeWidth/2, y+nodeHeight/2, 0.5, 0.35)
}

func drawEdge(dc *gg.Context, from, to [2]float64, label string) {
	dc.SetColor(color.Black)
	dc.SetLineWidth(1.0)
	dc.DrawLine(from[0], from[1], to[0], to[1])
	dc.Stroke()

	// Arrowhead at the target end
	dx := to[0] - from[0]
	dy := to[1] - from[1]
	length := math.Hypot(dx, dy)
	if length < 1 {
		return
	}
	dx /= length
	dy /= length
	const arrowSize = 8.0
	const arrowAngle = 0.45
	dc.MoveTo(to[0], to[1])
	dc.LineTo(to[0]-arrowSize*dx+arrowSize*dy*arrowAngle, to[1]-arrowSize*dy-arrowSize*dx*arrowAngle)
	dc.LineTo(to[0]-arrowSize*dx-arrowSize*dy*arrowAngle, to[1]-arrowSize*dy+arrowSize*dx*arrowAngle)
	dc.ClosePath()
	dc.Fill()

	if label != "" {
		midX := (from[0] + to[0]) / 2
		midY := (from[1]+to[1])/2 - 6
		dc.DrawStringAnchored(label, midX, midY, 0.5, 0)
	}
}

// ------------------------------------------------
// Helpers
// ------------------------------------------------

func (s *ExportService) writeExport(filename string, data []byte, format string) (*ExportResult, error) {
	fullPath := filepath.Join(s.ExportDir, filename)
	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write export file: %w", err)
	}
	return &ExportResult{
		FilePath:  fullPath,
		Format:    format,
		FileSize:  int64(len(data)),
		CreatedAt: time.Now(),
	}, nil
}

func sanitizeFilename(name string) string {
	if name == "" {
		return "untitled"
	}
	replacer := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_", " ", "_")
	return replacer.Replace(name)
}

// Package pptx extracts slide text from PowerPoint presentations.
package pptx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/custodia-labs/ragsync/internal/core/domain"
	"github.com/custodia-labs/ragsync/internal/core/ports/driven"
	"github.com/custodia-labs/ragsync/internal/normalisers"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

var slidePart = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// Normaliser handles PPTX presentations. Each slide becomes a segment whose
// page is the slide number. Legacy binary .ppt files are routed here too and
// fail to open, which the loader reports as a per-source failure.
type Normaliser struct{}

// New creates a new PPTX normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{normalisers.MIMEPPTX, normalisers.MIMEPPT}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

type slide struct {
	number int
	file   *zip.File
}

// Normalise extracts the text of every slide in slide order.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	reader, err := zip.NewReader(bytes.NewReader(raw.Content), int64(len(raw.Content)))
	if err != nil {
		if raw.MIMEType == normalisers.MIMEPPT {
			return nil, fmt.Errorf("open presentation: %w: legacy .ppt is not supported, convert to .pptx", domain.ErrUnsupportedType)
		}
		return nil, fmt.Errorf("open presentation: %w: %v", domain.ErrInvalidInput, err)
	}

	var slides []slide
	for _, f := range reader.File {
		m := slidePart.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		num, _ := strconv.Atoi(m[1])
		slides = append(slides, slide{number: num, file: f})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].number < slides[j].number })

	segments := make([]domain.Segment, 0, len(slides))
	for _, s := range slides {
		text, err := readSlide(s.file)
		if err != nil {
			return nil, err
		}
		segments = append(segments, domain.Segment{Page: s.number, Text: text})
	}

	doc := normalisers.NewDocument(raw, "", "pptx", segments)
	doc.Metadata["slides"] = len(slides)
	return &driven.NormaliseResult{Document: doc}, nil
}

func readSlide(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("open %s: %w: %v", f.Name, domain.ErrInvalidInput, err)
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("read %s: %w: %v", f.Name, domain.ErrInvalidInput, err)
	}
	return parseSlideXML(content), nil
}

// parseSlideXML collects <a:t> runs, one line per <a:p> paragraph.
func parseSlideXML(content []byte) string {
	decoder := xml.NewDecoder(bytes.NewReader(content))

	var (
		lines  []string
		line   strings.Builder
		inText bool
	)
	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}
		switch el := tok.(type) {
		case xml.StartElement:
			if el.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "t":
				inText = false
			case "p":
				if s := strings.TrimSpace(line.String()); s != "" {
					lines = append(lines, s)
				}
				line.Reset()
			}
		case xml.CharData:
			if inText {
				line.Write(el)
			}
		}
	}
	return strings.Join(lines, "\n")
}

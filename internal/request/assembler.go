package request

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
)

// Kind distinguishes image parts from the instruction text
type Kind string

const (
	KindImage Kind = "image"
	KindText  Kind = "text"
)

// DefaultInstruction is used when the user supplied no text
const DefaultInstruction = "Professional enhancement"

// Part is one element of the ordered request sent to the generation service
type Part struct {
	Kind     Kind
	MIMEType string
	Data     []byte
	Text     string
}

// Image is an input image with its declared mime type
type Image struct {
	MIMEType string
	Data     []byte
}

// Input is everything the assembler needs, snapshotted at submit time
type Input struct {
	Source      Image
	Overlay     *Image
	References  []Image
	Instruction string
	Expand      bool
	// Marked is true when any stroke exists. It selects the mode label
	// independently of whether an overlay could be rendered.
	Marked bool
}

const preamble = `You are CHR EDIT_AI, a professional multimodal AI specialist.

INPUTS:
1. The first image is the ORIGINAL SOURCE.
2. The second image (if provided) is the MARKED OVERLAY guide.
3. Any subsequent images are STYLE REFERENCES.

MARKER GUIDE (Apply strictly if Marked Overlay is present):
- RED STROKES: Modify/Repair/Remove this area.
- BLUE STROKES: Protect/Keep this area exactly as is.
- GREEN STROKES: Enhance details/quality in this area.
- YELLOW STROKES: Creative suggestion/Additions area.

GENERAL INSTRUCTIONS:
1. Output a single final processed image.
2. Maintain high photorealism and consistency.
3. Seamlessly blend edits into the original environment.
4. If referencing style images, adopt their lighting/texture/vibe.`

// Mode labels for the standard edit directive
const (
	ModeGlobal  = "Global"
	ModeMarking = "Marking"
)

// Assemble orders the parts as source, overlay, references, text. The
// service interprets images by position, so this order never changes.
func Assemble(in Input) []Part {
	parts := make([]Part, 0, len(in.References)+3)
	parts = append(parts, imagePart(in.Source))
	if in.Overlay != nil {
		parts = append(parts, imagePart(*in.Overlay))
	}
	for _, ref := range in.References {
		parts = append(parts, imagePart(ref))
	}
	parts = append(parts, Part{Kind: KindText, Text: BuildPrompt(in)})
	return parts
}

// BuildPrompt composes the preamble, task directive and user instruction
func BuildPrompt(in Input) string {
	var b strings.Builder
	b.WriteString(preamble)
	b.WriteString("\n")
	b.WriteString("\n")
	b.WriteString(TaskDirective(in.Expand, in.Marked))
	if len(in.References) > 0 {
		b.WriteString("\nREFERENCE: Use the provided reference image(s) to guide style, lighting, or content.")
	}
	instruction := strings.TrimSpace(in.Instruction)
	if instruction == "" {
		instruction = DefaultInstruction
	}
	b.WriteString("\nUSER INSTRUCTION: ")
	b.WriteString(instruction)
	return b.String()
}

// TaskDirective returns the outpainting directive when expand is set,
// otherwise a standard edit tagged with the mode label.
func TaskDirective(expand, marked bool) string {
	if expand {
		return "TASK: PRO EXPANSION (OUTPAINTING). Logically expand the scene beyond boundaries."
	}
	mode := ModeGlobal
	if marked {
		mode = ModeMarking
	}
	return fmt.Sprintf("TASK: PROFESSIONAL EDITING (Mode: %s).", mode)
}

func imagePart(img Image) Part {
	return Part{Kind: KindImage, MIMEType: img.MIMEType, Data: img.Data}
}

var dataURIHeader = regexp.MustCompile(`^data:([^;,]+)?(;base64)?$`)

// DecodeDataURI splits a base64 data URI into mime type and bytes. A
// missing mime type defaults to image/png.
func DecodeDataURI(uri string) (Image, error) {
	header, payload, ok := strings.Cut(uri, ",")
	if !ok {
		return Image{}, fmt.Errorf("malformed data URI: missing payload")
	}
	m := dataURIHeader.FindStringSubmatch(header)
	if m == nil || m[2] == "" {
		return Image{}, fmt.Errorf("malformed data URI header %q", header)
	}
	mimeType := m[1]
	if mimeType == "" {
		mimeType = "image/png"
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Image{}, fmt.Errorf("failed to decode data URI payload: %w", err)
	}
	return Image{MIMEType: mimeType, Data: data}, nil
}

package screen

import (
	"strconv"
	"strings"

	"github.com/xkilldash9x/droidpilot/api/schemas"
)

// maxLabelLength caps text and content descriptions in serialized output.
const maxLabelLength = 50

// Serialize renders a screen state as the indented element listing the
// planner reads. Output is a pure function of state.
//
// Child indices are parentIndex*100+childIndex, which collides for nodes with
// 100 or more children. Levels deeper than schemas.MaxTreeDepth are omitted.
func Serialize(state schemas.ScreenState) string {
	var sb strings.Builder
	sb.WriteString("Package: ")
	sb.WriteString(state.PackageName)
	sb.WriteByte('\n')
	if state.ActivityName != "" {
		sb.WriteString("Activity: ")
		sb.WriteString(state.ActivityName)
		sb.WriteByte('\n')
	}
	sb.WriteString("\nUI Elements:\n")

	for i, el := range state.Elements {
		writeElement(&sb, el, i, 0)
	}
	return sb.String()
}

func writeElement(sb *strings.Builder, el schemas.UIElement, index, depth int) {
	if depth >= schemas.MaxTreeDepth {
		return
	}

	sb.WriteString(strings.Repeat("  ", depth))
	sb.WriteByte('[')
	sb.WriteString(strconv.Itoa(index))
	sb.WriteString("] ")
	sb.WriteString(ShortClassName(el.ClassName))

	if el.ResourceID != "" {
		sb.WriteString(` id="` + el.ResourceID + `"`)
	}
	if strings.TrimSpace(el.Text) != "" {
		sb.WriteString(` text="` + truncate(el.Text, maxLabelLength) + `"`)
	}
	if strings.TrimSpace(el.ContentDescription) != "" {
		sb.WriteString(` desc="` + truncate(el.ContentDescription, maxLabelLength) + `"`)
	}
	if flags := capabilityFlags(el); len(flags) > 0 {
		sb.WriteString(" [" + strings.Join(flags, ",") + "]")
	}

	b := el.Bounds
	sb.WriteString(" bounds=")
	sb.WriteString(strconv.Itoa(b.Left) + "," + strconv.Itoa(b.Top) + "-" + strconv.Itoa(b.Right) + "," + strconv.Itoa(b.Bottom))
	sb.WriteByte('\n')

	for ci, child := range el.Children {
		writeElement(sb, child, index*100+ci, depth+1)
	}
}

// ShortClassName returns the segment after the final dot of a class name.
func ShortClassName(className string) string {
	if i := strings.LastIndexByte(className, '.'); i >= 0 {
		return className[i+1:]
	}
	return className
}

func capabilityFlags(el schemas.UIElement) []string {
	var flags []string
	if el.Clickable {
		flags = append(flags, "clickable")
	}
	if el.Editable {
		flags = append(flags, "editable")
	}
	if el.Scrollable {
		flags = append(flags, "scrollable")
	}
	return flags
}

// truncate keeps the first n runes of s.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// internal/host/adb/hierarchy.go
package adb

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/xkilldash9x/droidpilot/api/schemas"
)

var boundsPattern = regexp.MustCompile(`^\[(-?\d+),(-?\d+)\]\[(-?\d+),(-?\d+)\]$`)

// cleanDump trims adb noise before the XML declaration and after the last
// closing tag.
func cleanDump(out string) (string, bool) {
	start := strings.Index(out, "<?xml")
	if start == -1 {
		return "", false
	}
	out = out[start:]
	if end := strings.LastIndex(out, ">"); end != -1 {
		out = out[:end+1]
	}
	return out, true
}

// parseHierarchy converts a uiautomator dump into elements and the package
// of the first node.
func parseHierarchy(xml string) (string, []schemas.UIElement, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(xml); err != nil {
		return "", nil, fmt.Errorf("failed to parse UI dump (length: %d): %w", len(xml), err)
	}

	root := doc.SelectElement("hierarchy")
	if root == nil {
		return "", nil, fmt.Errorf("UI dump has no <hierarchy> root")
	}

	nodes := root.SelectElements("node")
	var pkg string
	if len(nodes) > 0 {
		pkg = nodes[0].SelectAttrValue("package", "")
	}

	var elements []schemas.UIElement
	for i, n := range nodes {
		elements = append(elements, parseNode(n, 0, strconv.Itoa(i))...)
	}
	return pkg, elements, nil
}

// parseNode keeps visible nodes and lifts the children of invisible ones into
// the parent's list. Nodes deeper than schemas.MaxTreeDepth are ignored.
func parseNode(n *etree.Element, depth int, path string) []schemas.UIElement {
	if depth >= schemas.MaxTreeDepth {
		return nil
	}

	var children []schemas.UIElement
	for i, c := range n.SelectElements("node") {
		children = append(children, parseNode(c, depth+1, path+"."+strconv.Itoa(i))...)
	}

	bounds, ok := parseBounds(n.SelectAttrValue("bounds", ""))
	if !ok || bounds.Width() == 0 || bounds.Height() == 0 {
		return children
	}

	className := n.SelectAttrValue("class", "")
	resourceID := n.SelectAttrValue("resource-id", "")
	id := resourceID
	if id == "" {
		id = "elem_" + path
	}

	return []schemas.UIElement{{
		ID:                 id,
		ClassName:          className,
		Text:               n.SelectAttrValue("text", ""),
		ContentDescription: n.SelectAttrValue("content-desc", ""),
		Bounds:             bounds,
		Clickable:          boolAttr(n, "clickable"),
		Editable:           isEditableClass(className),
		Scrollable:         boolAttr(n, "scrollable"),
		Focusable:          boolAttr(n, "focusable"),
		ResourceID:         resourceID,
		Children:           children,
	}}
}

func parseBounds(s string) (schemas.Bounds, bool) {
	m := boundsPattern.FindStringSubmatch(s)
	if m == nil {
		return schemas.Bounds{}, false
	}
	v := make([]int, 4)
	for i := range v {
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return schemas.Bounds{}, false
		}
		v[i] = n
	}
	return schemas.Bounds{Left: v[0], Top: v[1], Right: v[2], Bottom: v[3]}, true
}

func boolAttr(n *etree.Element, key string) bool {
	return n.SelectAttrValue(key, "false") == "true"
}

// isEditableClass reports text inputs. uiautomator dumps carry no editable
// attribute, so the widget class decides.
func isEditableClass(className string) bool {
	return strings.HasSuffix(className, "EditText") || strings.HasSuffix(className, "AutoCompleteTextView")
}

var sizePattern = regexp.MustCompile(`(?m)^(Physical|Override) size:\s*(\d+)x(\d+)`)

// parseWMSize reads `wm size` output. An override size wins over the
// physical one.
func parseWMSize(out string) (int, int, bool) {
	var w, h int
	found := false
	for _, m := range sizePattern.FindAllStringSubmatch(out, -1) {
		if found && m[1] != "Override" {
			continue
		}
		w, _ = strconv.Atoi(m[2])
		h, _ = strconv.Atoi(m[3])
		found = true
	}
	return w, h, found && w > 0 && h > 0
}

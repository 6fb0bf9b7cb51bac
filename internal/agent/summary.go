// internal/agent/summary.go
package agent

import (
	"fmt"
	"strconv"
)

const (
	markSuccess = "✓"
	markFailure = "✗"
)

// Summarize renders an action in the compact form stored in history, for
// example `click:a`, `scroll:down` or `type_text:"hi"`.
func Summarize(a Action) string {
	switch v := a.(type) {
	case Click:
		return "click:" + targetSummary(v.Target)
	case LongClick:
		return "long_click:" + targetSummary(v.Target)
	case TypeText:
		return "type_text:" + strconv.Quote(v.Text)
	case Scroll:
		return "scroll:" + string(v.Direction)
	case OpenApp:
		return "open_app:" + v.Package
	case GoBack:
		return "back"
	case GoHome:
		return "home"
	case OpenRecents:
		return "recents"
	case Wait:
		return "wait:" + strconv.FormatInt(v.Duration.Milliseconds(), 10)
	case Speak:
		return "speak:" + strconv.Quote(v.Message)
	case TaskComplete:
		return "complete"
	case Error:
		return "error:" + strconv.Quote(v.Message)
	default:
		return fmt.Sprintf("%T", a)
	}
}

func targetSummary(t Target) string {
	switch {
	case t.ElementID != "":
		return t.ElementID
	case t.Point != nil:
		return fmt.Sprintf("(%d,%d)", t.Point.X, t.Point.Y)
	default:
		return "?"
	}
}

// SummarizeResult is Summarize with a success or failure mark appended.
func SummarizeResult(r ActionResult) string {
	mark := markSuccess
	if !r.Success {
		mark = markFailure
	}
	return Summarize(r.Action) + " " + mark
}

// SummarizeResults maps results to their history form, preserving order.
func SummarizeResults(results []ActionResult) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, SummarizeResult(r))
	}
	return out
}

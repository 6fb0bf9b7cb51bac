// internal/agent/decoder.go
package agent

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/droidpilot/api/schemas"
	"github.com/xkilldash9x/droidpilot/internal/llmutil"
)

const (
	defaultWait         = 1000 * time.Millisecond
	defaultErrorMessage = "Unknown error"
)

// Plan is a decoded planner response.
type Plan struct {
	Thinking string
	Actions  []Action
	// Warnings lists the items that were dropped, in input order.
	Warnings []ActionDecodeWarning
}

// rawPlan mirrors the planner's response envelope. Actions is a pointer so a
// missing array can be told apart from an empty one.
type rawPlan struct {
	Thinking string       `json:"thinking"`
	Actions  *[]rawAction `json:"actions"`
}

type rawAction struct {
	Type   string         `json:"type"`
	Params map[string]any `json:"params"`
}

// Decoder turns raw planner output into a typed Plan.
type Decoder struct {
	logger *zap.Logger
}

// NewDecoder creates a Decoder.
func NewDecoder(logger *zap.Logger) *Decoder {
	return &Decoder{logger: logger.Named("action_decoder")}
}

// Decode parses raw, tolerating surrounding code fences and whitespace.
// Envelope failures wrap schemas.ErrMalformedResponse. Items with an unknown
// type or a missing required parameter are dropped and reported as warnings.
func (d *Decoder) Decode(raw string) (*Plan, error) {
	cleaned := llmutil.StripCodeFence(raw)

	var envelope rawPlan
	if err := json.Unmarshal([]byte(cleaned), &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v. Response (truncated): %s", schemas.ErrMalformedResponse, err, llmutil.Truncate(cleaned, 500))
	}
	if envelope.Actions == nil {
		return nil, fmt.Errorf("%w: response has no \"actions\" array", schemas.ErrMalformedResponse)
	}

	items := *envelope.Actions
	plan := &Plan{
		Thinking: envelope.Thinking,
		Actions:  make([]Action, 0, len(items)),
	}

	for i, item := range items {
		action, reason := decodeAction(item)
		if action == nil {
			w := ActionDecodeWarning{Index: i, Type: item.Type, Reason: reason}
			d.logger.Warn("Dropping planner action.",
				zap.Int("index", w.Index),
				zap.String("type", w.Type),
				zap.String("reason", w.Reason),
			)
			plan.Warnings = append(plan.Warnings, w)
			continue
		}
		plan.Actions = append(plan.Actions, action)
	}

	d.logger.Debug("Decoded plan.",
		zap.Int("actions", len(plan.Actions)),
		zap.Int("dropped", len(plan.Warnings)),
	)
	return plan, nil
}

// decodeAction builds one action. A nil action comes with the reason it was
// dropped.
func decodeAction(item rawAction) (Action, string) {
	p := params(item.Params)

	switch ActionKind(strings.ToLower(item.Type)) {
	case KindClick:
		return Click{Target: p.target()}, ""
	case KindLongClick:
		return LongClick{Target: p.target()}, ""
	case KindTypeText:
		text, ok := p.str("text")
		if !ok {
			return nil, `missing required param "text"`
		}
		id, _ := p.str("element_id")
		return TypeText{Text: text, ElementID: id}, ""
	case KindScroll:
		return Scroll{Direction: p.direction()}, ""
	case KindOpenApp:
		pkg, ok := p.str("package")
		if !ok {
			return nil, `missing required param "package"`
		}
		return OpenApp{Package: pkg}, ""
	case KindBack:
		return GoBack{}, ""
	case KindHome:
		return GoHome{}, ""
	case KindRecents:
		return OpenRecents{}, ""
	case KindWait:
		d := defaultWait
		if ms, ok := p.num("ms"); ok {
			d = time.Duration(int64(ms)) * time.Millisecond
		}
		return Wait{Duration: d}, ""
	case KindSpeak:
		msg, ok := p.str("message")
		if !ok {
			return nil, `missing required param "message"`
		}
		return Speak{Message: msg}, ""
	case KindComplete:
		return TaskComplete{}, ""
	case KindError:
		msg, ok := p.str("message")
		if !ok {
			msg = defaultErrorMessage
		}
		return Error{Message: msg}, ""
	default:
		return nil, "unknown action type"
	}
}

// params reads loosely typed values from a decoded "params" object. JSON
// numbers arrive as float64.
type params map[string]any

// str returns the value as text. Numbers are written without a fractional
// part when they are whole; other non-string values are re-encoded as JSON.
// A missing key or a JSON null reports false.
func (p params) str(key string) (string, bool) {
	v, ok := p[key]
	if !ok || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t), true
		}
		return string(b), true
	}
}

// num returns the value only when it is a JSON number.
func (p params) num(key string) (float64, bool) {
	v, ok := p[key].(float64)
	return v, ok
}

// target builds a pointer target. A point is set only when both x and y are
// numbers; fractional coordinates are truncated.
func (p params) target() Target {
	var t Target
	t.ElementID, _ = p.str("element_id")
	x, okX := p.num("x")
	y, okY := p.num("y")
	if okX && okY {
		t.Point = &schemas.Point{X: int(x), Y: int(y)}
	}
	return t
}

// direction falls back to down for a missing or unrecognized value.
func (p params) direction() ScrollDirection {
	s, _ := p.str("direction")
	switch d := ScrollDirection(strings.ToLower(s)); d {
	case ScrollUp, ScrollDown, ScrollLeft, ScrollRight:
		return d
	default:
		return ScrollDown
	}
}

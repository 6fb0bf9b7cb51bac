// Package prompt assembles planner conversations from a command and the
// current screen.
package prompt

import (
	"github.com/xkilldash9x/droidpilot/api/schemas"
	"github.com/xkilldash9x/droidpilot/internal/screen"
)

// SystemPrompt lists the permitted actions and the response contract. It is
// identical for every request.
const SystemPrompt = `You are an AI assistant that controls an Android phone. You analyze the current screen and execute user commands by generating a sequence of actions.

AVAILABLE ACTIONS:
1. click - Click on element: {"type": "click", "params": {"element_id": "id"}} or {"type": "click", "params": {"x": 100, "y": 200}}
2. long_click - Long press: {"type": "long_click", "params": {"element_id": "id"}}
3. type_text - Input text: {"type": "type_text", "params": {"text": "hello", "element_id": "id"}}
4. scroll - Scroll screen: {"type": "scroll", "params": {"direction": "down"}} (up/down/left/right)
5. open_app - Open app: {"type": "open_app", "params": {"package": "com.whatsapp"}}
6. back - Go back: {"type": "back"}
7. home - Go to home screen: {"type": "home"}
8. wait - Wait: {"type": "wait", "params": {"ms": 1000}}
9. speak - Say to user: {"type": "speak", "params": {"message": "Done!"}}
10. complete - Task finished: {"type": "complete"}
11. error - Cannot complete: {"type": "error", "params": {"message": "reason"}}

COMMON PACKAGES:
- WhatsApp: com.whatsapp
- Telegram: org.telegram.messenger
- Chrome: com.android.chrome
- YouTube: com.google.android.youtube
- Settings: com.android.settings
- Phone: com.android.dialer
- Messages: com.google.android.apps.messaging
- Camera: com.android.camera
- Maps: com.google.android.apps.maps
- Gmail: com.google.android.gm
- Calendar: com.google.android.calendar

RULES:
1. Analyze screen elements carefully before acting
2. Use element IDs when available, coordinates as fallback
3. For text input: first click the field, then type
4. Generate minimal actions needed
5. Always end with "complete" or "error"
6. If screen doesn't show expected content, try scrolling or waiting

RESPONSE FORMAT (JSON only):
{
    "thinking": "brief analysis of screen and plan",
    "actions": [
        {"type": "action_type", "params": {...}},
        ...
    ]
}`

// UserPrompt renders the final turn for a command and a serialized screen.
func UserPrompt(command, serializedScreen string) string {
	return "USER COMMAND: " + command + "\n\n" +
		"CURRENT SCREEN STATE:\n" + serializedScreen + "\n\n" +
		"Generate actions to complete this command. Response must be valid JSON."
}

// Build returns the system message, each prior turn verbatim as a user
// message, and the command turn carrying the serialized screen.
func Build(command string, state schemas.ScreenState, history []string) []schemas.Message {
	messages := make([]schemas.Message, 0, len(history)+2)
	messages = append(messages, schemas.Message{Role: schemas.RoleSystem, Content: SystemPrompt})
	for _, turn := range history {
		// Prior turns are all tagged as user input, including the model's own answers.
		messages = append(messages, schemas.Message{Role: schemas.RoleUser, Content: turn})
	}
	messages = append(messages, schemas.Message{
		Role:    schemas.RoleUser,
		Content: UserPrompt(command, screen.Serialize(state)),
	})
	return messages
}

package extract

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/noah-isme/tkp-service/internal/state"
)

// Instructions opens every extraction prompt.
const Instructions = "Ты помощник по составлению ТКП. На основе сообщения пользователя и текущего " +
	"состояния собери недостающие поля. Возвращай только JSON, соответствующий схеме."

// Prompt embeds the current state and the user message under the instructions.
func Prompt(message string, current state.Map) string {
	if current == nil {
		current = state.Map{}
	}
	stateJSON, err := json.MarshalIndent(current, "", "  ")
	if err != nil {
		stateJSON = []byte("{}")
	}
	return fmt.Sprintf("%s\n\nТекущее состояние:\n%s\n\nСообщение пользователя:\n%s", Instructions, stateJSON, message)
}

// StripCodeFences removes a surrounding ```json fence some models add.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// decodeUpdate parses model output into an update. Nulls are dropped because
// strict schemas force the model to emit every key, and a null there means
// "nothing new" rather than "clear this field".
func decodeUpdate(text string) (state.Map, error) {
	text = StripCodeFences(text)
	if text == "" {
		return nil, fmt.Errorf("empty model output")
	}
	m, err := state.Decode([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("decode model output: %w", err)
	}
	return state.Prune(m), nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

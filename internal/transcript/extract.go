// Package transcript extracts sanitized message excerpts from the
// append-only JSONL session logs. Each line is an independent JSON record;
// a line that fails to parse or carries an unrecognized role is skipped
// without aborting the scan.
package transcript

import (
	"bufio"
	"encoding/json"
	"os"
	"strings"

	"github.com/xiaot623/agentmon/internal/domain"
	"github.com/xiaot623/agentmon/internal/sanitize"
	"github.com/xiaot623/agentmon/internal/tokenusage"
)

const (
	maxMessageChars = 2000
	maxPreviewChars = 240
	maxToolEvents   = 20
)

// Extract parses the transcript at path into sanitized messages. A
// missing or unreadable file yields no messages.
func Extract(path string) []domain.TranscriptMessage {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var messages []domain.TranscriptMessage
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if msg, ok := parseEntry(entry); ok {
			messages = append(messages, msg)
		}
	}
	return messages
}

// parseEntry normalizes one log line. The record may nest the message
// under "message" or be the message itself.
func parseEntry(entry map[string]any) (domain.TranscriptMessage, bool) {
	msg := entry
	if nested, ok := entry["message"].(map[string]any); ok {
		msg = nested
	}
	role, _ := msg["role"].(string)
	if role != "assistant" && role != "user" {
		return domain.TranscriptMessage{}, false
	}

	var text strings.Builder
	var events []domain.ToolEvent

	switch content := msg["content"].(type) {
	case string:
		text.WriteString(content)
	case []any:
		for _, item := range content {
			seg, ok := item.(map[string]any)
			if !ok {
				continue
			}
			switch seg["type"] {
			case "text":
				if t, _ := seg["text"].(string); strings.TrimSpace(t) != "" {
					text.WriteString(t)
					text.WriteString("\n")
				}
			case "toolCall", "tool_call", "tool-use":
				events = appendEvent(events, toolCallEvent(seg))
			case "toolResult", "tool_result":
				events = appendEvent(events, toolResultEvent(seg))
			}
		}
	}

	// Legacy shape: tool calls hoisted to the message level.
	if calls, ok := msg["toolCalls"].([]any); ok {
		for _, item := range calls {
			if seg, ok := item.(map[string]any); ok {
				events = appendEvent(events, toolCallEvent(seg))
			}
		}
	}

	body := strings.TrimSpace(text.String())
	if body == "" && len(events) == 0 {
		return domain.TranscriptMessage{}, false
	}

	out := domain.TranscriptMessage{
		Role:      role,
		Text:      sanitize.Clean(truncate(body, maxMessageChars)),
		ToolCalls: events,
	}
	if ts, ok := timestampOf(msg, entry); ok {
		out.Timestamp = &ts
	}
	return out, true
}

func toolCallEvent(seg map[string]any) domain.ToolEvent {
	args := sanitize.Clean(render(firstOf(seg, "arguments", "args", "input")))
	return domain.ToolEvent{
		Name:        strOf(seg, "name", "toolName", "tool_name"),
		Args:        args,
		ArgsPreview: ellipsize(args, maxPreviewChars),
	}
}

func toolResultEvent(seg map[string]any) domain.ToolEvent {
	result := sanitize.Clean(render(firstOf(seg, "result", "content", "output")))
	return domain.ToolEvent{
		Name:          strOf(seg, "name", "toolName", "tool_name"),
		Result:        result,
		ResultPreview: ellipsize(result, maxPreviewChars),
	}
}

func appendEvent(events []domain.ToolEvent, ev domain.ToolEvent) []domain.ToolEvent {
	if len(events) >= maxToolEvents {
		return events
	}
	return append(events, ev)
}

func timestampOf(msg, entry map[string]any) (int64, bool) {
	if v, ok := msg["timestamp"]; ok {
		if n, ok := tokenusage.Coerce(v); ok {
			return n, true
		}
	}
	if v, ok := entry["timestamp"]; ok {
		if n, ok := tokenusage.Coerce(v); ok {
			return n, true
		}
	}
	return 0, false
}

func firstOf(seg map[string]any, keys ...string) any {
	for _, key := range keys {
		if v, ok := seg[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

func strOf(seg map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := seg[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// render flattens an argument or result value to display text.
func render(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

func ellipsize(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}

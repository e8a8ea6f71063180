package provider

import (
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/packages/param"
)

// MessageRole represents the role of a message.
type MessageRole string

const (
	MessageRoleSystem    MessageRole = "system"
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleTool      MessageRole = "tool"
)

// Message is the serializable chat message the framework passes around.
// Payloads are forwarded to the server verbatim.
type Message struct {
	Role       MessageRole `json:"role"`
	Content    string      `json:"content,omitempty"`
	Name       string      `json:"name,omitempty"`
	ToolCalls  []ToolCall  `json:"tool_calls,omitempty"`
	ToolCallID string      `json:"tool_call_id,omitempty"`
}

// ToolCall represents a tool call in a serializable format.
type ToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"` // Usually "function"
	Function ToolCallFunction `json:"function"`
}

// ToolCallFunction represents a function call in a serializable format.
type ToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// SystemMessage builds a system message.
func SystemMessage(content string) Message {
	return Message{Role: MessageRoleSystem, Content: content}
}

// UserMessage builds a user message.
func UserMessage(content string) Message {
	return Message{Role: MessageRoleUser, Content: content}
}

// AssistantMessage builds an assistant message.
func AssistantMessage(content string, toolCalls []ToolCall) Message {
	return Message{Role: MessageRoleAssistant, Content: content, ToolCalls: toolCalls}
}

// ToOpenAI converts the message to the openai-go param union.
func (m Message) ToOpenAI() openai.ChatCompletionMessageParamUnion {
	switch m.Role {
	case MessageRoleSystem:
		msg := openai.SystemMessage(m.Content)
		if m.Name != "" {
			msg.OfSystem.Name = param.NewOpt(m.Name)
		}
		return msg

	case MessageRoleAssistant:
		msg := openai.AssistantMessage(m.Content)
		if m.Name != "" {
			msg.OfAssistant.Name = param.NewOpt(m.Name)
		}
		if len(m.ToolCalls) > 0 {
			toolCalls := make([]openai.ChatCompletionMessageToolCallParam, 0, len(m.ToolCalls))
			for _, tc := range m.ToolCalls {
				toolCalls = append(toolCalls, tc.toOpenAI())
			}
			msg.OfAssistant.ToolCalls = toolCalls
		}
		return msg

	case MessageRoleTool:
		return openai.ToolMessage(m.Content, m.ToolCallID)

	case MessageRoleUser:
		fallthrough
	default:
		// Unknown roles degrade to user messages rather than failing.
		msg := openai.UserMessage(m.Content)
		if m.Name != "" {
			msg.OfUser.Name = param.NewOpt(m.Name)
		}
		return msg
	}
}

func (tc ToolCall) toOpenAI() openai.ChatCompletionMessageToolCallParam {
	return openai.ChatCompletionMessageToolCallParam{
		ID: tc.ID,
		Function: openai.ChatCompletionMessageToolCallFunctionParam{
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		},
	}
}

// ToOpenAIMessages converts a transcript to openai-go params.
func ToOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		result = append(result, msg.ToOpenAI())
	}
	return result
}

// FromOpenAIMessage converts a server reply. Replies are always assistant
// messages.
func FromOpenAIMessage(msg openai.ChatCompletionMessage) Message {
	toolCalls := make([]ToolCall, 0, len(msg.ToolCalls))
	for _, tc := range msg.ToolCalls {
		toolCalls = append(toolCalls, ToolCall{
			ID:   tc.ID,
			Type: string(tc.Type),
			Function: ToolCallFunction{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		})
	}
	if len(toolCalls) == 0 {
		toolCalls = nil
	}
	return AssistantMessage(msg.Content, toolCalls)
}

// RenderTranscript flattens a chat transcript into plain text for backends
// that only expose a legacy text-completion endpoint. The trailing
// "assistant:" line prompts the model to continue the conversation.
func RenderTranscript(messages []Message) string {
	var b strings.Builder
	for _, msg := range messages {
		if msg.Content == "" {
			continue
		}
		b.WriteString(string(msg.Role))
		b.WriteString(": ")
		b.WriteString(msg.Content)
		b.WriteString("\n")
	}
	b.WriteString(string(MessageRoleAssistant))
	b.WriteString(":")
	return b.String()
}

package chat

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/mikeboe/sitechat/pkg/vectorstore"
)

// SystemPrompt is the fixed instruction sent ahead of every conversation.
func SystemPrompt(persona string) string {
	return fmt.Sprintf("You are an AI assistant representing %[1]s. You must answer user questions strictly based on the information scraped from the %[1]s website. "+
		"Use the provided website context to answer questions accurately.\n\n"+
		"Always speak in the first person as if you are %[1]s. For example:\n"+
		"- Say: 'Yes, we offer this service.'\n"+
		"- Do NOT say: '%[1]s offers this service.'\n\n"+
		"Use markdown formatting where appropriate:\n"+
		"- **Bold important words**\n"+
		"- Bullet points for features or benefits\n"+
		"- Give links to relevant pages only when they appear in the context\n"+
		"- Add line breaks between paragraphs for readability\n\n"+
		"Respond only within the context of the provided information. "+
		"If the context does not answer the question, say so instead of guessing.", persona)
}

// BuildContext joins the match excerpts in rank order.
func BuildContext(matches []vectorstore.Match) string {
	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		parts = append(parts, m.Metadata.Text)
	}
	return strings.Join(parts, "\n\n")
}

// UserPrompt is the final user turn: the context block followed by the question.
func UserPrompt(contextBlock, question string) string {
	return fmt.Sprintf("Context:\n%s\n\nQuestion: %s", contextBlock, question)
}

// BuildMessages assembles system prompt, prior history and the final user turn.
func BuildMessages(persona string, history []Turn, contextBlock, question string) ([]llms.MessageContent, error) {
	msgs := make([]llms.MessageContent, 0, len(history)+2)
	msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeSystem, SystemPrompt(persona)))
	for i, turn := range history {
		var role llms.ChatMessageType
		switch turn.Role {
		case RoleUser:
			role = llms.ChatMessageTypeHuman
		case RoleAssistant:
			role = llms.ChatMessageTypeAI
		default:
			return nil, fmt.Errorf("%w: turn %d has role %q", ErrInvalidRole, i, turn.Role)
		}
		msgs = append(msgs, llms.TextParts(role, turn.Content))
	}
	msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeHuman, UserPrompt(contextBlock, question)))
	return msgs, nil
}

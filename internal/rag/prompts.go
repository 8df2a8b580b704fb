package rag

import (
	"fmt"
	"strings"

	"github.com/rcliao/docky/internal/store"
)

const memorySystemPrompt = `You are a helpful assistant that answers questions based on provided context and conversation history.

INSTRUCTIONS:
1. Use the document context to provide accurate, well-cited answers
2. The conversation context contains either:
   - A SUMMARY of previous discussions (this replaces old exchanges)
   - Recent conversation exchanges (only the most recent ones)
3. Reference the summary when relevant (e.g., "As we discussed previously...")
4. Don't ask about missing details that might be in the summary
5. Always cite sources using [Page X] format
6. Build naturally on the provided context

CITATION FORMAT:
- Use [Page X] immediately after claims
- Include multiple pages if using multiple sources: [Pages X, Y, Z]
- Be specific about which information comes from which page

CONTEXT USAGE:
- If there's a summary, it represents our complete conversation history up to recent exchanges
- Don't assume information not in the context, but acknowledge what we've covered before
- Be conversational and natural while maintaining accuracy`

const basicSystemPrompt = `You are a helpful assistant that answers questions based on provided document context.

INSTRUCTIONS:
1. Use only the provided document context to answer questions
2. Always cite sources using [Page X] format
3. If the context doesn't contain enough information, say so clearly
4. Be specific and accurate in your responses

CITATION FORMAT:
- Use [Page X] immediately after claims
- Include multiple pages if using multiple sources: [Pages X, Y, Z]
- Be specific about which information comes from which page`

const noConversation = "No previous conversation."

// documentContext renders retrieved passages with their page labels.
func documentContext(results []store.SearchResult) string {
	if len(results) == 0 {
		return "No relevant passages were found in the document."
	}
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = fmt.Sprintf("[Page %d] %s", r.Page, r.Text)
	}
	return strings.Join(parts, "\n\n")
}

func memoryPrompt(conversation, docs, question string) string {
	if conversation == "" {
		conversation = noConversation
	}
	return fmt.Sprintf(`Conversation Context:
%s

Document Context:
%s

Current Question: %s

Please provide a comprehensive answer that considers both the document context and our conversation history.`,
		conversation, docs, question)
}

func basicPrompt(docs, question string) string {
	return fmt.Sprintf(`Document Context:
%s

Question: %s

Please provide a comprehensive answer based on the document context.`, docs, question)
}

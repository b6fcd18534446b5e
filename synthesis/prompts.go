package synthesis

import "github.com/poiesic/gist/core"

// System prompts for each pipeline entry point.
const (
	DocumentQAPrompt = "You are a helpful AI assistant. Use the provided document context to answer the user's question accurately. " +
		"If the answer is not found in the context, say so clearly. Keep answers structured and concise."

	WorkspaceQAPrompt = "You are an AI assistant helping users analyze their documents. Use the provided context to answer the query. " +
		"If the answer is not in the context, state that you don't know based on the documents. Keep the answer structured and helpful."

	ResearchPrompt = "You are a research assistant. Synthesize a comprehensive answer based ONLY on the provided web search context. " +
		"Use markdown for structure. Keep it professional and concise."

	VideoSummaryPrompt = "You are an educational assistant. Summarize the provided YouTube video transcript into a concise summary " +
		"and a list of key study notes in JSON format with 'summary' (string) and 'notes' (array of strings) keys. Output ONLY valid JSON."

	// VideoSummaryTask is the user query sent with a transcript.
	VideoSummaryTask = "Summarize this transcript and list the key study notes."
)

// VideoSummarySchema lists the fields a video summary reply must carry.
var VideoSummarySchema = []core.SchemaField{
	{Name: "summary", Kind: core.FieldString},
	{Name: "notes", Kind: core.FieldStringList},
}

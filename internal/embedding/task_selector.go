package embedding

import (
	"strings"

	"ragrt/internal/logging"
)

// =============================================================================
// TASK TYPE SELECTION
// =============================================================================

// ContentType distinguishes the two kinds of text this repo ever embeds:
// a user's question, submitted against the vector store at query time, and
// a retrieved chunk ingested into it. GenAI embeds each differently when
// asked (RETRIEVAL_QUERY vs RETRIEVAL_DOCUMENT) so queries and the chunks
// they're compared against land closer together in vector space than a
// single shared task type would produce.
type ContentType string

const (
	ContentTypeQuery ContentType = "query" // orchestrator.Embedder call over user input
	ContentTypeChunk ContentType = "chunk" // ingest's embeddingExtractor call over a retrieved snippet
)

// SelectTaskType maps a ContentType to the GenAI task type string.
func SelectTaskType(contentType ContentType) string {
	switch contentType {
	case ContentTypeQuery:
		return "RETRIEVAL_QUERY"
	case ContentTypeChunk:
		return "RETRIEVAL_DOCUMENT"
	default:
		return "SEMANTIC_SIMILARITY"
	}
}

// DetectContentType guesses whether text is a user query or an ingested
// chunk when the caller didn't say (GenAIEngine.Embed takes no content-type
// argument, matching the Embedder interface both call sites share).
// Text ending in "?" is a query at any length; text under 200 characters
// that opens with a question word is also a query; anything else is
// treated as a chunk.
func DetectContentType(text string) ContentType {
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)

	if strings.HasSuffix(trimmed, "?") {
		return ContentTypeQuery
	}
	if len(trimmed) < 200 {
		for _, prefix := range []string{"what ", "how ", "why ", "when ", "where ", "who ", "which "} {
			if strings.HasPrefix(lower, prefix) {
				return ContentTypeQuery
			}
		}
	}

	logging.EmbeddingDebug("DetectContentType: no query markers found, treating as chunk (length=%d)", len(text))
	return ContentTypeChunk
}

// GetOptimalTaskType combines detection and selection for GenAIEngine.Embed,
// which receives only the raw text and must still pick a task type.
func GetOptimalTaskType(text string) string {
	contentType := DetectContentType(text)
	taskType := SelectTaskType(contentType)
	logging.EmbeddingDebug("GetOptimalTaskType: content_type=%s task_type=%s", contentType, taskType)
	return taskType
}

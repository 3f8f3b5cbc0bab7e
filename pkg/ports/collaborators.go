// Package ports defines the narrow interfaces the engine and its handlers
// consume. Every implementation lives in an adapter; the core never imports
// one.
package ports

import "context"

// TextGenerationClient invokes a language model. Callers must wrap every
// invocation with a fallback; the client is never assumed to succeed, and
// its output is advisory only.
type TextGenerationClient interface {
	Invoke(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// RetrievalRow is one result from a similarity search.
type RetrievalRow struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// RetrievalService performs vector-similarity search over tenant documents.
type RetrievalService interface {
	Search(ctx context.Context, queryText, tenantID string, docTypes []string, metadataFilter map[string]any, topK int) ([]RetrievalRow, error)
}

// TextReviewService rewrites outbound text under a named policy (tone,
// compliance). A failing review leaves the original text standing.
type TextReviewService interface {
	Review(ctx context.Context, text, policy string) (string, error)
}

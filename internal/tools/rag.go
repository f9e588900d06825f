package tools

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// RAG queries the internal document retrieval service
type RAG struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	k          int
}

type ragRequest struct {
	Query          string `json:"query"`
	K              int    `json:"k"`
	IncludeSources bool   `json:"include_sources"`
}

type ragResponse struct {
	Answer string `json:"answer"`
}

// NewRAG creates the rag_query tool
func NewRAG(baseURL, userAgent string, timeout time.Duration) *RAG {
	return &RAG{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: timeout},
		k:          5,
	}
}

// Name returns the tool name
func (r *RAG) Name() string { return "rag_query" }

// Description tells the agent when to use the tool
func (r *RAG) Description() string {
	return "Query the internal company document store when public sources are insufficient. " +
		"Input: a refined question."
}

// Invoke sends the question to the RAG service
func (r *RAG) Invoke(ctx context.Context, input string) (string, error) {
	query := strings.TrimSpace(input)
	if query == "" {
		return "", fmt.Errorf("empty query")
	}

	var resp ragResponse
	req := ragRequest{Query: query, K: r.k, IncludeSources: false}
	if err := postJSON(ctx, r.httpClient, r.baseURL+"/query", r.userAgent, req, &resp); err != nil {
		return "", err
	}

	answer := strings.TrimSpace(resp.Answer)
	if answer == "" {
		return "No additional info available from source documents.", nil
	}
	return answer, nil
}

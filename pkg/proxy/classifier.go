package proxy

import (
	"context"

	"mercator-hq/quaestor/pkg/routing"
	"mercator-hq/quaestor/pkg/upstream/anthropic"
)

// completer is the slice of the upstream client the classifier needs.
type completer interface {
	Complete(ctx context.Context, req *anthropic.MessagesRequest, creds anthropic.Credentials) (*anthropic.MessagesResponse, error)
}

// requestClassifier adapts the upstream client to routing.Classifier for
// one request. The gateway holds no API key of its own, so every
// classification call authenticates with the caller's credentials and its
// tokens bill to the caller's budget.
type requestClassifier struct {
	client completer
	creds  anthropic.Credentials
}

// ClassifierFor binds the caller's credentials to the upstream client.
// Returns nil when the credentials are empty, which makes the router skip
// the classification call.
func ClassifierFor(client completer, creds anthropic.Credentials) routing.Classifier {
	if client == nil || creds.Empty() {
		return nil
	}
	return &requestClassifier{client: client, creds: creds}
}

func (c *requestClassifier) Classify(ctx context.Context, model, prompt string, maxTokens int) (*routing.ClassifierReply, error) {
	resp, err := c.client.Complete(ctx, &anthropic.MessagesRequest{
		Model:     model,
		MaxTokens: maxTokens,
		Messages: []anthropic.Message{
			{Role: "user", Content: prompt},
		},
	}, c.creds)
	if err != nil {
		return nil, err
	}
	return &routing.ClassifierReply{
		Text:         resp.Text(),
		Model:        resp.Model,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}, nil
}

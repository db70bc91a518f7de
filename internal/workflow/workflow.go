// Package workflow executes the fixed pipelines run against a claimed queue
// item after routing. Each runner mutates a State and reports its outcome as
// the opaque result payload stored on the queue item.
package workflow

import (
	"context"

	"github.com/olga-ai/atendimento/internal/router"
)

// State is the mutable flow state threaded through pipeline stages.
type State struct {
	Phone   string
	Message string

	Decision router.Decision

	PolicyValidated bool
	ClaimClassified bool
	FraudAnalyzed   bool
	FraudScore      int
	Protocol        string
	ResponseSent    bool
}

// Result flattens the state into the payload recorded on completion.
func (s *State) Result() map[string]any {
	out := map[string]any{
		"flow":        s.Decision.Flow,
		"next_action": s.Decision.NextAction,
	}
	if s.Protocol != "" {
		out["protocol"] = s.Protocol
	}
	if s.FraudAnalyzed {
		out["fraud_score"] = s.FraudScore
	}
	if s.ResponseSent {
		out["response_sent"] = true
	}
	return out
}

// Runner executes one workflow against the flow state.
type Runner interface {
	Run(ctx context.Context, s *State) error
}

// Response is the outgoing reply a workflow produces: the text for the
// customer plus the routing outcome that produced it.
type Response struct {
	Phone      string
	Message    string
	Flow       string
	Protocol   string
	NextAction string
}

// Notifier delivers the workflow's outgoing response.
type Notifier interface {
	Send(ctx context.Context, r Response) (string, error)
}

package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/olga-ai/atendimento/internal/model"
)

// ErrNoPolicy is returned by the validate stage when flow state carries no
// customer data to validate against.
var ErrNoPolicy = errors.New("no customer data to validate policy")

// SinistroRepo persists registered claims and assigns protocol numbers.
type SinistroRepo interface {
	Create(ctx context.Context, customerID *int64, payload map[string]any) (*model.Sinistro, error)
}

// SinistroFlow runs the claim-processing pipeline:
// validate policy -> classify claim -> analyze fraud -> generate protocol ->
// send response. Stages run in order; the first error aborts the flow.
type SinistroFlow struct {
	sinistros SinistroRepo
	notifier  Notifier
}

func NewSinistroFlow(sinistros SinistroRepo, notifier Notifier) *SinistroFlow {
	return &SinistroFlow{sinistros: sinistros, notifier: notifier}
}

func (f *SinistroFlow) Run(ctx context.Context, s *State) error {
	type stage struct {
		name string
		fn   func(context.Context, *State) error
	}
	stages := []stage{
		{"validate_policy", f.validatePolicy},
		{"classify_claim", f.classifyClaim},
		{"analyze_fraud", f.analyzeFraud},
		{"generate_protocol", f.generateProtocol},
		{"send_response", f.sendResponse},
	}
	for _, st := range stages {
		if err := st.fn(ctx, s); err != nil {
			return fmt.Errorf("%s: %w", st.name, err)
		}
	}
	return nil
}

func (f *SinistroFlow) validatePolicy(ctx context.Context, s *State) error {
	if s.Decision.Customer == nil {
		return ErrNoPolicy
	}
	s.PolicyValidated = true
	return nil
}

func (f *SinistroFlow) classifyClaim(ctx context.Context, s *State) error {
	s.ClaimClassified = true
	return nil
}

func (f *SinistroFlow) analyzeFraud(ctx context.Context, s *State) error {
	s.FraudScore = FraudScore(s.Message)
	s.FraudAnalyzed = true
	return nil
}

func (f *SinistroFlow) generateProtocol(ctx context.Context, s *State) error {
	var customerID *int64
	if s.Decision.Customer != nil {
		id := s.Decision.Customer.ID
		customerID = &id
	}
	sin, err := f.sinistros.Create(ctx, customerID, map[string]any{
		"phone":       s.Phone,
		"message":     s.Message,
		"fraud_score": s.FraudScore,
	})
	if err != nil {
		return err
	}
	s.Protocol = sin.Protocol
	return nil
}

func (f *SinistroFlow) sendResponse(ctx context.Context, s *State) error {
	if f.notifier == nil {
		return nil
	}
	msg := fmt.Sprintf("Sinistro registrado. Protocolo: %s", s.Protocol)
	_, err := f.notifier.Send(ctx, Response{
		Phone:      s.Phone,
		Message:    msg,
		Flow:       s.Decision.Flow,
		Protocol:   s.Protocol,
		NextAction: s.Decision.NextAction,
	})
	if err != nil {
		return err
	}
	s.ResponseSent = true
	return nil
}

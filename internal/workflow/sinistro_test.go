package workflow

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/olga-ai/atendimento/internal/model"
	"github.com/olga-ai/atendimento/internal/router"
)

type fakeSinistroRepo struct {
	protocol string
	err      error

	gotCustomerID *int64
	gotPayload    map[string]any
}

func (f *fakeSinistroRepo) Create(ctx context.Context, customerID *int64, payload map[string]any) (*model.Sinistro, error) {
	f.gotCustomerID = customerID
	f.gotPayload = payload
	if f.err != nil {
		return nil, f.err
	}
	return &model.Sinistro{
		ID:         42,
		CustomerID: customerID,
		Protocol:   f.protocol,
		Status:     model.SinistroOpen,
		Payload:    payload,
	}, nil
}

type fakeNotifier struct {
	err error

	got   Response
	calls int
}

func (f *fakeNotifier) Send(ctx context.Context, r Response) (string, error) {
	f.calls++
	f.got = r
	return "remote-1", f.err
}

func sinistroState() *State {
	return &State{
		Phone:   "+5511999",
		Message: "batida urgente na marginal",
		Decision: router.Decision{
			Flow:       router.FlowSinistro,
			Customer:   &model.Customer{ID: 7, Name: "Ana", HasActivePolicy: true},
			NextAction: router.ActionValidatePolicy,
		},
	}
}

func TestSinistroFlow_RunsAllStages(t *testing.T) {
	t.Parallel()

	repo := &fakeSinistroRepo{protocol: "SIN000042"}
	notifier := &fakeNotifier{}
	flow := NewSinistroFlow(repo, notifier)

	s := sinistroState()
	if err := flow.Run(context.Background(), s); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if !s.PolicyValidated || !s.ClaimClassified || !s.FraudAnalyzed {
		t.Fatalf("expected all analysis stages marked, got %+v", s)
	}
	if s.Protocol != "SIN000042" {
		t.Fatalf("expected protocol from repo, got %q", s.Protocol)
	}
	if !s.ResponseSent {
		t.Fatalf("expected response sent")
	}
	if repo.gotCustomerID == nil || *repo.gotCustomerID != 7 {
		t.Fatalf("expected customer id 7 persisted, got %v", repo.gotCustomerID)
	}
	if repo.gotPayload["fraud_score"] != 45 {
		t.Fatalf("expected fraud score 45 in payload, got %v", repo.gotPayload["fraud_score"])
	}
	if notifier.got.Phone != "+5511999" || !strings.Contains(notifier.got.Message, "SIN000042") {
		t.Fatalf("unexpected notification: %q to %q", notifier.got.Message, notifier.got.Phone)
	}
	if notifier.got.Flow != router.FlowSinistro || notifier.got.Protocol != "SIN000042" {
		t.Fatalf("expected routing outcome on notification, got %+v", notifier.got)
	}

	result := s.Result()
	if result["protocol"] != "SIN000042" || result["fraud_score"] != 45 {
		t.Fatalf("unexpected result payload: %#v", result)
	}
}

func TestSinistroFlow_NoCustomerFailsValidation(t *testing.T) {
	t.Parallel()

	flow := NewSinistroFlow(&fakeSinistroRepo{}, &fakeNotifier{})
	s := sinistroState()
	s.Decision.Customer = nil

	err := flow.Run(context.Background(), s)
	if !errors.Is(err, ErrNoPolicy) {
		t.Fatalf("expected ErrNoPolicy, got %v", err)
	}
	if !strings.Contains(err.Error(), "validate_policy") {
		t.Fatalf("expected failing stage in error, got %q", err)
	}
}

func TestSinistroFlow_RepoErrorAbortsBeforeResponse(t *testing.T) {
	t.Parallel()

	boom := errors.New("insert failed")
	notifier := &fakeNotifier{}
	flow := NewSinistroFlow(&fakeSinistroRepo{err: boom}, notifier)

	s := sinistroState()
	err := flow.Run(context.Background(), s)
	if !errors.Is(err, boom) {
		t.Fatalf("expected repo error, got %v", err)
	}
	if notifier.calls != 0 {
		t.Fatalf("response must not be sent when protocol generation fails")
	}
}

func TestSinistroFlow_NilNotifierSkipsResponse(t *testing.T) {
	t.Parallel()

	flow := NewSinistroFlow(&fakeSinistroRepo{protocol: "SIN000001"}, nil)
	s := sinistroState()
	if err := flow.Run(context.Background(), s); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if s.ResponseSent {
		t.Fatalf("response_sent must stay false without a notifier")
	}
}

func TestFraudScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		message string
		want    int
	}{
		{"sinistro simples", 10},
		{"é URGENTE por favor", 30},
		{"tive uma batida", 25},
		{"batida urgente!", 45},
	}
	for _, tt := range tests {
		if got := FraudScore(tt.message); got != tt.want {
			t.Errorf("FraudScore(%q) = %d, want %d", tt.message, got, tt.want)
		}
	}
}

func TestMessageFlows_SendReplyAndRecordResult(t *testing.T) {
	t.Parallel()

	notifier := &fakeNotifier{}
	runners := Runners(&fakeSinistroRepo{}, notifier)

	for _, flow := range []string{router.FlowSinistroIntake, router.FlowReativacao, router.FlowVendas, router.FlowTriagem} {
		s := &State{
			Phone:    "+5511888",
			Message:  "oi",
			Decision: router.Decision{Flow: flow, NextAction: router.ActionAskIntent},
		}
		if err := runners[flow].Run(context.Background(), s); err != nil {
			t.Fatalf("%s Run() error: %v", flow, err)
		}
		if !s.ResponseSent {
			t.Fatalf("%s: expected response sent", flow)
		}
		if notifier.got.Flow != flow {
			t.Fatalf("%s: notification missing flow, got %+v", flow, notifier.got)
		}
		if s.Result()["flow"] != flow {
			t.Fatalf("%s: result missing flow name", flow)
		}
	}

	if notifier.calls != 4 {
		t.Fatalf("expected 4 notifications, got %d", notifier.calls)
	}
}

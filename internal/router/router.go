// Package router combines intent classification with the customer lookup to
// pick a workflow for an incoming message. It reads no queue state.
package router

import (
	"context"

	"github.com/olga-ai/atendimento/internal/model"
)

// Workflow names.
const (
	FlowSinistro       = "SINISTRO"
	FlowSinistroIntake = "SINISTRO_INTAKE"
	FlowReativacao     = "REATIVACAO"
	FlowVendas         = "VENDAS"
	FlowTriagem        = "TRIAGEM"
)

// Next actions handed to the workflow runner.
const (
	ActionValidatePolicy     = "VALIDATE_POLICY"
	ActionCollectIDAndPolicy = "COLLECT_ID_AND_POLICY"
	ActionOfferRenewal       = "OFFER_RENEWAL"
	ActionCollectLeadInfo    = "COLLECT_LEAD_INFO"
	ActionAskIntent          = "ASK_INTENT"
)

type CustomerFinder interface {
	FindByPhone(ctx context.Context, phone string) (*model.Customer, error)
}

type Decision struct {
	Flow        string          `json:"flow"`
	Subworkflow string          `json:"subworkflow"`
	Customer    *model.Customer `json:"customer_data"`
	NextAction  string          `json:"next_action"`
}

type Router struct {
	customers CustomerFinder
}

func New(customers CustomerFinder) *Router {
	return &Router{customers: customers}
}

// Route evaluates the decision table in precedence order: sinistro intent
// first (split on active policy), then known customers without an active
// policy, then sales intent, then triage.
func (r *Router) Route(ctx context.Context, phone, message string) (Decision, error) {
	cust, err := r.customers.FindByPhone(ctx, phone)
	if err != nil {
		return Decision{}, err
	}
	intent := ClassifyIntent(message)

	if intent == IntentSinistro {
		if cust != nil && cust.HasActivePolicy {
			return Decision{
				Flow:        FlowSinistro,
				Subworkflow: "process-sinistro",
				Customer:    cust,
				NextAction:  ActionValidatePolicy,
			}, nil
		}
		return Decision{
			Flow:        FlowSinistroIntake,
			Subworkflow: "collect-identity-and-policy",
			Customer:    cust,
			NextAction:  ActionCollectIDAndPolicy,
		}, nil
	}

	if cust != nil && !cust.HasActivePolicy {
		return Decision{
			Flow:        FlowReativacao,
			Subworkflow: "process-reativacao",
			Customer:    cust,
			NextAction:  ActionOfferRenewal,
		}, nil
	}

	if intent == IntentVendas {
		return Decision{
			Flow:        FlowVendas,
			Subworkflow: "process-vendas",
			Customer:    cust,
			NextAction:  ActionCollectLeadInfo,
		}, nil
	}

	return Decision{
		Flow:        FlowTriagem,
		Subworkflow: "process-triagem",
		Customer:    cust,
		NextAction:  ActionAskIntent,
	}, nil
}

package workflow

import (
	"context"
	"fmt"

	"github.com/olga-ai/atendimento/internal/router"
)

// messageFlow covers the single-stage workflows (intake, reativação, vendas,
// triagem): reply with the flow's prompt and record the next action.
type messageFlow struct {
	reply    string
	notifier Notifier
}

func (f *messageFlow) Run(ctx context.Context, s *State) error {
	if f.notifier == nil {
		return nil
	}
	_, err := f.notifier.Send(ctx, Response{
		Phone:      s.Phone,
		Message:    f.reply,
		Flow:       s.Decision.Flow,
		NextAction: s.Decision.NextAction,
	})
	if err != nil {
		return fmt.Errorf("send_response: %w", err)
	}
	s.ResponseSent = true
	return nil
}

// Runners builds the full flow table keyed by the router's workflow name.
func Runners(sinistros SinistroRepo, notifier Notifier) map[string]Runner {
	return map[string]Runner{
		router.FlowSinistro: NewSinistroFlow(sinistros, notifier),
		router.FlowSinistroIntake: &messageFlow{
			reply:    "Para abrir o sinistro, envie seu CPF e o número da apólice.",
			notifier: notifier,
		},
		router.FlowReativacao: &messageFlow{
			reply:    "Sua apólice está inativa. Quer ver as condições de reativação?",
			notifier: notifier,
		},
		router.FlowVendas: &messageFlow{
			reply:    "Ótimo! Me conta o que você quer segurar para montarmos a cotação.",
			notifier: notifier,
		},
		router.FlowTriagem: &messageFlow{
			reply:    "Como posso ajudar? Sinistro, cotação ou renovação?",
			notifier: notifier,
		},
	}
}

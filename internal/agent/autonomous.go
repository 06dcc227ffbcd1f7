package agent

import (
	"context"
	"fmt"

	"github.com/mightyoctopus/worthbrain/internal/domain/entity"
	"github.com/mightyoctopus/worthbrain/internal/domain/service/planner"
	"github.com/mightyoctopus/worthbrain/internal/infrastructure/openai"
)

const (
	defaultMaxToolRounds = 12

	systemInstruction = "You find great deals on bargain products using your tools, " +
		"and notify the user of the best bargain."
	taskInstruction = "Scan for bargains, estimate the true value of promising candidates, " +
		"and notify me of the single best deal whose discount exceeds the threshold. " +
		"Notify at most once, then summarize what you found."
)

// ChatBackend is the conversational tool-call backend driving the loop.
type ChatBackend interface {
	Complete(ctx context.Context, messages []openai.Message, tools []openai.Tool) (openai.Completion, error)
}

// Autonomous delegates the scan/estimate/notify ordering to a language
// model. The model only chooses which tool to call next; argument
// validation and the single-notify rule are enforced here, not trusted
// to the model.
type Autonomous struct {
	backend   ChatBackend
	source    planner.DealSource
	pricer    planner.Pricer
	notifier  planner.Notifier
	maxRounds int
}

func NewAutonomous(
	backend ChatBackend,
	source planner.DealSource,
	pricer planner.Pricer,
	notifier planner.Notifier,
) *Autonomous {
	return &Autonomous{
		backend:   backend,
		source:    source,
		pricer:    pricer,
		notifier:  notifier,
		maxRounds: defaultMaxToolRounds,
	}
}

func (a *Autonomous) WithMaxToolRounds(n int) *Autonomous {
	a.maxRounds = n
	return a
}

// Plan drives the tool-calling loop until the model answers with plain
// text or the round cap is reached. The result is the opportunity
// captured by the first notify call, or nil.
func (a *Autonomous) Plan(ctx context.Context, excluding map[string]struct{}) (*entity.Opportunity, error) {
	tools := Catalog()
	box := newToolbox(a.source, a.pricer, a.notifier, excluding)

	transcript := []openai.Message{
		{Role: openai.RoleSystem, Content: systemInstruction},
		{Role: openai.RoleUser, Content: taskInstruction},
	}

	for round := 0; round < a.maxRounds; round++ {
		completion, err := a.backend.Complete(ctx, transcript, tools)
		if err != nil {
			return nil, fmt.Errorf("backend.Complete: %w", err)
		}

		if len(completion.ToolCalls) == 0 {
			logger(ctx).Info("agent loop finished",
				"rounds", round+1,
				"notified", box.captured != nil,
			)
			return box.captured, nil
		}

		transcript = append(transcript, openai.Message{
			Role:      openai.RoleAssistant,
			Content:   completion.Content,
			ToolCalls: completion.ToolCalls,
		})

		for _, call := range completion.ToolCalls {
			logger(ctx).Info("agent tool call", "tool", call.Function.Name)

			transcript = append(transcript, openai.Message{
				Role:       openai.RoleTool,
				Content:    box.Dispatch(ctx, call),
				ToolCallID: call.ID,
			})
		}
	}

	logger(ctx).Warn("agent loop hit round cap", "max_rounds", a.maxRounds)

	return box.captured, nil
}

package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mightyoctopus/worthbrain/internal/domain/entity"
	"github.com/mightyoctopus/worthbrain/internal/infrastructure/openai"
)

type scriptedBackend struct {
	turns []openai.Completion

	transcripts [][]openai.Message
}

func (s *scriptedBackend) Complete(_ context.Context, messages []openai.Message, _ []openai.Tool) (openai.Completion, error) {
	s.transcripts = append(s.transcripts, append([]openai.Message(nil), messages...))

	if len(s.turns) == 0 {
		return openai.Completion{Content: "done", FinishReason: "stop"}, nil
	}

	turn := s.turns[0]
	s.turns = s.turns[1:]
	return turn, nil
}

type staticSource struct {
	deals []entity.Deal
}

func (s staticSource) Fetch(_ context.Context, excluding map[string]struct{}) ([]entity.Deal, error) {
	var out []entity.Deal
	for _, d := range s.deals {
		if _, skip := excluding[d.URL]; skip {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

type staticPricer struct {
	price float64
}

func (s staticPricer) Price(_ context.Context, _ string) (float64, error) {
	return s.price, nil
}

type recordingNotifier struct {
	sent []string
	err  error
}

func (r *recordingNotifier) Send(_ context.Context, message string) error {
	r.sent = append(r.sent, message)
	return r.err
}

func toolCall(id, name, arguments string) openai.ToolCall {
	return openai.ToolCall{
		ID:   id,
		Type: "function",
		Function: openai.FunctionCall{
			Name:      name,
			Arguments: arguments,
		},
	}
}

func TestAutonomousPlanFullLoop(t *testing.T) {
	backend := &scriptedBackend{turns: []openai.Completion{
		{ToolCalls: []openai.ToolCall{toolCall("c1", toolScan, "{}")}},
		{ToolCalls: []openai.ToolCall{toolCall("c2", toolEstimate, `{"description":"espresso machine"}`)}},
		{ToolCalls: []openai.ToolCall{toolCall("c3", toolNotify,
			`{"description":"espresso machine","deal_price":50,"estimated_true_value":127,"url":"https://deals.example/espresso"}`)}},
		{Content: "Notified you about the espresso machine.", FinishReason: "stop"},
	}}
	notifier := &recordingNotifier{}

	planner := NewAutonomous(backend,
		staticSource{deals: []entity.Deal{{ProductDescription: "espresso machine", Price: 50, URL: "https://deals.example/espresso"}}},
		staticPricer{price: 127},
		notifier,
	)

	opp, err := planner.Plan(context.Background(), nil)
	require.NoError(t, err)
	require.NotNil(t, opp)
	require.Equal(t, "https://deals.example/espresso", opp.Deal.URL)
	require.InDelta(t, 77.0, opp.Discount, 1e-9)

	require.Len(t, notifier.sent, 1)
	require.Contains(t, notifier.sent[0], "Discount=$77.00")

	// Transcript grows by one assistant and one tool message per round.
	last := backend.transcripts[len(backend.transcripts)-1]
	require.Equal(t, openai.RoleSystem, last[0].Role)
	require.Equal(t, openai.RoleUser, last[1].Role)
	require.Equal(t, openai.RoleAssistant, last[2].Role)
	require.Equal(t, openai.RoleTool, last[3].Role)
	require.Equal(t, "c1", last[3].ToolCallID)
	require.Contains(t, last[3].Content, "espresso machine")
}

func TestAutonomousPlanSingleNotifyInvariant(t *testing.T) {
	backend := &scriptedBackend{turns: []openai.Completion{
		{ToolCalls: []openai.ToolCall{
			toolCall("c1", toolNotify,
				`{"description":"first","deal_price":10,"estimated_true_value":100,"url":"https://deals.example/first"}`),
			toolCall("c2", toolNotify,
				`{"description":"second","deal_price":10,"estimated_true_value":500,"url":"https://deals.example/second"}`),
		}},
		{Content: "done", FinishReason: "stop"},
	}}
	notifier := &recordingNotifier{}

	planner := NewAutonomous(backend, staticSource{}, staticPricer{}, notifier)

	opp, err := planner.Plan(context.Background(), nil)
	require.NoError(t, err)
	require.NotNil(t, opp)
	require.Equal(t, "https://deals.example/first", opp.Deal.URL, "first notify wins")
	require.Len(t, notifier.sent, 2, "later calls still deliver, they just do not replace the result")
}

func TestAutonomousPlanValidationFeedback(t *testing.T) {
	backend := &scriptedBackend{turns: []openai.Completion{
		{ToolCalls: []openai.ToolCall{toolCall("c1", toolNotify, `{"description":"x","deal_price":10}`)}},
		{Content: "giving up", FinishReason: "stop"},
	}}
	notifier := &recordingNotifier{}

	planner := NewAutonomous(backend, staticSource{}, staticPricer{}, notifier)

	opp, err := planner.Plan(context.Background(), nil)
	require.NoError(t, err)
	require.Nil(t, opp, "invalid notify call must not capture a result")
	require.Empty(t, notifier.sent)

	last := backend.transcripts[len(backend.transcripts)-1]
	toolMsg := last[len(last)-1]
	require.Equal(t, openai.RoleTool, toolMsg.Role)
	require.True(t, strings.HasPrefix(toolMsg.Content, "Error:"), "model gets the failure as a tool result")
}

func TestAutonomousPlanRejectsUnknownArguments(t *testing.T) {
	backend := &scriptedBackend{turns: []openai.Completion{
		{ToolCalls: []openai.ToolCall{toolCall("c1", toolEstimate, `{"description":"x","bribe":1}`)}},
		{Content: "done", FinishReason: "stop"},
	}}

	planner := NewAutonomous(backend, staticSource{}, staticPricer{price: 10}, &recordingNotifier{})

	opp, err := planner.Plan(context.Background(), nil)
	require.NoError(t, err)
	require.Nil(t, opp)

	last := backend.transcripts[len(backend.transcripts)-1]
	require.True(t, strings.HasPrefix(last[len(last)-1].Content, "Error:"))
}

func TestAutonomousPlanScanReportsSentinelOnEmpty(t *testing.T) {
	backend := &scriptedBackend{turns: []openai.Completion{
		{ToolCalls: []openai.ToolCall{toolCall("c1", toolScan, "{}")}},
		{Content: "nothing out there", FinishReason: "stop"},
	}}

	planner := NewAutonomous(backend, staticSource{}, staticPricer{}, &recordingNotifier{})

	opp, err := planner.Plan(context.Background(), nil)
	require.NoError(t, err)
	require.Nil(t, opp)

	last := backend.transcripts[len(backend.transcripts)-1]
	require.Equal(t, noDealsSentinel, last[len(last)-1].Content)
}

func TestAutonomousPlanRoundCap(t *testing.T) {
	// Backend that always wants another scan.
	backend := &loopingBackend{}

	planner := NewAutonomous(backend, staticSource{}, staticPricer{}, &recordingNotifier{}).
		WithMaxToolRounds(3)

	opp, err := planner.Plan(context.Background(), nil)
	require.NoError(t, err)
	require.Nil(t, opp)
	require.Equal(t, 3, backend.calls)
}

type loopingBackend struct {
	calls int
}

func (l *loopingBackend) Complete(_ context.Context, _ []openai.Message, _ []openai.Tool) (openai.Completion, error) {
	l.calls++
	return openai.Completion{
		ToolCalls: []openai.ToolCall{toolCall("loop", toolScan, "{}")},
	}, nil
}

func TestCatalogDeclaresStrictSchemas(t *testing.T) {
	tools := Catalog()
	require.Len(t, tools, 3)

	for _, tool := range tools {
		require.Equal(t, "function", tool.Type)

		var schema map[string]any
		require.NoError(t, json.Unmarshal(tool.Function.Parameters, &schema))
		require.Equal(t, false, schema["additionalProperties"], "tool %s", tool.Function.Name)
	}
}

package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"

	"github.com/mightyoctopus/worthbrain/internal/domain"
	"github.com/mightyoctopus/worthbrain/internal/domain/entity"
	"github.com/mightyoctopus/worthbrain/internal/domain/service/planner"
	"github.com/mightyoctopus/worthbrain/internal/infrastructure/openai"
	"github.com/mightyoctopus/worthbrain/pkg/errcodes"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals

const (
	toolScan     = "scan_for_bargains"
	toolEstimate = "estimate_true_value"
	toolNotify   = "notify_of_deal"

	noDealsSentinel = "No deals found."
)

// Tool argument payloads. Model output is untrusted input: each call
// is decoded exactly once into its typed payload and validated before
// dispatch.
type estimateArgs struct {
	Description string `json:"description" validate:"required"`
}

type notifyArgs struct {
	Description        string  `json:"description"          validate:"required"`
	DealPrice          float64 `json:"deal_price"           validate:"gte=0"`
	EstimatedTrueValue float64 `json:"estimated_true_value" validate:"gte=0"`
	URL                string  `json:"url"                  validate:"required,url"`
}

// Catalog declares the three capabilities offered to the model.
func Catalog() []openai.Tool {
	return []openai.Tool{
		{
			Type: "function",
			Function: openai.ToolFunction{
				Name:        toolScan,
				Description: "Scan deal feeds and return a list of current bargain candidates with their advertised prices and URLs.",
				Parameters: jsoniter.RawMessage(`{
					"type": "object",
					"properties": {},
					"additionalProperties": false
				}`),
			},
		},
		{
			Type: "function",
			Function: openai.ToolFunction{
				Name:        toolEstimate,
				Description: "Estimate the true market value of a product from its description.",
				Parameters: jsoniter.RawMessage(`{
					"type": "object",
					"properties": {
						"description": {"type": "string", "description": "Product description to price"}
					},
					"required": ["description"],
					"additionalProperties": false
				}`),
			},
		},
		{
			Type: "function",
			Function: openai.ToolFunction{
				Name:        toolNotify,
				Description: "Notify the user of the single best bargain found. Call at most once, for the deal with the largest discount.",
				Parameters: jsoniter.RawMessage(`{
					"type": "object",
					"properties": {
						"description": {"type": "string", "description": "Product description"},
						"deal_price": {"type": "number", "description": "Advertised deal price in dollars"},
						"estimated_true_value": {"type": "number", "description": "Estimated true value in dollars"},
						"url": {"type": "string", "description": "Deal URL"}
					},
					"required": ["description", "deal_price", "estimated_true_value", "url"],
					"additionalProperties": false
				}`),
			},
		},
	}
}

// toolbox executes tool calls for one planning run. It owns the run's
// captured result and enforces the first-notify-wins rule.
type toolbox struct {
	source    planner.DealSource
	pricer    planner.Pricer
	notifier  planner.Notifier
	excluding map[string]struct{}
	validate  *validator.Validate

	captured *entity.Opportunity
}

func newToolbox(
	source planner.DealSource,
	pricer planner.Pricer,
	notifier planner.Notifier,
	excluding map[string]struct{},
) *toolbox {
	return &toolbox{
		source:    source,
		pricer:    pricer,
		notifier:  notifier,
		excluding: excluding,
		validate:  validator.New(),
	}
}

// Dispatch executes one tool call and returns the result text fed
// back into the transcript. Invalid arguments produce an error result
// for the model to correct, not a run abort.
func (t *toolbox) Dispatch(ctx context.Context, call openai.ToolCall) string {
	result, err := t.execute(ctx, call)
	if err != nil {
		logger(ctx).Warn("tool call failed",
			"tool", call.Function.Name,
			"error", err,
		)
		return fmt.Sprintf("Error: %v", err)
	}

	return result
}

func (t *toolbox) execute(ctx context.Context, call openai.ToolCall) (string, error) {
	switch call.Function.Name {
	case toolScan:
		return t.scan(ctx)
	case toolEstimate:
		args, err := decodeArgs[estimateArgs](t.validate, call.Function.Arguments)
		if err != nil {
			return "", err
		}
		return t.estimate(ctx, args)
	case toolNotify:
		args, err := decodeArgs[notifyArgs](t.validate, call.Function.Arguments)
		if err != nil {
			return "", err
		}
		return t.notify(ctx, args)
	default:
		return "", domain.NewError(errcodes.InvalidToolCall,
			fmt.Sprintf("unknown tool %q", call.Function.Name))
	}
}

func decodeArgs[T any](validate *validator.Validate, raw string) (T, error) {
	var args T

	decoder := json.NewDecoder(strings.NewReader(raw))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&args); err != nil {
		return args, domain.WrapError(err, errcodes.InvalidToolCall, "decode tool arguments")
	}

	if err := validate.Struct(&args); err != nil {
		return args, domain.WrapError(err, errcodes.InvalidToolCall, "validate tool arguments")
	}

	return args, nil
}

func (t *toolbox) scan(ctx context.Context) (string, error) {
	deals, err := t.source.Fetch(ctx, t.excluding)
	if err != nil {
		return "", fmt.Errorf("fetch deals: %w", err)
	}

	if len(deals) == 0 {
		return noDealsSentinel, nil
	}

	serialized, err := json.MarshalIndent(deals, "", "  ")
	if err != nil {
		return "", fmt.Errorf("serialize deals: %w", err)
	}

	logger(ctx).Info("scan tool returned candidates", "count", len(deals))

	return string(serialized), nil
}

func (t *toolbox) estimate(ctx context.Context, args estimateArgs) (string, error) {
	price, err := t.pricer.Price(ctx, args.Description)
	if err != nil {
		return "", fmt.Errorf("price description: %w", err)
	}

	return fmt.Sprintf("The estimated true value of this item is $%.2f", price), nil
}

// notify sends the alert and captures the run result. Later calls in
// the same run still deliver but never replace the first capture.
func (t *toolbox) notify(ctx context.Context, args notifyArgs) (string, error) {
	opp := entity.NewOpportunity(entity.Deal{
		ProductDescription: args.Description,
		Price:              args.DealPrice,
		URL:                args.URL,
	}, args.EstimatedTrueValue)

	delivered := true
	if err := t.notifier.Send(ctx, planner.FormatAlert(opp)); err != nil {
		delivered = false
		logger(ctx).Error("notification delivery failed",
			"url", opp.Deal.URL,
			"error", err,
		)
	}

	// The opportunity is recorded even on delivery failure so the URL
	// is deduplicated on later runs.
	if t.captured == nil {
		t.captured = &opp
	} else {
		logger(ctx).Warn("repeated notify call ignored for run result", "url", opp.Deal.URL)
	}

	if !delivered {
		return "Notification could not be delivered, but the deal was recorded.", nil
	}

	return "Notification sent.", nil
}

package orchestrator

import (
	"context"
	"strings"
	"time"

	"ragrt/internal/auditstream"
	"ragrt/internal/controller"
	"ragrt/internal/logging"
	"ragrt/internal/rag"
	"ragrt/internal/scorer"
	"ragrt/internal/types"
)

// secondPassConfidenceFloor and secondPassCheckpointPosition gate the
// Reasoning mode's second generator pass: below the floor, or exactly
// at this cycle position, a verification pass runs.
const (
	secondPassConfidenceFloor    = 0.7
	secondPassCheckpointPosition = 6
	secondPassConfidenceBump     = 0.1
)

// Embedder is the minimal collaborator the orchestrator needs from an
// embedding engine: turning text into a query vector for the RAG
// pipeline.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Response is the record returned for a single orchestrated request,
// per spec.md §4.G.
type Response struct {
	Text               string
	Position           types.CyclePosition
	Confidence         float64
	Checkpoint         bool
	Mode               Mode
	SecondPassUsed     bool
	LocalGeneratorUsed bool
	ProcessingTimeMS   int64
}

// Orchestrator ties together mode selection, RAG retrieval, the cyclic
// controller, the scorer, and an external generator.
type Orchestrator struct {
	generator  types.Generator
	controller *controller.Controller
	pipeline   *rag.Pipeline
	embedder   Embedder
	scorer     *scorer.Scorer
	audit      *auditstream.Manager
}

// New constructs an Orchestrator. Any of pipeline/embedder may be nil
// if retrieval is not configured; Fast mode never needs them.
func New(generator types.Generator, ctrl *controller.Controller, pipeline *rag.Pipeline, embedder Embedder, sc *scorer.Scorer, audit *auditstream.Manager) *Orchestrator {
	return &Orchestrator{generator: generator, controller: ctrl, pipeline: pipeline, embedder: embedder, scorer: sc, audit: audit}
}

// Handle resolves a mode, assembles context, invokes the generator, and
// runs the controller/scorer refinement, falling back to progressively
// cheaper modes on generator failure exactly once per step down.
func (o *Orchestrator) Handle(ctx context.Context, sessionID, input string, requested Mode) (Response, error) {
	start := time.Now()
	timer := logging.StartTimer(logging.CategoryOrchestrator, "Handle")
	defer timer.Stop()

	mode := ResolveMode(requested, input)

	resp, err := o.run(ctx, sessionID, input, mode)
	for err != nil {
		next, ok := fallback(mode)
		if !ok {
			o.recordFailure(sessionID, err)
			return Response{}, types.NewError(types.KindUpstream, "orchestrator.Handle", "generation failed at Fast mode", err)
		}
		logging.OrchestratorWarn("mode %s failed (%v), falling back to %s", mode, err, next)
		mode = next
		resp, err = o.run(ctx, sessionID, input, mode)
	}

	resp.ProcessingTimeMS = time.Since(start).Milliseconds()
	return resp, nil
}

func (o *Orchestrator) recordFailure(sessionID string, cause error) {
	if o.audit == nil {
		return
	}
	stream := o.audit.Stream(sessionID)
	_, _ = stream.RecordEvent(auditstream.EventGenerationFailed, auditstream.SeverityError, cause.Error())
}

func (o *Orchestrator) run(ctx context.Context, sessionID, input string, mode Mode) (Response, error) {
	switch mode {
	case ModeFast:
		return o.runFast(ctx, input)
	case ModeBalanced:
		return o.runWithStrategy(ctx, sessionID, input, rag.StrategyHierarchical, false)
	case ModeThorough:
		return o.runWithStrategy(ctx, sessionID, input, rag.StrategyCyclic, false)
	case ModeReasoning:
		return o.runWithStrategy(ctx, sessionID, input, rag.StrategyCyclic, true)
	default:
		return o.runFast(ctx, input)
	}
}

// runFast performs a single generator call with an empty context and no
// controller or retrieval involvement.
func (o *Orchestrator) runFast(ctx context.Context, input string) (Response, error) {
	text, err := o.generator.Generate(ctx, input, "", 0)
	if err != nil {
		return Response{}, err
	}
	return Response{
		Text:               text,
		Mode:               ModeFast,
		LocalGeneratorUsed: o.generator.IsLocal(),
		Confidence:         1,
	}, nil
}

func (o *Orchestrator) runWithStrategy(ctx context.Context, sessionID, input string, strategy rag.Strategy, reasoning bool) (Response, error) {
	retrievedText := o.retrieve(ctx, input, strategy)

	// Context for this turn's generation is built from the session's
	// compressed state as of the END of the previous turn: the controller
	// has not stepped for this turn yet, so its own compression (derived
	// from this turn's real output) cannot be known until after Generate
	// returns.
	priorContext := o.controller.State(sessionID).CompressedContext
	contextText := controller.BuildContext(priorContext, "", retrievedText)

	text, err := o.generator.Generate(ctx, input, contextText, 0)
	if err != nil {
		return Response{}, err
	}

	refine := strategy == rag.StrategyCyclic // Thorough and Reasoning both use the cyclic strategy
	stepOut, err := o.controller.Step(ctx, controller.StepInput{SessionID: sessionID, UserText: input, ModelOutput: text, RefineOnHighEnergy: refine})
	if err != nil {
		return Response{}, err
	}

	confidence := stepOut.ConfidenceAfter
	secondPassUsed := false

	if reasoning && (confidence < secondPassConfidenceFloor || int(stepOut.Position) == secondPassCheckpointPosition) {
		verified, verifyErr := o.generator.Generate(ctx, input, contextText, 0)
		if verifyErr == nil {
			text = "Verified: " + verified
			confidence += secondPassConfidenceBump
			if confidence > 1 {
				confidence = 1
			}
			secondPassUsed = true
		} else {
			logging.OrchestratorWarn("reasoning second pass failed, keeping first-pass answer: %v", verifyErr)
		}
	}

	return Response{
		Text:               text,
		Position:           stepOut.Position,
		Confidence:         confidence,
		Checkpoint:         stepOut.Checkpoint,
		Mode:               modeForStrategy(strategy, reasoning),
		SecondPassUsed:     secondPassUsed,
		LocalGeneratorUsed: o.generator.IsLocal(),
	}, nil
}

func modeForStrategy(strategy rag.Strategy, reasoning bool) Mode {
	if reasoning {
		return ModeReasoning
	}
	if strategy == rag.StrategyCyclic {
		return ModeThorough
	}
	return ModeBalanced
}

// retrieve runs the RAG pipeline and assembles the result with the
// requested integration strategy; it does not call the scorer (high-energy
// refinement happens in controller.Step via RefineOnHighEnergy). Returns an empty string if retrieval is unconfigured or the
// input embeds to nothing usable.
func (o *Orchestrator) retrieve(ctx context.Context, input string, strategy rag.Strategy) string {
	if o.pipeline == nil || o.embedder == nil {
		return ""
	}

	vec, err := o.embedder.Embed(ctx, input)
	if err != nil {
		logging.OrchestratorWarn("embedding failed, proceeding without retrieval: %v", err)
		return ""
	}

	results, err := o.pipeline.HybridRetrieve(ctx, vec)
	if err != nil {
		logging.OrchestratorWarn("retrieval failed, proceeding without retrieval: %v", err)
		return ""
	}
	if len(results) == 0 {
		return ""
	}

	return rag.Integrate(strategy, strings.TrimSpace(input), results)
}

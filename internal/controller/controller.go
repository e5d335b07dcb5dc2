package controller

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ragrt/internal/auditstream"
	"ragrt/internal/logging"
	"ragrt/internal/scorer"
	"ragrt/internal/types"
)

// Controller is the cyclic cognitive controller (spec.md §4.D). It owns
// no external collaborators beyond the scorer and the audit manager,
// matching §9's design note that the scorer and audit stream are
// compile-in interfaces rather than dynamically dispatched plugins.
type Controller struct {
	cfg      Config
	scorer   *scorer.Scorer
	audit    *auditstream.Manager
	sessions *sessionTable
}

// New constructs a Controller.
func New(cfg Config, sc *scorer.Scorer, audit *auditstream.Manager) *Controller {
	return &Controller{cfg: cfg, scorer: sc, audit: audit, sessions: newSessionTable()}
}

// StepInput is the (session_key, user_text, model_output) triple named
// in spec.md §4.D's step algorithm. RefineOnHighEnergy is the Thorough/
// Reasoning mode knob from spec.md §4.G: when set, the scorer's
// intervention pass runs whenever the base score's energy exceeds
// RefinementEnergyThreshold, not just at checkpoints.
type StepInput struct {
	SessionID          string
	UserText           string
	ModelOutput        string
	RefineOnHighEnergy bool
}

// RefinementEnergyThreshold is the energy level above which
// RefineOnHighEnergy triggers an intervention pass outside of
// checkpoints.
const RefinementEnergyThreshold = 0.5

// StepOutput is what a step reports back to the orchestrator.
type StepOutput struct {
	Position          types.CyclePosition
	Checkpoint        bool
	ConfidenceBefore  float64
	ConfidenceAfter   float64
	Risk              float64
	SignalStrength    float64
	Energy            float64
	CompressedContext string
}

// Step runs one controller turn: derive position, build a beam trace,
// score it (with interventions enabled at checkpoints and, when
// RefineOnHighEnergy is set, on high-energy steps), attenuate
// confidence by risk, and — at checkpoints — compress history into the
// session's running summary.
func (c *Controller) Step(ctx context.Context, in StepInput) (StepOutput, error) {
	timer := logging.StartTimer(logging.CategoryController, "Step")
	defer timer.Stop()

	entry := c.sessions.getOrCreate(in.SessionID)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	entry.state.CycleCounter++
	position := derivePosition(in.ModelOutput)
	checkpoint := position.IsSacred()

	trace := buildBeamTrace(in.ModelOutput, position)

	risk, signal, energy, constraintsPassed, failureLocation, intervention := c.runScorer(trace, checkpoint, in.RefineOnHighEnergy)

	confidenceBefore := c.cfg.BaseConfidence
	if checkpoint {
		confidenceBefore += c.cfg.CheckpointConfidenceBonus
	}
	confidenceAfter := confidenceBefore * (1 - c.cfg.RiskAttenuationFactor*risk)
	if confidenceAfter < 0 {
		confidenceAfter = 0
	}

	compressionApplied := checkpoint
	if compressionApplied {
		entry.state.CompressedContext = compress(entry.state.CompressedContext, in.UserText, in.ModelOutput, entry.state.CycleCounter, position, c.cfg.CompressedContextMaxChars)
	}

	entry.state.LastPosition = position
	entry.state.LastConfidence = confidenceAfter
	entry.state.LastRisk = risk
	entry.state.LastSignalStrength = signal
	entry.state.UpdatedAt = time.Now().UTC()

	record := types.StepAuditRecord{
		SessionID:          in.SessionID,
		StepIndex:          entry.state.CycleCounter,
		Position:           position,
		Checkpoint:         checkpoint,
		CompressionApplied: compressionApplied,
		InterventionType:   intervention,
		ConfidenceBefore:   confidenceBefore,
		ConfidenceAfter:    confidenceAfter,
		Risk:               risk,
		SignalStrength:     signal,
		ConstraintsPassed:  constraintsPassed,
		FailureLocation:    failureLocation,
		Timestamp:          time.Now().UTC(),
	}
	entry.state.Trail = append(entry.state.Trail, record)

	c.recordAudit(in.SessionID, record)

	return StepOutput{
		Position:          position,
		Checkpoint:        checkpoint,
		ConfidenceBefore:  confidenceBefore,
		ConfidenceAfter:   confidenceAfter,
		Risk:              risk,
		SignalStrength:    signal,
		Energy:            energy,
		CompressedContext: entry.state.CompressedContext,
	}, nil
}

// runScorer invokes the scorer with interventions enabled at checkpoints
// and, when refineOnHighEnergy is set, also whenever the base score's
// energy exceeds RefinementEnergyThreshold (the Thorough/Reasoning mode
// knob from spec.md §4.G). It degrades to a safe pass-through on scorer
// failure per spec.md §4.D's failure semantics. The scorer here never
// returns an error (pure computation), but the degraded path is
// retained for the collaborator-failure contract described in the spec
// and exercised by callers that wrap a fallible scorer.
func (c *Controller) runScorer(trace types.BeamTrace, checkpoint, refineOnHighEnergy bool) (risk, signal, energy float64, constraintsPassed [4]bool, failureLocation int, intervention types.InterventionType) {
	constraintsPassed = [4]bool{true, true, true, true}
	failureLocation = -1
	intervention = types.InterventionNone

	defer func() {
		if r := recover(); r != nil {
			logging.ControllerWarn("scorer panicked, degrading to safe pass-through: %v", r)
			risk, signal, energy = c.cfg.DegradedRisk, c.cfg.DegradedSignal, 0
			constraintsPassed = [4]bool{true, true, true, true}
			failureLocation = -1
			intervention = types.InterventionNone
		}
	}()

	result := c.scorer.Score(trace)
	highEnergy := refineOnHighEnergy && result.Energy > RefinementEnergyThreshold
	if checkpoint || highEnergy {
		result = c.scorer.Intervene(&trace, 1.5)
		if checkpoint {
			intervention = types.InterventionCheckpoint
		} else {
			intervention = types.InterventionHighEnergy
		}
	}

	for _, v := range result.Violations {
		if v.Kind >= 1 && v.Kind <= 4 {
			constraintsPassed[v.Kind-1] = false
		}
	}
	if result.FailureLocation != nil {
		failureLocation = result.FailureLocation.TraceIndex
	}

	r := 1 - result.SignalStrength
	if r < 0 {
		r = 0
	}
	if r > 1 {
		r = 1
	}
	if len(result.Violations) > 0 {
		r += c.cfg.RiskIntervention
		if r > 1 {
			r = 1
		}
	}
	return r, result.SignalStrength, result.Energy, constraintsPassed, failureLocation, intervention
}

func (c *Controller) recordAudit(sessionID string, record types.StepAuditRecord) {
	severity := auditstream.SeverityInfo
	if record.Risk > 0.5 {
		severity = auditstream.SeverityWarning
	}

	position := int(record.Position)
	confidenceBefore := record.ConfidenceBefore
	confidenceAfter := record.ConfidenceAfter
	risk := record.Risk
	signal := record.SignalStrength

	stream := c.audit.Stream(sessionID)
	_, err := stream.RecordEvent(auditstream.EventGenerationCompleted, severity, "controller step completed",
		auditstream.WithController(auditstream.ControllerData{
			Position:           &position,
			Checkpoint:         record.Checkpoint,
			RiskScore:          &risk,
			SignalStrength:     &signal,
			InterventionType:   string(record.InterventionType),
			ConfidenceBefore:   &confidenceBefore,
			ConfidenceAfter:    &confidenceAfter,
			CompressionApplied: record.CompressionApplied,
		}),
	)
	if err != nil {
		logging.ControllerWarn("audit persistence failed for session %s: %v", sessionID, err)
	}
}

// compress appends a compact summary line to the running context and,
// if the result exceeds maxChars, retains only the last maxChars
// characters (by rune, not byte).
func compress(existing, userText, modelOutput string, turn int, position types.CyclePosition, maxChars int) string {
	line := fmt.Sprintf("Turn %d (pos %d): Q: %s | A: %s", turn, position, truncate(userText, 160), truncate(modelOutput, 220))

	var joined string
	if existing == "" {
		joined = line
	} else {
		joined = existing + "\n" + line
	}

	runes := []rune(joined)
	if len(runes) > maxChars {
		runes = runes[len(runes)-maxChars:]
	}
	return string(runes)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// BuildContext concatenates, in order and only if non-empty, the
// [STATE]/[SPATIAL]/[RETRIEVED] sections named in spec.md §4.D,
// separated by double newlines.
func BuildContext(compressedState, spatial, retrieved string) string {
	var sections []string
	if compressedState != "" {
		sections = append(sections, "[STATE]\n"+compressedState)
	}
	if spatial != "" {
		sections = append(sections, "[SPATIAL]\n"+spatial)
	}
	if retrieved != "" {
		sections = append(sections, "[RETRIEVED]\n"+retrieved)
	}
	return strings.Join(sections, "\n\n")
}

// State returns a snapshot of a session's current state (for callers
// that need the trail or compressed context outside of a step).
func (c *Controller) State(sessionID string) types.SessionState {
	entry := c.sessions.getOrCreate(sessionID)
	entry.mu.RLock()
	defer entry.mu.RUnlock()
	return entry.state
}

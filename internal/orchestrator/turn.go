package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/ascendhq/ascend/internal/action"
	"github.com/ascendhq/ascend/internal/assembler"
	"github.com/ascendhq/ascend/internal/config"
	"github.com/ascendhq/ascend/internal/domain"
	"github.com/ascendhq/ascend/internal/logger"
	"github.com/ascendhq/ascend/internal/orchestrator/session"
	"github.com/ascendhq/ascend/internal/reasoning"
	"github.com/ascendhq/ascend/internal/reasoning/contract"
)

const fallbackReply = "Sorry, something went wrong on my side. Nothing was changed; please try again."

// Engine runs one conversation turn end to end: classify, assemble context,
// generate a reply with candidate actions, gate destructive ones, execute the
// rest sequentially and feed the results back for a grounded final reply.
type Engine struct {
	cfg         config.OrchestratorConfig
	sessions    *session.Manager
	reasoner    reasoning.Service
	assembler   *assembler.Assembler
	executor    *Executor
	snapshot    *domain.Snapshot
	profile     func() domain.UserProfile
	constraints func() domain.ScheduleConstraints
}

// TurnResult is what the surface renders after a turn.
type TurnResult struct {
	SessionID string
	Message   string
	Actions   []*action.ChatAction
	Pending   *action.PendingConfirmation
}

func NewEngine(
	cfg config.OrchestratorConfig,
	sessions *session.Manager,
	reasoner reasoning.Service,
	asm *assembler.Assembler,
	executor *Executor,
	snapshot *domain.Snapshot,
	profile func() domain.UserProfile,
	constraints func() domain.ScheduleConstraints,
) *Engine {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = config.DefaultOrchestratorHistoryLimit
	}
	if cfg.ClassifierConfidenceThreshold <= 0 {
		cfg.ClassifierConfidenceThreshold = config.DefaultClassifierConfidenceThreshold
	}
	if profile == nil {
		profile = func() domain.UserProfile { return domain.UserProfile{} }
	}
	if constraints == nil {
		constraints = func() domain.ScheduleConstraints { return domain.ScheduleConstraints{} }
	}
	return &Engine{
		cfg:         cfg,
		sessions:    sessions,
		reasoner:    reasoner,
		assembler:   asm,
		executor:    executor,
		snapshot:    snapshot,
		profile:     profile,
		constraints: constraints,
	}
}

// Warm loads the snapshot from the store before the first turn.
func (en *Engine) Warm(ctx context.Context) error {
	return en.executor.refresh(ctx)
}

func (en *Engine) Sessions() *session.Manager {
	return en.sessions
}

// HandleMessage runs one user turn. It returns an error only when the turn
// could not start at all; model and execution failures surface as apologetic
// replies with failed action results.
func (en *Engine) HandleMessage(ctx context.Context, sessionID, text string) (*TurnResult, error) {
	sess, err := en.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.BeginTurn(); err != nil {
		return nil, err
	}
	defer sess.EndTurn()

	ctx = logger.WithSessionID(ctx, sess.ID)

	// A parked confirmation intercepts the next message entirely.
	if sess.Pending() != nil {
		return en.resolvePending(ctx, sess, text)
	}

	if err := en.sessions.Append(sess, domain.ChatMessage{
		Role:    domain.ChatRoleUser,
		Content: text,
	}); err != nil {
		return nil, err
	}

	// Tool-result content is never classified; it is always handled by the
	// full responder in action mode.
	mode, directReply := contract.ModeAction, ""
	if !isToolResult(text) {
		mode, directReply = en.selectMode(ctx, sess, text)
	}
	if directReply != "" {
		en.appendAssistant(sess, directReply)
		return &TurnResult{SessionID: sess.ID, Message: directReply}, nil
	}

	return en.respondAndExecute(ctx, sess, text, mode)
}

// selectMode classifies the message and picks the responder mode. A non-empty
// directReply short-circuits the turn without a second model call.
func (en *Engine) selectMode(ctx context.Context, sess *session.Session, text string) (contract.Mode, string) {
	classification, err := en.reasoner.Classify(ctx, reasoning.ClassifyRequest{
		Message:  text,
		History:  en.contractHistory(sess),
		HasGoals: en.snapshot.HasGoals(),
	})
	if err != nil {
		// Fail open: the full responder can still handle the message.
		slog.Warn("Classification failed, falling back to action mode", "error", err)
		return contract.ModeAction, ""
	}

	slog.Debug("Message classified",
		"session", sess.ID,
		"intent", classification.Intent,
		"confidence", classification.Confidence,
	)

	confident := classification.Confidence >= en.cfg.ClassifierConfidenceThreshold
	switch classification.Intent {
	case contract.IntentClarify:
		if classification.SuggestedResponse != "" {
			return contract.ModeChat, classification.SuggestedResponse
		}
		return contract.ModeChat, "Could you say a bit more about what you'd like to do?"
	case contract.IntentChat, contract.IntentQuestion:
		if confident && classification.SuggestedResponse != "" {
			return contract.ModeChat, classification.SuggestedResponse
		}
		return contract.ModeChat, ""
	case contract.IntentQuery:
		return contract.ModeQuery, ""
	default:
		return contract.ModeAction, ""
	}
}

func (en *Engine) respondAndExecute(ctx context.Context, sess *session.Session, text string, mode contract.Mode) (*TurnResult, error) {
	turn, err := en.reasoner.Respond(ctx, reasoning.RespondRequest{
		Message:       text,
		SystemContext: en.renderContext(),
		History:       en.contractHistory(sess),
		Mode:          mode,
	})
	if err != nil {
		slog.Error("Responder call failed", "session", sess.ID, "error", err)
		en.appendTurn(sess, domain.ChatMessage{
			Role:    domain.ChatRoleAssistant,
			Content: fallbackReply,
			IsError: true,
		})
		return &TurnResult{SessionID: sess.ID, Message: fallbackReply}, nil
	}

	outcome := gate(turn.Actions, sess.Pending() != nil)
	en.executor.ExecuteAll(ctx, outcome.runNow)

	if outcome.parked != nil {
		if err := sess.SetPending(outcome.parked); err != nil {
			outcome.parked.Action.Status = action.StatusPending
			outcome.parked.Action.Error = err.Error()
			outcome.parked = nil
		}
	}

	reply := turn.Message
	if len(outcome.runNow) > 0 {
		reply = en.feedbackReply(ctx, sess, mode, outcome.runNow, turn.Message, reply)
	}
	if outcome.parked != nil {
		if reply != "" {
			reply += "\n\n"
		}
		reply += outcome.parked.Prompt
	}
	if reply == "" {
		reply = fallbackReply
	}

	en.appendTurn(sess, domain.ChatMessage{
		Role:    domain.ChatRoleAssistant,
		Content: reply,
		Actions: outcome.all,
	})
	return &TurnResult{
		SessionID: sess.ID,
		Message:   reply,
		Actions:   outcome.all,
		Pending:   outcome.parked,
	}, nil
}

// feedbackReply routes execution results back through the responder once: the
// pre-execution draft joins the history first, then the rendered results go in
// as the next user turn. Actions proposed on the feedback turn are recorded
// but never executed, which caps the loop at depth one.
func (en *Engine) feedbackReply(ctx context.Context, sess *session.Session, mode contract.Mode, executed []*action.ChatAction, draft, fallback string) string {
	results := renderToolResults(executed)
	if results == "" {
		return fallback
	}

	if draft != "" {
		en.appendAssistant(sess, draft)
	}
	if err := en.sessions.Append(sess, domain.ChatMessage{
		Role:    domain.ChatRoleUser,
		Content: results,
	}); err != nil {
		slog.Warn("Failed to persist tool results", "session", sess.ID, "error", err)
	}

	followUp, err := en.reasoner.Respond(ctx, reasoning.RespondRequest{
		Message:       results,
		SystemContext: en.renderContext(),
		History:       en.contractHistory(sess),
		Mode:          mode,
	})
	if err != nil {
		slog.Warn("Feedback turn failed, keeping initial reply", "session", sess.ID, "error", err)
		return fallback
	}
	if len(followUp.Actions) > 0 {
		slog.Debug("Dropping actions proposed on feedback turn", "session", sess.ID, "count", len(followUp.Actions))
	}
	if followUp.Message == "" {
		return fallback
	}
	return followUp.Message
}

// resolvePending interprets the message as a confirmation reply. Ambiguity
// keeps the pending action parked and re-asks.
func (en *Engine) resolvePending(ctx context.Context, sess *session.Session, text string) (*TurnResult, error) {
	if err := en.sessions.Append(sess, domain.ChatMessage{
		Role:    domain.ChatRoleUser,
		Content: text,
	}); err != nil {
		return nil, err
	}

	switch interpretConfirmation(text) {
	case verdictConfirm:
		return en.runConfirmed(ctx, sess)
	case verdictDeny:
		return en.cancelPending(sess)
	default:
		pending := sess.Pending()
		reply := "I still need a yes or no. " + pending.Prompt
		en.appendAssistant(sess, reply)
		return &TurnResult{SessionID: sess.ID, Message: reply, Pending: pending}, nil
	}
}

// Confirm executes the parked action, if any.
func (en *Engine) Confirm(ctx context.Context, sessionID string) (*TurnResult, error) {
	sess, err := en.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.BeginTurn(); err != nil {
		return nil, err
	}
	defer sess.EndTurn()

	if sess.Pending() == nil {
		return &TurnResult{SessionID: sess.ID, Message: "Nothing is waiting for confirmation."}, nil
	}
	return en.runConfirmed(ctx, sess)
}

// Cancel discards the parked action, if any.
func (en *Engine) Cancel(ctx context.Context, sessionID string) (*TurnResult, error) {
	sess, err := en.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.BeginTurn(); err != nil {
		return nil, err
	}
	defer sess.EndTurn()

	if sess.Pending() == nil {
		return &TurnResult{SessionID: sess.ID, Message: "Nothing is waiting for confirmation."}, nil
	}
	return en.cancelPending(sess)
}

func (en *Engine) runConfirmed(ctx context.Context, sess *session.Session) (*TurnResult, error) {
	pending := sess.TakePending()
	now := time.Now().UTC()
	pending.Confirmed = true
	pending.ConfirmedAt = &now

	a := pending.Action
	a.Status = action.StatusPending
	en.executor.Execute(ctx, a)

	reply := en.feedbackReply(ctx, sess, contract.ModeAction, []*action.ChatAction{a}, "", confirmedFallback(a))
	en.appendTurn(sess, domain.ChatMessage{
		Role:    domain.ChatRoleAssistant,
		Content: reply,
		Actions: []*action.ChatAction{a},
	})
	return &TurnResult{
		SessionID: sess.ID,
		Message:   reply,
		Actions:   []*action.ChatAction{a},
	}, nil
}

func (en *Engine) cancelPending(sess *session.Session) (*TurnResult, error) {
	pending := sess.TakePending()
	pending.Action.Status = action.StatusCancelled

	reply := "Okay, I won't do that. The action was cancelled."
	en.appendTurn(sess, domain.ChatMessage{
		Role:    domain.ChatRoleAssistant,
		Content: reply,
		Actions: []*action.ChatAction{pending.Action},
	})
	return &TurnResult{
		SessionID: sess.ID,
		Message:   reply,
		Actions:   []*action.ChatAction{pending.Action},
	}, nil
}

func confirmedFallback(a *action.ChatAction) string {
	if a.Result != nil && a.Result.Success {
		return "Done. " + a.Result.Message
	}
	if a.Result != nil {
		return "That didn't work: " + a.Result.Error
	}
	return fallbackReply
}

func (en *Engine) renderContext() string {
	return en.assembler.Assemble(
		en.profile(),
		en.snapshot.Goals(),
		en.constraints(),
		en.snapshot.Events(),
		"all goals",
	).Render()
}

// contractHistory converts the transcript window for the wire, skipping
// nothing: tool-result turns ride along as user turns.
func (en *Engine) contractHistory(sess *session.Session) []contract.Message {
	history := sess.History(en.cfg.HistoryLimit)
	out := make([]contract.Message, 0, len(history))
	for _, msg := range history {
		out = append(out, contract.Message{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}
	return out
}

func (en *Engine) appendAssistant(sess *session.Session, reply string) {
	en.appendTurn(sess, domain.ChatMessage{
		Role:    domain.ChatRoleAssistant,
		Content: reply,
	})
}

func (en *Engine) appendTurn(sess *session.Session, msg domain.ChatMessage) {
	if err := en.sessions.Append(sess, msg); err != nil {
		slog.Warn("Failed to persist assistant reply", "session", sess.ID, "error", err)
	}
}

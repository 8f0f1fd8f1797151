package orchestrator

import (
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/ascendhq/ascend/internal/action"
	"github.com/ascendhq/ascend/internal/reasoning/contract"
)

// gateOutcome is the confirmation gate's verdict over one proposed batch:
// actions cleared to run now, and at most one action parked for confirmation.
type gateOutcome struct {
	all    []*action.ChatAction
	runNow []*action.ChatAction
	parked *action.PendingConfirmation
}

// gate converts proposed actions into tracked ChatActions and holds back
// destructive ones. Only one confirmation can be outstanding: the first
// destructive action is parked, later destructive actions in the same batch
// stay pending so they can be proposed again once the slot frees up.
func gate(proposed []contract.ProposedAction, slotTaken bool) gateOutcome {
	out := gateOutcome{}
	for _, p := range proposed {
		a := &action.ChatAction{
			ID:                   ulid.Make().String(),
			Type:                 action.Type(p.Type),
			Status:               action.StatusPending,
			Data:                 p.Data,
			RequiresConfirmation: action.RequiresConfirmation(action.Type(p.Type)),
		}
		out.all = append(out.all, a)

		if !a.RequiresConfirmation {
			out.runNow = append(out.runNow, a)
			continue
		}

		if slotTaken || out.parked != nil {
			// Deferred, not cancelled: status stays pending so the action
			// remains re-proposable after the outstanding one is resolved.
			a.Error = "another action is already awaiting confirmation; ask again once it is resolved"
			continue
		}

		a.Status = action.StatusPendingConfirmation
		out.parked = &action.PendingConfirmation{
			Action: a,
			Prompt: action.ConfirmationPrompt(a),
		}
	}
	return out
}

// Confirmation replies are matched conservatively: anything ambiguous leaves
// the pending action untouched and re-asks.
type confirmVerdict int

const (
	verdictAmbiguous confirmVerdict = iota
	verdictConfirm
	verdictDeny
)

var confirmWords = map[string]confirmVerdict{
	"yes": verdictConfirm, "y": verdictConfirm, "yep": verdictConfirm, "yeah": verdictConfirm,
	"confirm": verdictConfirm, "do it": verdictConfirm, "go ahead": verdictConfirm, "sure": verdictConfirm,
	"ok": verdictConfirm, "okay": verdictConfirm,
	"no": verdictDeny, "n": verdictDeny, "nope": verdictDeny, "cancel": verdictDeny,
	"stop": verdictDeny, "don't": verdictDeny, "dont": verdictDeny, "never mind": verdictDeny,
	"nevermind": verdictDeny,
}

func interpretConfirmation(text string) confirmVerdict {
	normalized := strings.ToLower(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), "!")))
	normalized = strings.TrimSuffix(normalized, ".")
	if v, ok := confirmWords[normalized]; ok {
		return v
	}
	return verdictAmbiguous
}

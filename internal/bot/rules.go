package bot

import (
	"context"

	"posterbot/internal/session"
)

type turn struct {
	raw   string // trimmed input
	lower string
}

type action func(ctx context.Context, s *session.Session, t turn) Message

// rule is one row of the classification table: in state, input containing
// any of keywords runs action. Within a state the first matching rule wins.
type rule struct {
	name     string
	state    session.State
	keywords []string
	action   action
}

func (e *Engine) buildRules() map[session.State][]rule {
	v := e.variant

	table := []rule{
		{"track", session.StateIdle, v.TrackKeywords, e.startStatusCheck},
		{"category", session.StateIdle, v.CategoryKeywords, e.recommendCategory},
		{"custom", session.StateIdle, v.CustomKeywords, e.startCustomPrint},
		{"policy", session.StateIdle, v.PolicyKeywords, e.showPolicies},
		{"checkout", session.StateIdle, v.CheckoutKeywords, e.showCheckoutLink},
		{"handoff", session.StateIdle, v.HandoffKeywords, e.showHandoff},
		{"place_order", session.StateIdle, v.PlaceOrderKeywords, e.askOrderCategory},

		{"website", session.StateAskOrderCategory, []string{"website"}, e.showCatalog},
		{"custom", session.StateAskOrderCategory, []string{"custom"}, e.askCustomDetails},

		{"main_menu", session.StateWebsiteSelectProduct, []string{"main menu"}, e.backToMenu},
		{"main_menu", session.StateCustomUploadDetails, []string{"main menu"}, e.backToMenu},

		{"add_more", session.StateAskAddMore, []string{"yes"}, e.addMore},
	}

	rules := make(map[session.State][]rule)
	for _, r := range table {
		rules[r.state] = append(rules[r.state], r)
	}
	return rules
}

func (e *Engine) isReset(lower string) bool {
	for _, k := range e.variant.ResetKeywords {
		if lower == k {
			return true
		}
	}
	return false
}

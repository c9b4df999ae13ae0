package convo

import (
	"siachat-backend/internal/intent"
	"siachat-backend/internal/models"
)

// SuggestedActions returns quick-reply chips for the client, keyed on the
// detected intent and what the context already knows. The table is small
// and deterministic; an unknown combination yields an empty slice, never
// nil, so the response field always serializes as a list.
func SuggestedActions(ctx *models.ConversationContext, in intent.Intent) []string {
	switch in {
	case intent.Greeting:
		return []string{"Tell me about ARGO", "See pricing", "Book a demo"}
	case intent.ProductInquiry:
		if len(ctx.PreferredProducts) == 0 {
			return []string{"Tell me about ARGO", "Tell me about MARK", "Tell me about CONSUELO"}
		}
		return []string{"Book a demo", "See pricing", "Integration options"}
	case intent.DemoRequest:
		return []string{"Yes, book a demo", "Tell me more first"}
	case intent.PricingInquiry:
		return []string{"Book a demo", "See features"}
	default:
		return []string{}
	}
}

package notifications

import (
	"context"
	"fmt"
)

// ResolveTokens returns the unique device tokens subscribed to the intent's
// tournament or to either team, in order of first appearance. An empty result
// is not an error.
func ResolveTokens(ctx context.Context, intent Intent, subs SubscriptionLookup) ([]string, error) {
	rows, err := subs.SubscriberTokens(ctx, intent.TournamentID, intent.HomeTeamID, intent.AwayTeamID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSubscriptionQuery, err)
	}

	seen := make(map[string]struct{}, len(rows))
	tokens := make([]string, 0, len(rows))
	for _, t := range rows {
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		tokens = append(tokens, t)
	}
	return tokens, nil
}

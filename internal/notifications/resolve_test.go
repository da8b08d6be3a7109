package notifications

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestResolveTokens(t *testing.T) {
	t.Parallel()
	intent := Intent{TournamentID: "t1", HomeTeamID: "h1", AwayTeamID: "a1"}

	tests := []struct {
		name string
		rows []subscriptionRow
		want []string
	}{
		{
			name: "tournament and team subscription for one device",
			rows: []subscriptionRow{
				{tournamentID: "t1", token: "a"},
				{teamID: "h1", token: "a"},
			},
			want: []string{"a"},
		},
		{
			name: "first appearance order",
			rows: []subscriptionRow{
				{teamID: "a1", token: "c"},
				{tournamentID: "t1", token: "a"},
				{teamID: "h1", token: "c"},
				{teamID: "h1", token: "b"},
			},
			want: []string{"c", "a", "b"},
		},
		{
			name: "unrelated subscriptions",
			rows: []subscriptionRow{
				{tournamentID: "t2", token: "x"},
				{teamID: "h9", token: "y"},
			},
			want: []string{},
		},
		{
			name: "blank tokens skipped",
			rows: []subscriptionRow{
				{tournamentID: "t1", token: ""},
				{teamID: "a1", token: "z"},
			},
			want: []string{"z"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subs := &fakeSubscriptions{rows: tt.rows}
			got, err := ResolveTokens(context.Background(), intent, subs)
			if err != nil {
				t.Fatalf("ResolveTokens error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			if n := subs.calls.Load(); n != 1 {
				t.Fatalf("queries = %d, want 1", n)
			}
		})
	}
}

func TestResolveTokensQueryError(t *testing.T) {
	t.Parallel()
	boom := errors.New("relation does not exist")
	_, err := ResolveTokens(context.Background(), Intent{TournamentID: "t1"}, &fakeSubscriptions{err: boom})
	if !errors.Is(err, ErrSubscriptionQuery) {
		t.Fatalf("err = %v, want ErrSubscriptionQuery", err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped cause", err)
	}
}

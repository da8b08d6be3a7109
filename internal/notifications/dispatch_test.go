package notifications

import (
	"context"
	"errors"
	"testing"
	"time"
)

var testIntent = Intent{
	Title:        "KICK OFF! ⚔️",
	Body:         "Lions vs Tigers has started!",
	TournamentID: "t1",
	HomeTeamID:   "h1",
	AwayTeamID:   "a1",
	MatchID:      "m1",
}

func TestDispatchNoTokensSkipsCredential(t *testing.T) {
	t.Parallel()
	creds := &fakeCredentials{token: "ya29"}
	sender := &fakeSender{}

	got, err := Dispatch(context.Background(), testIntent, nil, creds, sender, newDiscardLogger())
	if err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}
	if got != (Summary{}) {
		t.Fatalf("Summary = %+v, want zero", got)
	}
	if creds.calls.Load() != 0 || len(sender.attempts) != 0 {
		t.Fatalf("credential calls = %d, sends = %d, want none", creds.calls.Load(), len(sender.attempts))
	}
}

func TestDispatchPartialFailure(t *testing.T) {
	t.Parallel()
	creds := &fakeCredentials{token: "ya29"}
	sender := &fakeSender{fail: func(token string) error {
		if token == "x" {
			return errors.New("FCM returned 404: UNREGISTERED")
		}
		return nil
	}}

	got, err := Dispatch(context.Background(), testIntent, []string{"x", "y"}, creds, sender, newDiscardLogger())
	if err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}
	if got != (Summary{Sent: 1, Total: 2}) {
		t.Fatalf("Summary = %+v, want {1 2}", got)
	}
	attempted := sender.attempted()
	if !attempted["x"] || !attempted["y"] {
		t.Fatalf("attempted = %v, want both tokens", attempted)
	}
	if creds.calls.Load() != 1 {
		t.Fatalf("credential calls = %d, want 1", creds.calls.Load())
	}
	for _, b := range sender.bearer {
		if b != "ya29" {
			t.Fatalf("bearer = %q, want shared token", b)
		}
	}
	for _, m := range sender.messages {
		want := Message{Title: testIntent.Title, Body: testIntent.Body, MatchID: "m1"}
		if m != want {
			t.Fatalf("message = %+v, want %+v", m, want)
		}
	}
}

func TestDispatchCredentialFailure(t *testing.T) {
	t.Parallel()
	creds := &fakeCredentials{err: errors.New("invalid_grant")}
	sender := &fakeSender{}

	_, err := Dispatch(context.Background(), testIntent, []string{"a", "b"}, creds, sender, newDiscardLogger())
	if !errors.Is(err, ErrCredential) {
		t.Fatalf("err = %v, want ErrCredential", err)
	}
	if len(sender.attempts) != 0 {
		t.Fatalf("sends = %d, want 0", len(sender.attempts))
	}
}

func TestDispatchCredentialErrorNotDoubleWrapped(t *testing.T) {
	t.Parallel()
	inner := errors.New("private_key is missing")
	creds := &fakeCredentials{err: errors.Join(ErrCredential, inner)}

	_, err := Dispatch(context.Background(), testIntent, []string{"a"}, creds, &fakeSender{}, newDiscardLogger())
	if !errors.Is(err, ErrCredential) || !errors.Is(err, inner) {
		t.Fatalf("err = %v, want ErrCredential wrapping cause", err)
	}
}

func TestDispatchSlowSendDoesNotBlockOthers(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	fastDone := make(chan struct{}, 2)
	sender := &fakeSender{fail: func(token string) error {
		if token == "slow" {
			<-release
			return nil
		}
		fastDone <- struct{}{}
		return nil
	}}

	done := make(chan Summary, 1)
	go func() {
		s, _ := Dispatch(context.Background(), testIntent, []string{"slow", "f1", "f2"},
			&fakeCredentials{token: "ya29"}, sender, newDiscardLogger())
		done <- s
	}()

	for i := 0; i < 2; i++ {
		select {
		case <-fastDone:
		case <-time.After(2 * time.Second):
			close(release)
			t.Fatal("fast sends were blocked by the slow one")
		}
	}
	select {
	case <-done:
		t.Fatal("Dispatch returned before the slow send settled")
	default:
	}

	close(release)
	select {
	case s := <-done:
		if s != (Summary{Sent: 3, Total: 3}) {
			t.Fatalf("Summary = %+v, want {3 3}", s)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Dispatch did not return after the slow send settled")
	}
}

func TestDispatchIgnoresCancellationAfterFanOut(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	sender := &fakeSender{}
	sender.fail = func(string) error {
		cancel()
		return nil
	}

	got, err := Dispatch(ctx, testIntent, []string{"a", "b"}, &fakeCredentials{token: "ya29"}, ctxCheckingSender{sender}, newDiscardLogger())
	if err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}
	if got != (Summary{Sent: 2, Total: 2}) {
		t.Fatalf("Summary = %+v, want {2 2}", got)
	}
}

// ctxCheckingSender fails a send whose context is already cancelled.
type ctxCheckingSender struct {
	next *fakeSender
}

func (s ctxCheckingSender) Send(ctx context.Context, accessToken, deviceToken string, msg Message) error {
	if err := s.next.Send(ctx, accessToken, deviceToken, msg); err != nil {
		return err
	}
	return ctx.Err()
}

func TestDispatchRecoversSenderPanic(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{fail: func(token string) error {
		if token == "bad" {
			panic("nil map write")
		}
		return nil
	}}

	got, err := Dispatch(context.Background(), testIntent, []string{"bad", "good"},
		&fakeCredentials{token: "ya29"}, sender, newDiscardLogger())
	if err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}
	if got != (Summary{Sent: 1, Total: 2}) {
		t.Fatalf("Summary = %+v, want {1 2}", got)
	}
}

func TestTokenPrefix(t *testing.T) {
	t.Parallel()
	if got := tokenPrefix("abcdefghijklmnop"); got != "abcdefghij..." {
		t.Fatalf("tokenPrefix = %q", got)
	}
	if got := tokenPrefix("short"); got != "short..." {
		t.Fatalf("tokenPrefix = %q", got)
	}
}

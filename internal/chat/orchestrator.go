// Package chat coordinates one conversational request end to end: identity
// resolution, history, prompting, the model call, sanitization, and the
// transactional commit of the new turns.
package chat

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"solace/internal/llm"
	"solace/internal/observability"
	"solace/internal/policy"
	"solace/internal/prompt"
	"solace/internal/sanitize"
	"solace/internal/store"
)

type Orchestrator struct {
	store           store.Store
	client          llm.Client
	metrics         *observability.Metrics
	instruction     string
	placeholderName string
	window          int
}

func NewOrchestrator(st store.Store, client llm.Client, metrics *observability.Metrics, instruction, placeholderName string, window int) *Orchestrator {
	if window <= 0 {
		window = store.DefaultWindow
	}
	return &Orchestrator{
		store:           st,
		client:          client,
		metrics:         metrics,
		instruction:     instruction,
		placeholderName: placeholderName,
		window:          window,
	}
}

// ProcessText runs the full request state machine for one burst of user
// text. Every failure between the history read and the commit rolls the
// exchange back; a partial turn is never visible to a later request.
func (o *Orchestrator) ProcessText(ctx context.Context, externalID int64, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", Errorf(FaultValidation, "text is required")
	}
	// The bound counts characters, matching the store's VARCHAR limit.
	if utf8.RuneCountInString(text) > store.MaxContentLen {
		return "", Errorf(FaultValidation, "text exceeds %d characters", store.MaxContentLen)
	}

	turnStart := time.Now()
	stageStart := turnStart

	user, err := o.store.ResolveUser(ctx, externalID)
	if err != nil {
		return "", WrapFault(FaultStore, err)
	}
	o.metrics.ObserveStage("resolve_user", time.Since(stageStart))

	// The exchange must settle even if the caller disconnects mid-request.
	detached := context.WithoutCancel(ctx)

	exchange, err := o.store.BeginExchange(ctx, user.ID, o.window)
	if err != nil {
		return "", WrapFault(FaultStore, err)
	}
	defer func() {
		if err := exchange.Rollback(detached); err != nil {
			log.Printf("exchange rollback failed for user %d: %v", user.ID, err)
		}
	}()

	stageStart = time.Now()
	history, err := exchange.History(ctx)
	if err != nil {
		return "", WrapFault(FaultStore, err)
	}
	o.metrics.ObserveStage("read_history", time.Since(stageStart))

	messages := prompt.Assemble(o.instruction, o.placeholderName, history, text)

	stageStart = time.Now()
	raw, err := o.client.Complete(ctx, messages)
	if err != nil {
		o.metrics.UpstreamErrors.Inc()
		log.Printf("completion failed for user %d (input %q): %v",
			user.ID, policy.LogExcerpt(text), err)
		return "", WrapFault(FaultUpstream, err)
	}
	o.metrics.ObserveStage("llm_call", time.Since(stageStart))

	reply := sanitize.StripMarkup(raw)
	if screened := sanitize.Response(reply); screened != reply {
		o.metrics.SanitizerReplacements.Inc()
		reply = screened
	}

	stageStart = time.Now()
	if err := exchange.Commit(detached, text, reply); err != nil {
		return "", WrapFault(FaultStore, err)
	}
	o.metrics.ObserveStage("commit", time.Since(stageStart))
	o.metrics.ObserveStage("turn_total", time.Since(turnStart))
	o.metrics.ObserveTurn(time.Since(turnStart))

	return reply, nil
}

// SaveMood records labels for today. Unknown users are not created here;
// only the conversation path creates users.
func (o *Orchestrator) SaveMood(ctx context.Context, externalID int64, labels []string) error {
	cleaned := make([]string, 0, len(labels))
	for _, label := range labels {
		if label = strings.TrimSpace(label); label != "" {
			cleaned = append(cleaned, label)
		}
	}
	if len(cleaned) == 0 {
		return Errorf(FaultValidation, "mood is required")
	}

	user, err := o.lookupUser(ctx, externalID)
	if err != nil {
		return err
	}

	if err := o.store.SaveMood(ctx, user.ID, time.Now(), cleaned); err != nil {
		if errors.Is(err, store.ErrMoodAlreadyLogged) {
			return &Error{Fault: FaultConflict, Public: "Mood already logged today", Err: err}
		}
		return WrapFault(FaultStore, err)
	}
	return nil
}

func (o *Orchestrator) HasLoggedMood(ctx context.Context, externalID int64) (bool, error) {
	user, err := o.lookupUser(ctx, externalID)
	if err != nil {
		return false, err
	}

	logged, err := o.store.HasLoggedMood(ctx, user.ID, time.Now())
	if err != nil {
		return false, WrapFault(FaultStore, err)
	}
	return logged, nil
}

func (o *Orchestrator) AddJournalEntry(ctx context.Context, externalID int64, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return Errorf(FaultValidation, "content is required")
	}
	if utf8.RuneCountInString(content) > store.MaxContentLen {
		return Errorf(FaultValidation, "content exceeds %d characters", store.MaxContentLen)
	}

	user, err := o.lookupUser(ctx, externalID)
	if err != nil {
		return err
	}

	if err := o.store.AddJournalEntry(ctx, user.ID, content, time.Now()); err != nil {
		return WrapFault(FaultStore, err)
	}
	return nil
}

func (o *Orchestrator) ListJournalEntries(ctx context.Context, externalID int64) ([]store.JournalEntry, error) {
	user, err := o.lookupUser(ctx, externalID)
	if err != nil {
		return nil, err
	}

	entries, err := o.store.ListJournalEntries(ctx, user.ID)
	if err != nil {
		return nil, WrapFault(FaultStore, err)
	}
	return entries, nil
}

func (o *Orchestrator) lookupUser(ctx context.Context, externalID int64) (store.User, error) {
	user, err := o.store.LookupUser(ctx, externalID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return store.User{}, WrapFault(FaultNotFound, err)
		}
		return store.User{}, WrapFault(FaultStore, err)
	}
	return user, nil
}

package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/forgeworks/sdo/internal/chattransport"
	"github.com/forgeworks/sdo/internal/proto"
	"github.com/forgeworks/sdo/internal/session"
)

// runChatListener blocks on the chat transport's inbound stream until
// ctx is cancelled, dispatching every message through handleInbound.
// Grounded on main.go's own blocking signal-wait shape, here applied to
// chattransport.Transport.Listen's own internal XReadGroup loop instead
// of an os.Signal channel.
func (o *Orchestrator) runChatListener(ctx context.Context, consumerName string) {
	if err := o.chat.Listen(ctx, consumerName, 30*time.Second, o.handleInbound); err != nil && ctx.Err() == nil {
		o.logger.Error("chat listener stopped: %v", err)
	}
}

// handleInbound implements the per-user serialization spec.md §4.2
// requires: a user with no lock gets a fresh or continued thread
// (ContinueOrStart), a user already mid-processing is told to wait.
func (o *Orchestrator) handleInbound(ctx context.Context, msg chattransport.InboundMessage) error {
	user := strconv.FormatInt(msg.UserID, 10)

	threadID, outcome, err := o.sessions.ContinueOrStart(ctx, user)
	if err != nil {
		return fmt.Errorf("chat: failed to acquire session lock for user %s: %w", user, err)
	}

	switch outcome {
	case session.OutcomeBusy:
		return o.chat.Publish(ctx, msg.UserID, msg.ChatID,
			"Still working on your previous request, one moment.", msg.CorrelationID)
	case session.OutcomeNew:
		return o.runNewThread(ctx, user, threadID, msg)
	case session.OutcomeContinuation:
		return o.runContinuation(ctx, user, threadID, msg)
	default:
		return fmt.Errorf("chat: unknown session outcome %v", outcome)
	}
}

func (o *Orchestrator) runNewThread(ctx context.Context, user, threadID string, msg chattransport.InboundMessage) error {
	state := proto.NewGraphState(threadID, msg.CorrelationID)
	state.TelegramUserID = msg.UserID
	state.InternalUserID = user
	state.Messages = append(state.Messages, proto.NewUserMessage(msg.Text))

	final, err := o.coordinatorGraph.Run(ctx, threadID, state)
	return o.finishTurn(ctx, user, threadID, final, err)
}

// runContinuation implements the load-append-save-then-Resume pattern:
// Graph.Resume always reloads whatever is checkpointed under threadID,
// so the incoming user message must be appended to the existing
// checkpoint before Resume is called, or it would never be seen.
func (o *Orchestrator) runContinuation(ctx context.Context, user, threadID string, msg chattransport.InboundMessage) error {
	_, state, err := o.checkpoints.Load(ctx, threadID)
	if err != nil {
		return fmt.Errorf("chat: failed to load checkpoint for thread %s: %w", threadID, err)
	}

	if err := state.Apply(proto.Update{AppendMessages: []proto.Message{proto.NewUserMessage(msg.Text)}}); err != nil {
		return fmt.Errorf("chat: failed to apply inbound message to thread %s: %w", threadID, err)
	}
	state.CorrelationID = msg.CorrelationID

	// Saved at the coordinator node so Resume continues there and the
	// intent classifier, which gates only a fresh thread, is not re-run.
	if err := o.checkpoints.Save(ctx, threadID, "coordinator", state); err != nil {
		return fmt.Errorf("chat: failed to save checkpoint for thread %s: %w", threadID, err)
	}

	final, runErr := o.coordinatorGraph.Resume(ctx, threadID, state)
	return o.finishTurn(ctx, user, threadID, final, runErr)
}

// finishTurn ends the turn's hold on the per-user session lock. When the
// graph finished without error and left the thread awaiting further user
// input (AwaitingUserResponse), the lock is moved to the awaiting state so
// the user's next message is handled as a continuation of this thread.
// Otherwise (the thread is complete, or the run failed) the lock is
// released so the session cannot get stuck.
func (o *Orchestrator) finishTurn(ctx context.Context, user, threadID string, final *proto.GraphState, runErr error) error {
	if runErr != nil {
		o.logger.Error("coordinator graph run failed for thread %s: %v", threadID, runErr)
	}
	if runErr == nil && final != nil && final.AwaitingUserResponse {
		if err := o.sessions.UpdateState(ctx, user, session.StateAwaiting); err != nil {
			o.logger.Error("failed to mark session lock awaiting for user %s: %v", user, err)
		}
		return nil
	}
	if err := o.sessions.Release(ctx, user); err != nil {
		o.logger.Error("failed to release session lock for user %s: %v", user, err)
	}
	return runErr
}

// correlationID generates a fresh id for outbound messages that do not
// originate from an inbound request (e.g. job-completion notifications).
func correlationID() string {
	return uuid.NewString()
}

package main

import (
	"context"
	"strconv"
	"time"

	"github.com/forgeworks/sdo/internal/graph"
	"github.com/forgeworks/sdo/internal/jobqueue"
	"github.com/forgeworks/sdo/internal/proto"
)

const jobVisibilityTimeout = 5 * time.Minute

// runDeployWorker and runEngineeringWorker each pull one Entry at a
// time off their own durable stream and drive it to completion through
// the corresponding sub-pipeline graph, the same one-goroutine-per-kind
// shape RunWorker's internal consumer-group loop expects.
func (o *Orchestrator) runDeployWorker(ctx context.Context, consumerName string) {
	err := o.dispatcher.RunWorker(ctx, jobqueue.KindDeploy, consumerName, jobVisibilityTimeout, func(ctx context.Context, entry jobqueue.Entry) error {
		return o.runJob(ctx, o.deployGraph, entry)
	})
	if err != nil && ctx.Err() == nil {
		o.logger.Error("deploy worker stopped: %v", err)
	}
}

func (o *Orchestrator) runEngineeringWorker(ctx context.Context, consumerName string) {
	err := o.dispatcher.RunWorker(ctx, jobqueue.KindEngineering, consumerName, jobVisibilityTimeout, func(ctx context.Context, entry jobqueue.Entry) error {
		return o.runJob(ctx, o.engineeringGraph, entry)
	})
	if err != nil && ctx.Err() == nil {
		o.logger.Error("engineering worker stopped: %v", err)
	}
}

// runJob resumes (or, on first delivery, starts) the job's checkpoint
// thread keyed by entry.JobID, the same thread-id-as-resume-key
// convention the chat coordinator graph uses keyed by chat thread id
// instead. Graph.Resume itself loads any existing checkpoint and only
// falls back to running fresh when none is found, so the fresh state
// built here is only ever consulted on a job's first delivery.
func (o *Orchestrator) runJob(ctx context.Context, g *graph.Graph, entry jobqueue.Entry) error {
	fresh := proto.NewGraphState(entry.JobID, entry.CorrelationID)
	fresh.CurrentProject = entry.ProjectID
	if userID, parseErr := strconv.ParseInt(entry.UserID, 10, 64); parseErr == nil {
		fresh.TelegramUserID = userID
	}
	fresh.InternalUserID = entry.UserID
	for k, v := range entry.Fields {
		if s, ok := v.(string); ok {
			fresh.RepositoryInfo[k] = s
		}
	}

	_, err := g.Resume(ctx, entry.JobID, fresh)
	return err
}

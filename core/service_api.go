package core

import (
	"context"

	"pkt.systems/tiller/schema"
)

// Service is the transport-agnostic API for managing sessions, runs, and
// human decisions over proposed actions.
type Service interface {
	CreateSession(ctx context.Context, req schema.CreateSessionRequest) (schema.CreateSessionResponse, error)
	CloseSession(ctx context.Context, req schema.CloseSessionRequest) (schema.CloseSessionResponse, error)
	ListSessions(ctx context.Context, req schema.ListSessionsRequest) (schema.ListSessionsResponse, error)
	ActivateSession(ctx context.Context, req schema.ActivateSessionRequest) (schema.ActivateSessionResponse, error)
	StartRun(ctx context.Context, req schema.StartRunRequest) (schema.StartRunResponse, error)
	StopRun(ctx context.Context, req schema.StopRunRequest) (schema.StopRunResponse, error)
	ListActions(ctx context.Context, req schema.ListActionsRequest) (schema.ListActionsResponse, error)
	GetAction(ctx context.Context, req schema.GetActionRequest) (schema.GetActionResponse, error)
	ApproveAction(ctx context.Context, req schema.ApproveActionRequest) (schema.ApproveActionResponse, error)
	RejectAction(ctx context.Context, req schema.RejectActionRequest) (schema.RejectActionResponse, error)
	EditAction(ctx context.Context, req schema.EditActionRequest) (schema.EditActionResponse, error)
	GetTranscript(ctx context.Context, req schema.GetTranscriptRequest) (schema.GetTranscriptResponse, error)
	ScrollTranscript(ctx context.Context, req schema.ScrollTranscriptRequest) (schema.ScrollTranscriptResponse, error)
}

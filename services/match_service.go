package services

import (
	"allchat/runtime"
	"context"
)

type IMatchService interface {
	HandleEvent(ctx context.Context, e runtime.ConnectionEvent)
	Gauges() runtime.Gauges
}

var _ IMatchService = (*MatchService)(nil)

// MatchService is the entry point of transports into the engine.
type MatchService struct {
	orchestrator *runtime.Orchestrator
}

func NewMatchService(o *runtime.Orchestrator) *MatchService {
	return &MatchService{orchestrator: o}
}

func (s *MatchService) HandleEvent(ctx context.Context, e runtime.ConnectionEvent) {
	s.orchestrator.HandleEvent(ctx, e)
}

func (s *MatchService) Gauges() runtime.Gauges {
	return s.orchestrator.Gauges()
}

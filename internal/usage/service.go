package usage

import (
	"context"
	"time"
)

// ProjectCounts supplies per-user project counts.
type ProjectCounts interface {
	CountByUserID(ctx context.Context, userID string) (int, error)
}

// PersonaCounts supplies per-project persona counts.
type PersonaCounts interface {
	CountByProjectID(ctx context.Context, projectID string) (int, error)
}

// DoubleDiamondCounts supplies Double Diamond project and export counts.
type DoubleDiamondCounts interface {
	CountByUserID(ctx context.Context, userID string) (int, error)
	SumExportsByUserID(ctx context.Context, userID string) (int, error)
}

// TeamCounts supplies team sizes, owner plus accepted and pending invites.
type TeamCounts interface {
	CountTeamByProjectID(ctx context.Context, projectID string) (int, error)
}

// Service aggregates the counts the limit gates compare against entitlements.
// Durable counts come from Postgres; the monthly AI chat count comes from the
// counter store because it resets on a calendar boundary rather than a row
// lifecycle.
type Service struct {
	projects ProjectCounts
	personas PersonaCounts
	diamonds DoubleDiamondCounts
	teams    TeamCounts
	aiChats  AIChatCounter
}

func NewService(projects ProjectCounts, personas PersonaCounts, diamonds DoubleDiamondCounts, teams TeamCounts, aiChats AIChatCounter) *Service {
	return &Service{
		projects: projects,
		personas: personas,
		diamonds: diamonds,
		teams:    teams,
		aiChats:  aiChats,
	}
}

func (s *Service) ProjectCount(ctx context.Context, userID string) (int, error) {
	return s.projects.CountByUserID(ctx, userID)
}

func (s *Service) PersonaCount(ctx context.Context, projectID string) (int, error) {
	return s.personas.CountByProjectID(ctx, projectID)
}

func (s *Service) DoubleDiamondCount(ctx context.Context, userID string) (int, error) {
	return s.diamonds.CountByUserID(ctx, userID)
}

func (s *Service) DoubleDiamondExportTotal(ctx context.Context, userID string) (int, error) {
	return s.diamonds.SumExportsByUserID(ctx, userID)
}

func (s *Service) TeamMemberCount(ctx context.Context, projectID string) (int, error) {
	return s.teams.CountTeamByProjectID(ctx, projectID)
}

func (s *Service) AIChatCount(ctx context.Context, userID string, now time.Time) (int, error) {
	return s.aiChats.Current(ctx, userID, now)
}

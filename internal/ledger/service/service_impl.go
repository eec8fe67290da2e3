package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/guildpoint/merit/internal/clock"
	ledgerdomain "github.com/guildpoint/merit/internal/ledger/domain"
	"github.com/guildpoint/merit/pkg/rls"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 250
	maxLeaderboardLimit = 100
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  ledgerdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  ledgerdomain.Repository
}

func NewService(p Params) ledgerdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("ledger.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Append(ctx context.Context, event ledgerdomain.ReputationEvent) (bool, error) {
	if err := validateEvent(&event); err != nil {
		return false, err
	}

	if event.ID == 0 {
		event.ID = s.genID.Generate()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.clock.Now()
	}

	inserted := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if rls.Supported(tx) {
			if err := rls.WithTenant(tx, int64(event.TenantID)); err != nil {
				return err
			}
		}
		ok, err := s.repo.Insert(ctx, tx, &event)
		if err != nil {
			return err
		}
		inserted = ok
		return nil
	})
	if err != nil {
		return false, err
	}
	if !inserted {
		s.log.Debug("duplicate reputation event ignored",
			zap.String("tenant_id", event.TenantID.String()),
			zap.String("event_id", event.EventID),
			zap.String("source_tag", event.SourceTag),
		)
	}
	return inserted, nil
}

func (s *Service) Revoke(ctx context.Context, key ledgerdomain.EventKey) (bool, error) {
	if key.TenantID == 0 {
		return false, ledgerdomain.ErrInvalidTenant
	}
	if strings.TrimSpace(key.EventID) == "" {
		return false, ledgerdomain.ErrInvalidEventID
	}
	if strings.TrimSpace(key.FromUserID) == "" {
		return false, ledgerdomain.ErrInvalidUser
	}
	if strings.TrimSpace(key.SourceTag) == "" {
		return false, ledgerdomain.ErrInvalidSourceTag
	}

	removed := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if rls.Supported(tx) {
			if err := rls.WithTenant(tx, int64(key.TenantID)); err != nil {
				return err
			}
		}
		ok, err := s.repo.Delete(ctx, tx, key)
		if err != nil {
			return err
		}
		removed = ok
		return nil
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

func (s *Service) Total(ctx context.Context, tenantID snowflake.ID, userID string) (int64, error) {
	if tenantID == 0 {
		return 0, ledgerdomain.ErrInvalidTenant
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return 0, ledgerdomain.ErrInvalidUser
	}
	return s.repo.SumAmount(ctx, s.db, tenantID, userID)
}

func (s *Service) Leaderboard(ctx context.Context, tenantID snowflake.ID, limit int) ([]ledgerdomain.UserTotal, error) {
	if tenantID == 0 {
		return nil, ledgerdomain.ErrInvalidTenant
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}
	return s.repo.Leaderboard(ctx, s.db, tenantID, limit)
}

func (s *Service) NonzeroTotals(ctx context.Context, tenantID snowflake.ID) ([]ledgerdomain.UserTotal, error) {
	if tenantID == 0 {
		return nil, ledgerdomain.ErrInvalidTenant
	}
	return s.repo.NonzeroTotals(ctx, s.db, tenantID)
}

func (s *Service) History(ctx context.Context, req ledgerdomain.HistoryRequest) ([]ledgerdomain.ReputationEvent, error) {
	if req.TenantID == 0 {
		return nil, ledgerdomain.ErrInvalidTenant
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return nil, ledgerdomain.ErrInvalidUser
	}

	direction := req.Direction
	switch direction {
	case "":
		direction = ledgerdomain.HistoryDirectionBoth
	case ledgerdomain.HistoryDirectionTo, ledgerdomain.HistoryDirectionFrom, ledgerdomain.HistoryDirectionBoth:
	default:
		return nil, ledgerdomain.ErrInvalidDirection
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	return s.repo.List(ctx, s.db, ledgerdomain.HistoryFilter{
		TenantID:  req.TenantID,
		UserID:    userID,
		Direction: direction,
		Limit:     limit,
	})
}

func (s *Service) HasReceivedAny(ctx context.Context, tenantID snowflake.ID, userID string, sourceTags []string) (bool, error) {
	if tenantID == 0 {
		return false, ledgerdomain.ErrInvalidTenant
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return false, ledgerdomain.ErrInvalidUser
	}
	tags := make([]string, 0, len(sourceTags))
	for _, tag := range sourceTags {
		if trimmed := strings.TrimSpace(tag); trimmed != "" {
			tags = append(tags, trimmed)
		}
	}
	if len(tags) == 0 {
		return false, ledgerdomain.ErrInvalidSourceTag
	}
	return s.repo.ExistsBySourceTags(ctx, s.db, tenantID, userID, tags)
}

func validateEvent(event *ledgerdomain.ReputationEvent) error {
	if event.TenantID == 0 {
		return ledgerdomain.ErrInvalidTenant
	}
	event.EventID = strings.TrimSpace(event.EventID)
	if event.EventID == "" {
		return ledgerdomain.ErrInvalidEventID
	}
	event.FromUserID = strings.TrimSpace(event.FromUserID)
	event.ToUserID = strings.TrimSpace(event.ToUserID)
	if event.FromUserID == "" || event.ToUserID == "" {
		return ledgerdomain.ErrInvalidUser
	}
	event.SourceTag = strings.TrimSpace(event.SourceTag)
	if event.SourceTag == "" {
		return ledgerdomain.ErrInvalidSourceTag
	}
	if event.Amount == 0 {
		return ledgerdomain.ErrInvalidAmount
	}
	return nil
}

package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/guildpoint/merit/internal/cache"
	"github.com/guildpoint/merit/internal/rank/domain"
	"github.com/guildpoint/merit/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Cache cache.AwardResolverCache
}

type service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	cache cache.AwardResolverCache
}

func NewService(p Params) domain.Service {
	return &service{
		db:    p.DB,
		log:   p.Log.Named("rank.service"),
		genID: p.GenID,
		cache: p.Cache,
	}
}

func (s *service) Create(ctx context.Context, tenantID snowflake.ID, req domain.CreateDefinitionRequest) (*domain.Definition, error) {
	if tenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	if req.RequiredPoints < 0 {
		return nil, domain.ErrInvalidThreshold
	}
	badgeRef := strings.TrimSpace(req.BadgeRef)
	if badgeRef == "" {
		return nil, domain.ErrInvalidBadgeRef
	}

	now := time.Now().UTC()
	def := domain.Definition{
		ID:             s.genID.Generate(),
		TenantID:       tenantID,
		Name:           name,
		Slug:           slug.Make(name),
		RequiredPoints: req.RequiredPoints,
		BadgeRef:       badgeRef,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err := s.db.WithContext(ctx).Exec(
		`INSERT INTO rank_definitions (id, tenant_id, name, slug, required_points, badge_ref, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		def.ID,
		def.TenantID,
		def.Name,
		def.Slug,
		def.RequiredPoints,
		def.BadgeRef,
		def.CreatedAt,
		def.UpdatedAt,
	).Error
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrThresholdTaken
		}
		return nil, err
	}

	s.cache.InvalidateRankDefinitions(tenantID)

	s.log.Info("rank definition created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("slug", def.Slug),
		zap.Int64("required_points", def.RequiredPoints),
	)
	return &def, nil
}

func (s *service) Update(ctx context.Context, tenantID, definitionID snowflake.ID, req domain.UpdateDefinitionRequest) (*domain.Definition, error) {
	if tenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}
	if definitionID == 0 {
		return nil, domain.ErrInvalidDefinition
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	if req.RequiredPoints < 0 {
		return nil, domain.ErrInvalidThreshold
	}
	badgeRef := strings.TrimSpace(req.BadgeRef)
	if badgeRef == "" {
		return nil, domain.ErrInvalidBadgeRef
	}

	var def domain.Definition
	err := s.db.WithContext(ctx).
		First(&def, "id = ? AND tenant_id = ?", definitionID, tenantID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	def.Name = name
	def.Slug = slug.Make(name)
	def.RequiredPoints = req.RequiredPoints
	def.BadgeRef = badgeRef
	def.UpdatedAt = time.Now().UTC()

	err = s.db.WithContext(ctx).Exec(
		`UPDATE rank_definitions
		 SET name = ?, slug = ?, required_points = ?, badge_ref = ?, updated_at = ?
		 WHERE id = ? AND tenant_id = ?`,
		def.Name,
		def.Slug,
		def.RequiredPoints,
		def.BadgeRef,
		def.UpdatedAt,
		definitionID,
		tenantID,
	).Error
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrThresholdTaken
		}
		return nil, err
	}

	s.cache.InvalidateRankDefinitions(tenantID)
	return &def, nil
}

func (s *service) Delete(ctx context.Context, tenantID, definitionID snowflake.ID) error {
	if tenantID == 0 {
		return domain.ErrInvalidTenant
	}
	if definitionID == 0 {
		return domain.ErrInvalidDefinition
	}

	result := s.db.WithContext(ctx).Exec(
		`DELETE FROM rank_definitions WHERE id = ? AND tenant_id = ?`,
		definitionID,
		tenantID,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}

	s.cache.InvalidateRankDefinitions(tenantID)
	return nil
}

func (s *service) List(ctx context.Context, tenantID snowflake.ID) ([]domain.Definition, error) {
	if tenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}
	return s.definitions(ctx, tenantID)
}

func (s *service) EligibleRank(ctx context.Context, tenantID snowflake.ID, total int64) (*domain.Definition, error) {
	if tenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}

	defs, err := s.definitions(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	// Definitions are ordered by threshold ascending. The last rung at or
	// below the total wins.
	var eligible *domain.Definition
	for i := range defs {
		if defs[i].RequiredPoints > total {
			break
		}
		eligible = &defs[i]
	}
	if eligible == nil {
		return nil, nil
	}
	out := *eligible
	return &out, nil
}

func (s *service) definitions(ctx context.Context, tenantID snowflake.ID) ([]domain.Definition, error) {
	if defs, ok := s.cache.GetRankDefinitions(tenantID); ok {
		return defs, nil
	}

	var defs []domain.Definition
	err := s.db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, name, slug, required_points, badge_ref, created_at, updated_at
		 FROM rank_definitions
		 WHERE tenant_id = ?
		 ORDER BY required_points ASC, id ASC`,
		tenantID,
	).Scan(&defs).Error
	if err != nil {
		return nil, err
	}

	s.cache.SetRankDefinitions(tenantID, defs)
	return defs, nil
}

package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	auditdomain "github.com/guildpoint/merit/internal/audit/domain"
	awarddomain "github.com/guildpoint/merit/internal/award/domain"
	"github.com/guildpoint/merit/internal/cache"
	"github.com/guildpoint/merit/internal/clock"
	"github.com/guildpoint/merit/internal/cloudmetrics"
	"github.com/guildpoint/merit/internal/config"
	ledgerdomain "github.com/guildpoint/merit/internal/ledger/domain"
	"github.com/guildpoint/merit/internal/notify"
	"github.com/guildpoint/merit/internal/observability/metrics"
	"github.com/guildpoint/merit/internal/ratelimit"
	tenantdomain "github.com/guildpoint/merit/internal/tenant/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Manual awards are bounded so a typo cannot wipe out a balance.
const (
	manualAwardMin = -1000
	manualAwardMax = 1000
)

// errReplyCapReached aborts the reply transaction so the reply mark
// rolls back together with the skipped ledger append.
var errReplyCapReached = errors.New("reply_cap_reached")

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Rewards *config.RewardsConfigHolder
	Repo    awarddomain.Repository
	Ledger  ledgerdomain.Repository
	Policy  *ratelimit.AwardPolicy
	Tenants tenantdomain.Service
	Cache   cache.AwardResolverCache
	Audit   auditdomain.Service
	Notify  *notify.AsyncDispatcher `optional:"true"`
	Metrics *metrics.Metrics        `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	rewards *config.RewardsConfigHolder
	repo    awarddomain.Repository
	ledger  ledgerdomain.Repository
	policy  *ratelimit.AwardPolicy
	tenants tenantdomain.Service
	cache   cache.AwardResolverCache
	audit   auditdomain.Service
	notify  *notify.AsyncDispatcher
	metrics *metrics.Metrics
}

func NewService(p Params) awarddomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("award.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		rewards: p.Rewards,
		repo:    p.Repo,
		ledger:  p.Ledger,
		policy:  p.Policy,
		tenants: p.Tenants,
		cache:   p.Cache,
		audit:   p.Audit,
		notify:  p.Notify,
		metrics: p.Metrics,
	}
}

func (s *Service) RecordAward(ctx context.Context, req awarddomain.RecordAwardRequest) (awarddomain.Grant, error) {
	if req.TenantID == 0 {
		return awarddomain.Grant{}, awarddomain.ErrInvalidTenant
	}
	eventID := strings.TrimSpace(req.EventID)
	if eventID == "" {
		return awarddomain.Grant{}, awarddomain.ErrInvalidEvent
	}
	from := strings.TrimSpace(req.FromUserID)
	to := strings.TrimSpace(req.ToUserID)
	if from == "" || to == "" {
		return awarddomain.Grant{}, awarddomain.ErrInvalidUser
	}
	sourceTag := strings.TrimSpace(req.SourceTag)

	// First failing check wins and nothing is written.
	if from == to {
		return s.reject(ctx, sourceTag, awarddomain.ReasonSelfAward), nil
	}
	if req.RecipientIsBot {
		return s.reject(ctx, sourceTag, awarddomain.ReasonBotRecipient), nil
	}
	amount, ok := s.rewards.Get().Reactions[sourceTag]
	if !ok {
		return s.reject(ctx, sourceTag, awarddomain.ReasonUnsupportedSource), nil
	}

	decision, err := s.policy.Check(ctx, req.TenantID, from, to)
	if err != nil {
		return awarddomain.Grant{}, err
	}
	if !decision.Allowed {
		reason := awarddomain.ReasonDailyLimit
		if decision.Reason == ratelimit.ReasonRecipientLimit {
			reason = awarddomain.ReasonRecipientLimit
		}
		s.metrics.RecordRateLimitDenied(ctx, req.TenantID.String(), decision.Reason)
		grant := s.reject(ctx, sourceTag, reason)
		fillUsage(&grant, decision, false)
		return grant, nil
	}

	event := ledgerdomain.ReputationEvent{
		ID:         s.genID.Generate(),
		TenantID:   req.TenantID,
		EventID:    eventID,
		FromUserID: from,
		ToUserID:   to,
		SourceTag:  sourceTag,
		Amount:     amount,
		CreatedAt:  s.clock.Now().UTC(),
	}

	inserted := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		inserted, txErr = s.ledger.Insert(ctx, tx, &event)
		if txErr != nil {
			return txErr
		}
		if !inserted {
			return nil
		}
		return s.policy.Record(ctx, tx, req.TenantID, from, to)
	})
	if err != nil {
		return awarddomain.Grant{}, err
	}

	if !inserted {
		// Redelivery of an event already on the ledger.
		grant := s.reject(ctx, sourceTag, awarddomain.ReasonAlreadyReceived)
		fillUsage(&grant, decision, false)
		return grant, nil
	}

	s.metrics.RecordAwardGranted(ctx, sourceTag)
	cloudmetrics.RecordAward(sourceTag)
	s.log.Info("reaction award granted",
		zap.String("tenant_id", req.TenantID.String()),
		zap.String("event_id", eventID),
		zap.String("from_user_id", from),
		zap.String("to_user_id", to),
		zap.String("source_tag", sourceTag),
		zap.Int64("amount", amount),
	)
	s.publish(ctx, notify.Event{
		Type:     notify.TypeAwardGranted,
		TenantID: req.TenantID,
		UserID:   to,
		Points:   amount,
		Context:  map[string]string{"source_tag": sourceTag, "from_user_id": from},
	})

	grant := awarddomain.Grant{Granted: true, Amount: amount}
	fillUsage(&grant, decision, true)
	return grant, nil
}

func (s *Service) RevokeAward(ctx context.Context, req awarddomain.RevokeAwardRequest) (awarddomain.Revocation, error) {
	if req.TenantID == 0 {
		return awarddomain.Revocation{}, awarddomain.ErrInvalidTenant
	}
	eventID := strings.TrimSpace(req.EventID)
	if eventID == "" {
		return awarddomain.Revocation{}, awarddomain.ErrInvalidEvent
	}
	from := strings.TrimSpace(req.FromUserID)
	if from == "" {
		return awarddomain.Revocation{}, awarddomain.ErrInvalidUser
	}
	sourceTag := strings.TrimSpace(req.SourceTag)

	key := ledgerdomain.EventKey{
		TenantID:   req.TenantID,
		EventID:    eventID,
		FromUserID: from,
		SourceTag:  sourceTag,
	}
	removed, err := s.ledger.Delete(ctx, s.db, key)
	if err != nil {
		return awarddomain.Revocation{}, err
	}
	if !removed {
		return awarddomain.Revocation{ReasonCode: awarddomain.ReasonNotFound}, nil
	}

	s.metrics.RecordAwardRevoked(ctx, sourceTag)
	s.log.Info("reaction award revoked",
		zap.String("tenant_id", req.TenantID.String()),
		zap.String("event_id", eventID),
		zap.String("from_user_id", from),
		zap.String("source_tag", sourceTag),
	)
	return awarddomain.Revocation{Removed: true}, nil
}

func (s *Service) AwardDailyBonus(ctx context.Context, req awarddomain.DailyBonusRequest) (awarddomain.Grant, error) {
	if req.TenantID == 0 {
		return awarddomain.Grant{}, awarddomain.ErrInvalidTenant
	}
	user := strings.TrimSpace(req.UserID)
	if user == "" {
		return awarddomain.Grant{}, awarddomain.ErrInvalidUser
	}

	settings, err := s.settings(ctx, req.TenantID)
	if err != nil {
		return awarddomain.Grant{}, err
	}

	cfg := s.rewards.Get().Daily
	enabled := cfg.Enabled
	if settings.DailyBonusEnabled != nil {
		enabled = *settings.DailyBonusEnabled
	}
	if !enabled {
		return s.reject(ctx, ledgerdomain.SourceDailyBonus, awarddomain.ReasonDisabled), nil
	}
	if req.ActorIsBot {
		return s.reject(ctx, ledgerdomain.SourceDailyBonus, awarddomain.ReasonBotRecipient), nil
	}

	now := s.clock.Now()
	bonusDate := now.In(s.location(settings.BonusTimezone)).Format("2006-01-02")

	claim := awarddomain.DailyBonusClaim{
		ID:        s.genID.Generate(),
		TenantID:  req.TenantID,
		UserID:    user,
		BonusDate: bonusDate,
		CreatedAt: now.UTC(),
	}
	event := ledgerdomain.ReputationEvent{
		ID:         s.genID.Generate(),
		TenantID:   req.TenantID,
		EventID:    "daily:" + bonusDate,
		FromUserID: user,
		ToUserID:   user,
		SourceTag:  ledgerdomain.SourceDailyBonus,
		Amount:     cfg.Amount,
		CreatedAt:  now.UTC(),
	}

	granted := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inserted, txErr := s.repo.InsertDailyClaim(ctx, tx, &claim)
		if txErr != nil {
			return txErr
		}
		if !inserted {
			return nil
		}
		if _, txErr = s.ledger.Insert(ctx, tx, &event); txErr != nil {
			return txErr
		}
		granted = true
		return nil
	})
	if err != nil {
		return awarddomain.Grant{}, err
	}

	if !granted {
		return s.reject(ctx, ledgerdomain.SourceDailyBonus, awarddomain.ReasonAlreadyReceived), nil
	}

	s.metrics.RecordAwardGranted(ctx, ledgerdomain.SourceDailyBonus)
	cloudmetrics.RecordAward(ledgerdomain.SourceDailyBonus)
	s.log.Info("daily bonus granted",
		zap.String("tenant_id", req.TenantID.String()),
		zap.String("user_id", user),
		zap.String("bonus_date", bonusDate),
		zap.Int64("amount", cfg.Amount),
	)
	s.publish(ctx, notify.Event{
		Type:     notify.TypeBonusGranted,
		TenantID: req.TenantID,
		UserID:   user,
		Points:   cfg.Amount,
		Context:  map[string]string{"source_tag": ledgerdomain.SourceDailyBonus, "bonus_date": bonusDate},
	})
	return awarddomain.Grant{Granted: true, Amount: cfg.Amount}, nil
}

func (s *Service) AwardIntroductionBonus(ctx context.Context, req awarddomain.IntroductionBonusRequest) (awarddomain.Grant, error) {
	if req.TenantID == 0 {
		return awarddomain.Grant{}, awarddomain.ErrInvalidTenant
	}
	user := strings.TrimSpace(req.UserID)
	if user == "" {
		return awarddomain.Grant{}, awarddomain.ErrInvalidUser
	}
	channelID := strings.TrimSpace(req.ChannelID)
	if channelID == "" {
		return awarddomain.Grant{}, awarddomain.ErrInvalidChannel
	}

	settings, err := s.settings(ctx, req.TenantID)
	if err != nil {
		return awarddomain.Grant{}, err
	}

	cfg := s.rewards.Get().Introduction
	sourceTag := ledgerdomain.SourceIntroductionPost
	amount := cfg.PostAmount
	if req.ThreadStarter {
		sourceTag = ledgerdomain.SourceIntroductionStarter
		amount = cfg.StarterAmount
	}

	introChannel := strings.TrimSpace(settings.IntroductionChannelID)
	if introChannel == "" || channelID != introChannel {
		return s.reject(ctx, sourceTag, awarddomain.ReasonOutsideIntroduction), nil
	}

	// Post and starter variants share one lifetime cap.
	received, err := s.ledger.ExistsBySourceTags(ctx, s.db, req.TenantID, user, ledgerdomain.IntroductionSourceTags)
	if err != nil {
		return awarddomain.Grant{}, err
	}
	if received {
		return s.reject(ctx, sourceTag, awarddomain.ReasonAlreadyReceived), nil
	}

	event := ledgerdomain.ReputationEvent{
		ID:         s.genID.Generate(),
		TenantID:   req.TenantID,
		EventID:    "intro:" + user,
		FromUserID: user,
		ToUserID:   user,
		SourceTag:  sourceTag,
		Amount:     amount,
		CreatedAt:  s.clock.Now().UTC(),
	}
	inserted, err := s.ledger.Insert(ctx, s.db, &event)
	if err != nil {
		return awarddomain.Grant{}, err
	}
	if !inserted {
		return s.reject(ctx, sourceTag, awarddomain.ReasonAlreadyReceived), nil
	}

	s.metrics.RecordAwardGranted(ctx, sourceTag)
	cloudmetrics.RecordAward(sourceTag)
	s.log.Info("introduction bonus granted",
		zap.String("tenant_id", req.TenantID.String()),
		zap.String("user_id", user),
		zap.String("source_tag", sourceTag),
		zap.Int64("amount", amount),
	)
	s.publish(ctx, notify.Event{
		Type:     notify.TypeBonusGranted,
		TenantID: req.TenantID,
		UserID:   user,
		Points:   amount,
		Context:  map[string]string{"source_tag": sourceTag, "channel_id": channelID},
	})
	return awarddomain.Grant{Granted: true, Amount: amount}, nil
}

func (s *Service) AwardIntroductionReplyBonus(ctx context.Context, req awarddomain.IntroductionReplyRequest) (awarddomain.Grant, error) {
	if req.TenantID == 0 {
		return awarddomain.Grant{}, awarddomain.ErrInvalidTenant
	}
	user := strings.TrimSpace(req.UserID)
	if user == "" {
		return awarddomain.Grant{}, awarddomain.ErrInvalidUser
	}
	channelID := strings.TrimSpace(req.ChannelID)
	if channelID == "" {
		return awarddomain.Grant{}, awarddomain.ErrInvalidChannel
	}
	postID := strings.TrimSpace(req.PostID)
	if postID == "" {
		return awarddomain.Grant{}, awarddomain.ErrInvalidPost
	}

	settings, err := s.settings(ctx, req.TenantID)
	if err != nil {
		return awarddomain.Grant{}, err
	}

	introChannel := strings.TrimSpace(settings.IntroductionChannelID)
	if introChannel == "" || channelID != introChannel {
		return s.reject(ctx, ledgerdomain.SourceIntroductionReply, awarddomain.ReasonOutsideIntroduction), nil
	}
	if strings.TrimSpace(req.ThreadOwnerID) == user {
		return s.reject(ctx, ledgerdomain.SourceIntroductionReply, awarddomain.ReasonThreadOwner), nil
	}

	cfg := s.rewards.Get().Introduction
	now := s.clock.Now()
	since := now.Add(-time.Duration(cfg.ReplyWindowHours) * time.Hour)

	reply := awarddomain.IntroductionReply{
		ID:        s.genID.Generate(),
		TenantID:  req.TenantID,
		UserID:    user,
		PostID:    postID,
		RepliedAt: now.UTC(),
	}
	event := ledgerdomain.ReputationEvent{
		ID:         s.genID.Generate(),
		TenantID:   req.TenantID,
		EventID:    "introreply:" + postID,
		FromUserID: user,
		ToUserID:   user,
		SourceTag:  ledgerdomain.SourceIntroductionReply,
		Amount:     cfg.ReplyAmount,
		CreatedAt:  now.UTC(),
	}

	alreadyForPost := false
	used := 0
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inserted, txErr := s.repo.InsertIntroductionReply(ctx, tx, &reply)
		if txErr != nil {
			return txErr
		}
		if !inserted {
			alreadyForPost = true
			used, txErr = s.repo.CountRepliesSince(ctx, tx, req.TenantID, user, since)
			return txErr
		}

		// The count includes the row just inserted.
		used, txErr = s.repo.CountRepliesSince(ctx, tx, req.TenantID, user, since)
		if txErr != nil {
			return txErr
		}
		if used > cfg.MaxRepliesPerUser {
			return errReplyCapReached
		}

		_, txErr = s.ledger.Insert(ctx, tx, &event)
		return txErr
	})
	if errors.Is(err, errReplyCapReached) {
		grant := s.reject(ctx, ledgerdomain.SourceIntroductionReply, awarddomain.ReasonReplyLimit)
		grant.RepliesUsed = used - 1
		grant.RepliesLimit = cfg.MaxRepliesPerUser
		return grant, nil
	}
	if err != nil {
		return awarddomain.Grant{}, err
	}
	if alreadyForPost {
		grant := s.reject(ctx, ledgerdomain.SourceIntroductionReply, awarddomain.ReasonAlreadyReceived)
		grant.RepliesUsed = used
		grant.RepliesLimit = cfg.MaxRepliesPerUser
		return grant, nil
	}

	s.metrics.RecordAwardGranted(ctx, ledgerdomain.SourceIntroductionReply)
	cloudmetrics.RecordAward(ledgerdomain.SourceIntroductionReply)
	s.log.Info("introduction reply bonus granted",
		zap.String("tenant_id", req.TenantID.String()),
		zap.String("user_id", user),
		zap.String("post_id", postID),
		zap.Int64("amount", cfg.ReplyAmount),
	)
	s.publish(ctx, notify.Event{
		Type:     notify.TypeBonusGranted,
		TenantID: req.TenantID,
		UserID:   user,
		Points:   cfg.ReplyAmount,
		Context:  map[string]string{"source_tag": ledgerdomain.SourceIntroductionReply, "post_id": postID},
	})
	return awarddomain.Grant{
		Granted:      true,
		Amount:       cfg.ReplyAmount,
		RepliesUsed:  used,
		RepliesLimit: cfg.MaxRepliesPerUser,
	}, nil
}

func (s *Service) AwardInviteReward(ctx context.Context, req awarddomain.InviteRewardRequest) (awarddomain.Grant, error) {
	if req.TenantID == 0 {
		return awarddomain.Grant{}, awarddomain.ErrInvalidTenant
	}
	creator := strings.TrimSpace(req.CreatorID)
	joined := strings.TrimSpace(req.JoinedUserID)
	if creator == "" || joined == "" {
		return awarddomain.Grant{}, awarddomain.ErrInvalidUser
	}

	settings, err := s.settings(ctx, req.TenantID)
	if err != nil {
		return awarddomain.Grant{}, err
	}
	mode := settings.InviteRewardMode
	if mode == "" {
		mode = tenantdomain.InviteRewardAutomatic
	}

	cfg := s.rewards.Get().Invite
	now := s.clock.Now().UTC()

	if mode == tenantdomain.InviteRewardApproval {
		reward := awarddomain.InviteReward{
			ID:           s.genID.Generate(),
			TenantID:     req.TenantID,
			CreatorID:    creator,
			JoinedUserID: joined,
			Status:       awarddomain.InviteStatusPending,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		inserted, err := s.repo.InsertInviteReward(ctx, s.db, &reward)
		if err != nil {
			return awarddomain.Grant{}, err
		}
		if !inserted {
			return s.rejectInviteDuplicate(ctx, req.TenantID, creator, joined)
		}
		s.log.Info("invite reward pending approval",
			zap.String("tenant_id", req.TenantID.String()),
			zap.String("creator_id", creator),
			zap.String("joined_user_id", joined),
		)
		return s.reject(ctx, ledgerdomain.SourceInviteReward, awarddomain.ReasonPendingApproval), nil
	}

	firstRewardedAt := now
	reward := awarddomain.InviteReward{
		ID:              s.genID.Generate(),
		TenantID:        req.TenantID,
		CreatorID:       creator,
		JoinedUserID:    joined,
		Status:          awarddomain.InviteStatusRewarded,
		FirstRewardedAt: &firstRewardedAt,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	event := s.inviteEvent(req.TenantID, creator, joined, cfg.Amount, now)

	granted := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inserted, txErr := s.repo.InsertInviteReward(ctx, tx, &reward)
		if txErr != nil {
			return txErr
		}
		if !inserted {
			return nil
		}
		if _, txErr = s.ledger.Insert(ctx, tx, &event); txErr != nil {
			return txErr
		}
		granted = true
		return nil
	})
	if err != nil {
		return awarddomain.Grant{}, err
	}

	if !granted {
		return s.rejectInviteDuplicate(ctx, req.TenantID, creator, joined)
	}

	s.metrics.RecordAwardGranted(ctx, ledgerdomain.SourceInviteReward)
	cloudmetrics.RecordAward(ledgerdomain.SourceInviteReward)
	s.log.Info("invite reward granted",
		zap.String("tenant_id", req.TenantID.String()),
		zap.String("creator_id", creator),
		zap.String("joined_user_id", joined),
		zap.Int64("amount", cfg.Amount),
	)
	s.publish(ctx, notify.Event{
		Type:     notify.TypeBonusGranted,
		TenantID: req.TenantID,
		UserID:   creator,
		Points:   cfg.Amount,
		Context:  map[string]string{"source_tag": ledgerdomain.SourceInviteReward, "joined_user_id": joined},
	})
	return awarddomain.Grant{Granted: true, Amount: cfg.Amount}, nil
}

func (s *Service) ApproveInviteReward(ctx context.Context, req awarddomain.ApproveInviteRequest) (awarddomain.Grant, error) {
	if req.TenantID == 0 {
		return awarddomain.Grant{}, awarddomain.ErrInvalidTenant
	}
	creator := strings.TrimSpace(req.CreatorID)
	joined := strings.TrimSpace(req.JoinedUserID)
	approvedBy := strings.TrimSpace(req.ApprovedBy)
	if creator == "" || joined == "" || approvedBy == "" {
		return awarddomain.Grant{}, awarddomain.ErrInvalidUser
	}

	existing, err := s.repo.GetInviteReward(ctx, s.db, req.TenantID, creator, joined)
	if err != nil {
		return awarddomain.Grant{}, err
	}
	if existing == nil {
		return s.reject(ctx, ledgerdomain.SourceInviteReward, awarddomain.ReasonNotFound), nil
	}
	if existing.Status == awarddomain.InviteStatusRewarded {
		return s.reject(ctx, ledgerdomain.SourceInviteReward, awarddomain.ReasonAlreadyRewarded), nil
	}

	cfg := s.rewards.Get().Invite
	now := s.clock.Now().UTC()
	event := s.inviteEvent(req.TenantID, creator, joined, cfg.Amount, now)

	flipped := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		flipped, txErr = s.repo.MarkInviteRewarded(ctx, tx, req.TenantID, creator, joined, now)
		if txErr != nil {
			return txErr
		}
		if !flipped {
			return nil
		}
		_, txErr = s.ledger.Insert(ctx, tx, &event)
		return txErr
	})
	if err != nil {
		return awarddomain.Grant{}, err
	}

	if !flipped {
		return s.reject(ctx, ledgerdomain.SourceInviteReward, awarddomain.ReasonAlreadyRewarded), nil
	}

	_ = s.audit.AuditLog(ctx, &req.TenantID, string(auditdomain.ActorTypeUser), &approvedBy, "invite_reward.approve", "invite_reward", &joined, map[string]any{
		"creator_id":     creator,
		"joined_user_id": joined,
		"amount":         cfg.Amount,
	})

	s.metrics.RecordAwardGranted(ctx, ledgerdomain.SourceInviteReward)
	cloudmetrics.RecordAward(ledgerdomain.SourceInviteReward)
	s.log.Info("invite reward approved",
		zap.String("tenant_id", req.TenantID.String()),
		zap.String("creator_id", creator),
		zap.String("joined_user_id", joined),
		zap.String("approved_by", approvedBy),
	)
	s.publish(ctx, notify.Event{
		Type:     notify.TypeBonusGranted,
		TenantID: req.TenantID,
		UserID:   creator,
		Points:   cfg.Amount,
		Context:  map[string]string{"source_tag": ledgerdomain.SourceInviteReward, "joined_user_id": joined},
	})
	return awarddomain.Grant{Granted: true, Amount: cfg.Amount}, nil
}

func (s *Service) ManualAward(ctx context.Context, req awarddomain.ManualAwardRequest) (awarddomain.Grant, error) {
	if req.TenantID == 0 {
		return awarddomain.Grant{}, awarddomain.ErrInvalidTenant
	}
	to := strings.TrimSpace(req.ToUserID)
	actor := strings.TrimSpace(req.ActorID)
	if to == "" || actor == "" {
		return awarddomain.Grant{}, awarddomain.ErrInvalidUser
	}
	if req.Amount == 0 || req.Amount < manualAwardMin || req.Amount > manualAwardMax {
		return awarddomain.Grant{}, awarddomain.ErrInvalidAmount
	}

	event := ledgerdomain.ReputationEvent{
		ID:         s.genID.Generate(),
		TenantID:   req.TenantID,
		EventID:    uuid.NewString(),
		FromUserID: actor,
		ToUserID:   to,
		SourceTag:  ledgerdomain.SourceManual,
		Amount:     req.Amount,
		CreatedAt:  s.clock.Now().UTC(),
	}
	if _, err := s.ledger.Insert(ctx, s.db, &event); err != nil {
		return awarddomain.Grant{}, err
	}

	_ = s.audit.AuditLog(ctx, &req.TenantID, string(auditdomain.ActorTypeUser), &actor, "award.manual", "user", &to, map[string]any{
		"amount": req.Amount,
		"reason": strings.TrimSpace(req.Reason),
	})

	s.metrics.RecordAwardGranted(ctx, ledgerdomain.SourceManual)
	cloudmetrics.RecordAward(ledgerdomain.SourceManual)
	s.log.Info("manual award recorded",
		zap.String("tenant_id", req.TenantID.String()),
		zap.String("actor_id", actor),
		zap.String("to_user_id", to),
		zap.Int64("amount", req.Amount),
	)
	s.publish(ctx, notify.Event{
		Type:     notify.TypeAwardGranted,
		TenantID: req.TenantID,
		UserID:   to,
		Points:   req.Amount,
		Context:  map[string]string{"source_tag": ledgerdomain.SourceManual},
	})
	return awarddomain.Grant{Granted: true, Amount: req.Amount}, nil
}

// settings reads the tenant settings through the resolver cache.
func (s *Service) settings(ctx context.Context, tenantID snowflake.ID) (tenantdomain.Settings, error) {
	if cached, ok := s.cache.GetSettings(tenantID); ok {
		return cached, nil
	}

	settings, err := s.tenants.Settings(ctx, tenantID)
	if err != nil {
		return tenantdomain.Settings{}, err
	}
	s.cache.SetSettings(tenantID, settings)
	return settings, nil
}

// location resolves the tenant's bonus timezone, falling back to the
// process default when unset or unknown.
func (s *Service) location(name string) *time.Location {
	name = strings.TrimSpace(name)
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		s.log.Warn("unknown bonus timezone, using process default", zap.String("timezone", name))
		return time.Local
	}
	return loc
}

func (s *Service) inviteEvent(tenantID snowflake.ID, creator, joined string, amount int64, at time.Time) ledgerdomain.ReputationEvent {
	return ledgerdomain.ReputationEvent{
		ID:         s.genID.Generate(),
		TenantID:   tenantID,
		EventID:    "invite:" + joined,
		FromUserID: joined,
		ToUserID:   creator,
		SourceTag:  ledgerdomain.SourceInviteReward,
		Amount:     amount,
		CreatedAt:  at,
	}
}

// rejectInviteDuplicate picks the precise reason for a conflicting
// invite reward insert. The pre-read here only refines the reason code;
// idempotency is already settled by the insert.
func (s *Service) rejectInviteDuplicate(ctx context.Context, tenantID snowflake.ID, creator, joined string) (awarddomain.Grant, error) {
	existing, err := s.repo.GetInviteReward(ctx, s.db, tenantID, creator, joined)
	if err != nil {
		return awarddomain.Grant{}, err
	}
	if existing != nil && existing.Status == awarddomain.InviteStatusPending {
		return s.reject(ctx, ledgerdomain.SourceInviteReward, awarddomain.ReasonPendingApproval), nil
	}
	return s.reject(ctx, ledgerdomain.SourceInviteReward, awarddomain.ReasonAlreadyRewarded), nil
}

func (s *Service) reject(ctx context.Context, sourceTag, reason string) awarddomain.Grant {
	s.metrics.RecordAwardRejected(ctx, sourceTag, reason)
	return awarddomain.Grant{ReasonCode: reason}
}

func (s *Service) publish(ctx context.Context, event notify.Event) {
	if s.notify == nil {
		return
	}
	_ = s.notify.Publish(ctx, event)
}

func fillUsage(grant *awarddomain.Grant, decision ratelimit.Decision, counted bool) {
	grant.DailyUsed = decision.DailyUsed
	grant.RecipientUsed = decision.RecipientUsed
	if counted {
		grant.DailyUsed++
		grant.RecipientUsed++
	}
	grant.DailyLimit = decision.DailyLimit
	grant.RecipientLimit = decision.RecipientLimit
}

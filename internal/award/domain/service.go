package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// RecordAwardRequest is a reaction-style award delivered by the
// platform adapter. RecipientIsBot comes from the adapter because the
// engine has no user directory of its own.
type RecordAwardRequest struct {
	TenantID       snowflake.ID
	EventID        string
	FromUserID     string
	ToUserID       string
	SourceTag      string
	RecipientIsBot bool
}

// RevokeAwardRequest undoes a reaction award by its ledger key.
type RevokeAwardRequest struct {
	TenantID   snowflake.ID
	EventID    string
	FromUserID string
	SourceTag  string
}

type DailyBonusRequest struct {
	TenantID   snowflake.ID
	UserID     string
	ActorIsBot bool
}

// IntroductionBonusRequest covers both the plain post and the
// thread-starter variant; the two share one lifetime cap.
type IntroductionBonusRequest struct {
	TenantID      snowflake.ID
	UserID        string
	ChannelID     string
	ThreadStarter bool
}

type IntroductionReplyRequest struct {
	TenantID      snowflake.ID
	UserID        string
	ChannelID     string
	PostID        string
	ThreadOwnerID string
}

type InviteRewardRequest struct {
	TenantID     snowflake.ID
	CreatorID    string
	JoinedUserID string
}

type ApproveInviteRequest struct {
	TenantID     snowflake.ID
	CreatorID    string
	JoinedUserID string
	ApprovedBy   string
}

type ManualAwardRequest struct {
	TenantID snowflake.ID
	ToUserID string
	ActorID  string
	Amount   int64
	Reason   string
}

// Service runs every award flow. Rejections for policy reasons come
// back as Grant values with a reason code; errors are reserved for
// malformed requests and storage failures.
type Service interface {
	RecordAward(ctx context.Context, req RecordAwardRequest) (Grant, error)
	RevokeAward(ctx context.Context, req RevokeAwardRequest) (Revocation, error)
	AwardDailyBonus(ctx context.Context, req DailyBonusRequest) (Grant, error)
	AwardIntroductionBonus(ctx context.Context, req IntroductionBonusRequest) (Grant, error)
	AwardIntroductionReplyBonus(ctx context.Context, req IntroductionReplyRequest) (Grant, error)
	AwardInviteReward(ctx context.Context, req InviteRewardRequest) (Grant, error)
	ApproveInviteReward(ctx context.Context, req ApproveInviteRequest) (Grant, error)
	ManualAward(ctx context.Context, req ManualAwardRequest) (Grant, error)
}

var (
	ErrInvalidTenant  = errors.New("invalid_tenant")
	ErrInvalidEvent   = errors.New("invalid_event")
	ErrInvalidUser    = errors.New("invalid_user")
	ErrInvalidChannel = errors.New("invalid_channel")
	ErrInvalidPost    = errors.New("invalid_post")
	ErrInvalidAmount  = errors.New("invalid_amount")
)

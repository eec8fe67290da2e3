package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	awarddomain "github.com/guildpoint/merit/internal/award/domain"
)

type recordAwardRequest struct {
	EventID        string `json:"event_id"`
	FromUserID     string `json:"from_user_id"`
	ToUserID       string `json:"to_user_id"`
	SourceTag      string `json:"source_tag"`
	RecipientIsBot bool   `json:"recipient_is_bot"`
}

func (s *Server) RecordAward(c *gin.Context) {
	tenantID, err := s.tenantIDFromRequest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req recordAwardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	grant, err := s.awardSvc.RecordAward(c.Request.Context(), awarddomain.RecordAwardRequest{
		TenantID:       tenantID,
		EventID:        req.EventID,
		FromUserID:     req.FromUserID,
		ToUserID:       req.ToUserID,
		SourceTag:      req.SourceTag,
		RecipientIsBot: req.RecipientIsBot,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, grant)
}

type revokeAwardRequest struct {
	EventID    string `json:"event_id"`
	FromUserID string `json:"from_user_id"`
	SourceTag  string `json:"source_tag"`
}

func (s *Server) RevokeAward(c *gin.Context) {
	tenantID, err := s.tenantIDFromRequest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req revokeAwardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	revocation, err := s.awardSvc.RevokeAward(c.Request.Context(), awarddomain.RevokeAwardRequest{
		TenantID:   tenantID,
		EventID:    req.EventID,
		FromUserID: req.FromUserID,
		SourceTag:  req.SourceTag,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, revocation)
}

type dailyBonusRequest struct {
	UserID     string `json:"user_id"`
	ActorIsBot bool   `json:"actor_is_bot"`
}

func (s *Server) AwardDailyBonus(c *gin.Context) {
	tenantID, err := s.tenantIDFromRequest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req dailyBonusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	grant, err := s.awardSvc.AwardDailyBonus(c.Request.Context(), awarddomain.DailyBonusRequest{
		TenantID:   tenantID,
		UserID:     req.UserID,
		ActorIsBot: req.ActorIsBot,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, grant)
}

type introductionBonusRequest struct {
	UserID        string `json:"user_id"`
	ChannelID     string `json:"channel_id"`
	ThreadStarter bool   `json:"thread_starter"`
}

func (s *Server) AwardIntroductionBonus(c *gin.Context) {
	tenantID, err := s.tenantIDFromRequest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req introductionBonusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	grant, err := s.awardSvc.AwardIntroductionBonus(c.Request.Context(), awarddomain.IntroductionBonusRequest{
		TenantID:      tenantID,
		UserID:        req.UserID,
		ChannelID:     req.ChannelID,
		ThreadStarter: req.ThreadStarter,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, grant)
}

type introductionReplyRequest struct {
	UserID        string `json:"user_id"`
	ChannelID     string `json:"channel_id"`
	PostID        string `json:"post_id"`
	ThreadOwnerID string `json:"thread_owner_id"`
}

func (s *Server) AwardIntroductionReplyBonus(c *gin.Context) {
	tenantID, err := s.tenantIDFromRequest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req introductionReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	grant, err := s.awardSvc.AwardIntroductionReplyBonus(c.Request.Context(), awarddomain.IntroductionReplyRequest{
		TenantID:      tenantID,
		UserID:        req.UserID,
		ChannelID:     req.ChannelID,
		PostID:        req.PostID,
		ThreadOwnerID: req.ThreadOwnerID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, grant)
}

type inviteRewardRequest struct {
	CreatorID    string `json:"creator_id"`
	JoinedUserID string `json:"joined_user_id"`
}

func (s *Server) AwardInviteReward(c *gin.Context) {
	tenantID, err := s.tenantIDFromRequest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req inviteRewardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	grant, err := s.awardSvc.AwardInviteReward(c.Request.Context(), awarddomain.InviteRewardRequest{
		TenantID:     tenantID,
		CreatorID:    req.CreatorID,
		JoinedUserID: req.JoinedUserID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, grant)
}

func (s *Server) ApproveInviteReward(c *gin.Context) {
	tenantID, err := s.tenantIDFromRequest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req inviteRewardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	grant, err := s.awardSvc.ApproveInviteReward(c.Request.Context(), awarddomain.ApproveInviteRequest{
		TenantID:     tenantID,
		CreatorID:    req.CreatorID,
		JoinedUserID: req.JoinedUserID,
		ApprovedBy:   s.requestActorID(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, grant)
}

type manualAwardRequest struct {
	ToUserID string `json:"to_user_id"`
	Amount   int64  `json:"amount"`
	Reason   string `json:"reason"`
}

func (s *Server) ManualAward(c *gin.Context) {
	tenantID, err := s.tenantIDFromRequest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req manualAwardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	grant, err := s.awardSvc.ManualAward(c.Request.Context(), awarddomain.ManualAwardRequest{
		TenantID: tenantID,
		ToUserID: req.ToUserID,
		ActorID:  s.requestActorID(c),
		Amount:   req.Amount,
		Reason:   req.Reason,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, grant)
}

// requestActorID names the person an admin operation is attributed to:
// the relayed chat user when present, otherwise the authenticated actor.
func (s *Server) requestActorID(c *gin.Context) string {
	if acting := actingUserID(c); acting != "" {
		return acting
	}
	actor, ok := s.actorFromContext(c)
	if !ok {
		return ""
	}
	switch actor.Type {
	case ActorOperator:
		return "operator"
	case ActorAPIKey:
		return fmt.Sprintf("api_key:%s", actor.ID)
	default:
		return ""
	}
}

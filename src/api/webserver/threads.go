package webserver

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/commonwealth-im/commonwealth-api/src/api/analytics"
	"github.com/commonwealth-im/commonwealth-api/src/api/metrics"
	"github.com/commonwealth-im/commonwealth-api/src/api/notifications"
	"github.com/commonwealth-im/commonwealth-api/src/api/threads"
	"github.com/commonwealth-im/commonwealth-api/src/api/types"
)

type Threads struct {
	db       *gorm.DB
	svc      *threads.Service
	notifier *notifications.Dispatcher
	tracker  *analytics.Dispatcher
}

func NewThreads(db *gorm.DB, svc *threads.Service, notifier *notifications.Dispatcher, tracker *analytics.Dispatcher) Threads {
	return Threads{db: db, svc: svc, notifier: notifier, tracker: tracker}
}

type updateThreadRequest struct {
	Community   string `json:"community"`
	DiscordMeta string `json:"discordMeta"`

	Title *string `json:"title"`
	Body  *string `json:"body"`
	URL   *string `json:"url"`
	Stage *string `json:"stage"`

	Locked   *bool `json:"locked"`
	Pinned   *bool `json:"pinned"`
	Archived *bool `json:"archived"`
	Spam     *bool `json:"spam"`

	TopicID   *uint32 `json:"topicId"`
	TopicName *string `json:"topicName"`

	Collaborators *threads.CollaboratorChanges `json:"collaborators"`

	CanvasSession *string `json:"canvasSession"`
	CanvasAction  *string `json:"canvasAction"`
	CanvasHash    *string `json:"canvasHash"`
}

func (h Threads) Update(c *gin.Context) {
	var req updateThreadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	threadID := uint32(0)
	if raw := c.Param("id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad thread id"})
			return
		}
		threadID = uint32(id)
	}
	if threadID == 0 && req.DiscordMeta == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": threads.ErrThreadNotFound.Error()})
		return
	}

	communityID := req.Community
	if threadID != 0 {
		var thread types.Thread
		if err := h.db.First(&thread, threadID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": threads.ErrThreadNotFound.Error()})
			return
		}
		communityID = thread.CommunityID
	}

	var community types.Community
	if err := h.db.First(&community, "id = ?", communityID).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "community not found"})
		return
	}

	var address types.Address
	err := h.db.Preload("User").
		First(&address, "address = ? AND community_id = ?", c.GetString("addr"), communityID).Error
	if err != nil || address.User == nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "no account in this community"})
		return
	}

	thread, notifyJobs, trackJobs, err := h.svc.UpdateThread(c.Request.Context(), threads.UpdateThreadOptions{
		User:          address.User,
		Address:       &address,
		Community:     &community,
		ThreadID:      threadID,
		DiscordMeta:   req.DiscordMeta,
		Title:         req.Title,
		Body:          req.Body,
		URL:           req.URL,
		Stage:         req.Stage,
		Locked:        req.Locked,
		Pinned:        req.Pinned,
		Archived:      req.Archived,
		Spam:          req.Spam,
		TopicID:       req.TopicID,
		TopicName:     req.TopicName,
		Collaborators: req.Collaborators,
		CanvasSession: req.CanvasSession,
		CanvasAction:  req.CanvasAction,
		CanvasHash:    req.CanvasHash,
	})
	if err != nil {
		metrics.ThreadUpdates.WithLabelValues("error").Inc()
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	metrics.ThreadUpdates.WithLabelValues("ok").Inc()

	// side effects are decoupled from the request; dispatch failures are
	// the dispatchers' to log
	go h.notifier.Dispatch(context.Background(), notifyJobs)
	go h.tracker.Dispatch(context.Background(), trackJobs)

	c.JSON(http.StatusOK, thread)
}

func (h Threads) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad thread id"})
		return
	}

	thread, err := h.svc.GetThread(c.Request.Context(), uint32(id))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, thread)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, threads.ErrThreadNotFound):
		return http.StatusNotFound
	case errors.Is(err, threads.ErrUnauthorized), errors.Is(err, threads.ErrBanned):
		return http.StatusForbidden
	case threads.IsUserError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

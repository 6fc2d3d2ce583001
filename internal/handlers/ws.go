package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/challengehub/challengehub/internal/middleware"
	"github.com/challengehub/challengehub/internal/subscriptions"
	"github.com/challengehub/challengehub/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const writeTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WSHandler streams live view snapshots over WebSocket. Each connection
// carries exactly one subscription; every frame is a full snapshot that
// replaces the client's rendered state.
type WSHandler struct {
	views  *subscriptions.Views
	logger *logger.Logger
}

func NewWSHandler(views *subscriptions.Views, logger *logger.Logger) *WSHandler {
	return &WSHandler{views: views, logger: logger}
}

// stream upgrades the connection, opens the subscription, and pumps
// snapshots until either side goes away. The subscription is torn down on
// every exit path.
func (h *WSHandler) stream(c *gin.Context, subscribe func(context.Context) (*subscriptions.Subscription, error)) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	sub, err := subscribe(ctx)
	if err != nil {
		h.logger.WithError(err).Warn("Subscription failed")
		deadline := time.Now().Add(writeTimeout)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscription failed"), deadline)
		return
	}
	defer sub.Close()

	// Read pump: the client sends nothing meaningful, but reading is how we
	// learn the connection is gone.
	go func() {
		defer cancel()
		defer sub.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case snapshot, ok := <-sub.Snapshots():
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(snapshot); err != nil {
				return
			}
		}
	}
}

func (h *WSHandler) StreamFeed(c *gin.Context) {
	viewerID, err := uuid.Parse(middleware.GetUserID(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	mode := subscriptions.FeedMode(c.DefaultQuery("mode", string(subscriptions.FeedModeGlobal)))
	if mode != subscriptions.FeedModeGlobal && mode != subscriptions.FeedModeFollowing {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid feed mode"})
		return
	}

	h.stream(c, func(ctx context.Context) (*subscriptions.Subscription, error) {
		return h.views.SubscribeFeed(ctx, viewerID, mode)
	})
}

func (h *WSHandler) StreamLeaderboard(c *gin.Context) {
	h.stream(c, h.views.SubscribeLeaderboard)
}

func (h *WSHandler) StreamComments(c *gin.Context) {
	videoID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid video ID"})
		return
	}

	h.stream(c, func(ctx context.Context) (*subscriptions.Subscription, error) {
		return h.views.SubscribeCommentThread(ctx, videoID)
	})
}

func (h *WSHandler) StreamUserVideos(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
		return
	}

	h.stream(c, func(ctx context.Context) (*subscriptions.Subscription, error) {
		return h.views.SubscribeUserVideos(ctx, userID)
	})
}

func (h *WSHandler) StreamProfile(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
		return
	}

	h.stream(c, func(ctx context.Context) (*subscriptions.Subscription, error) {
		return h.views.SubscribeProfile(ctx, userID)
	})
}

func (h *WSHandler) StreamFollowStatus(c *gin.Context) {
	followerID, err := uuid.Parse(middleware.GetUserID(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	targetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
		return
	}

	h.stream(c, func(ctx context.Context) (*subscriptions.Subscription, error) {
		return h.views.SubscribeFollowStatus(ctx, followerID, targetID)
	})
}

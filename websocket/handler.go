package websocket

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"libris/apperrors"
	"libris/auth"
	"libris/models"
)

type TokenParser interface {
	Parse(token string) (*auth.Claims, error)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Handler upgrades authenticated requests. The client joins its own account
// room and the main group room. Requests without a valid token are rejected
// before the upgrade.
func Handler(hub *Hub, tokens TokenParser, sendBuffer int) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.Request)
		if token == "" {
			c.Error(apperrors.Unauthorized("Authentication required"))
			c.Abort()
			return
		}
		claims, err := tokens.Parse(token)
		if err != nil {
			c.Error(apperrors.Wrap(apperrors.KindUnauthorized, "Invalid or expired token", err))
			c.Abort()
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// the upgrader has already written the failure response
			hub.log.Warn("websocket upgrade failed", "user_id", claims.ID, "error", err)
			return
		}

		client := newClient(hub, conn, claims.ID, sendBuffer, claims.ID, models.MainGroup)
		client.enqueue("connected", map[string]any{
			"userId":       claims.ID,
			"connectionId": client.id,
			"time":         time.Now().Unix(),
		})
		if err := hub.Register(client); err != nil {
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait))
			conn.Close()
			return
		}

		go client.writePump()
		go client.readPump()
	}
}

func bearerToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

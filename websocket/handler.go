package websocket

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleWebSocket upgrades the request and starts the connection pumps.
// The token may come from ?token=, the Authorization header, or a first
// auth event sent within the handshake timeout.
func HandleWebSocket(c echo.Context, hub *Hub) error {
	token := c.QueryParam("token")
	if token == "" {
		token = strings.TrimSpace(strings.TrimPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer "))
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		c.Logger().Errorf("websocket upgrade failed: %v", err)
		return err
	}

	client := newClient(hub, conn, uuid.NewString())
	go client.writePump()
	go client.readPump(token)

	return nil
}

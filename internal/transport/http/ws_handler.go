package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"bloom-client/internal/api"
	"bloom-client/internal/app"
	"bloom-client/internal/domain"
	"bloom-client/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait    = 10 * time.Second
	// inboundQueue bounds messages waiting behind an in-flight backend call.
	inboundQueue = 32
)

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type textPayload struct {
	Text string `json:"text"`
}

type optionPayload struct {
	Option *domain.ID `json:"option"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type redirectPayload struct {
	Location string `json:"location"`
}

// WSHandler runs one survey controller per websocket connection.
type WSHandler struct {
	api      *api.Client
	log      *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(client *api.Client, log *zap.Logger) *WSHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &WSHandler{
		api: client,
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// ServeWS upgrades the request and drives the survey from inbound messages. Closing the
// connection cancels any backend request still in flight.
func (h *WSHandler) ServeWS(c *gin.Context) {
	r := c.Request
	tokens := api.TokenFunc(func(context.Context) string { return accessCookie(r) })

	conn, err := h.upgrader.Upgrade(c.Writer, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	inbound := make(chan inboundMessage, inboundQueue)
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug("ws write error", zap.Error(err))
				_ = conn.Close()
				return
			}
		}
	}()

	go func() {
		defer close(inbound)
		defer cancel()
		for {
			var msg inboundMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			// The reader never blocks on dispatch, so a close is seen while a request is in flight.
			select {
			case inbound <- msg:
			default:
				h.log.Warn("ws inbound queue full, dropping message", zap.String("type", msg.Type))
			}
		}
	}()

	push := func(typ string, payload any) {
		select {
		case send <- outboundMessage[any]{Type: typ, Payload: payload}:
		case <-writerDone:
		}
	}

	ctrl := app.NewSurveyController(h.api.WithTokens(tokens), tokens, h.log)
	ctrl.OnComplete(func(p domain.Progress) { push("celebrate", p) })

	for msg := range inbound {
		h.dispatch(ctx, ctrl, msg, push)
	}

	close(send)
	<-writerDone
}

func (h *WSHandler) dispatch(ctx context.Context, ctrl *app.SurveyController, msg inboundMessage, push func(string, any)) {
	switch msg.Type {
	case "init":
		if err := ctrl.Initialize(ctx); errors.Is(err, domain.ErrLoginRequired) {
			push("redirect", redirectPayload{Location: LoginRedirect(&url.URL{Path: "/survey"})})
			return
		}
	case "text":
		var p textPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			push("error", errorPayload{Message: "invalid text payload"})
			return
		}
		ctrl.SetText(p.Text)
	case "select":
		var p optionPayload
		if len(msg.Payload) > 0 {
			if err := json.Unmarshal(msg.Payload, &p); err != nil {
				push("error", errorPayload{Message: "invalid select payload"})
				return
			}
		}
		ctrl.SelectOption(p.Option)
	case "toggle":
		var p optionPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil || p.Option == nil {
			push("error", errorPayload{Message: "invalid toggle payload"})
			return
		}
		ctrl.ToggleOption(*p.Option)
	case "submit":
		ctrl.Submit(ctx)
	case "skip":
		ctrl.Skip(ctx)
	case "recalc":
		_ = ctrl.Recalculate(ctx)
	case "dismiss":
		ctrl.DismissError()
	default:
		push("error", errorPayload{Message: "unsupported message type"})
		return
	}
	if ctx.Err() != nil {
		return
	}
	push("state", newSurveyView(ctrl))
}

func accessCookie(r *http.Request) string {
	c, err := r.Cookie(string(session.AccessToken))
	if err != nil {
		return ""
	}
	return c.Value
}

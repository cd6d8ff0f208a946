package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-player/internal/middleware"
	"github.com/stemsi/exstem-player/internal/model"
	"github.com/stemsi/exstem-player/internal/response"
	"github.com/stemsi/exstem-player/internal/service"
	"github.com/stemsi/exstem-player/internal/session"
	ws "github.com/stemsi/exstem-player/internal/websocket"
	"golang.org/x/time/rate"
)

// Per-connection message budget: sustained 10/s with bursts of 20.
const (
	wsMessageInterval = 100 * time.Millisecond
	wsMessageBurst    = 20
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams a quiz session to the view and accepts its actions.
type WSHandler struct {
	sessions *service.SessionService
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessions *service.SessionService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessions: sessions,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// GET /ws/sessions/:quiz_id
// Loads (or reattaches to) the session, pushes every state change and
// applies actions sent by the view.
func (h *WSHandler) SessionStream(c *gin.Context) {
	quizID, ok := quizIDParam(c)
	if !ok {
		return
	}
	identity := middleware.GetIdentity(c)

	// Load before upgrading so a failed load is a normal HTTP error.
	ctrl, err := h.sessions.Load(c.Request.Context(), identity, quizID)
	if err != nil {
		fail(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().Str("quiz_id", quizID).Logger()
	if identity != nil {
		wsLog = wsLog.With().Str("user_id", identity.UserID).Logger()
	}
	wsLog.Info().Msg("View connected")

	states, unsubscribe := ctrl.Subscribe()
	defer unsubscribe()

	// gorilla/websocket allows one writer at a time; replies from the read
	// loop are funnelled through the writer goroutine.
	replies := make(chan interface{}, 16)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeLoop(ctx, conn, wsLog, ctrl.State(), states, replies)
	}()

	limiter := rate.NewLimiter(rate.Every(wsMessageInterval), wsMessageBurst)
	for {
		var msg ws.Request
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		if !limiter.Allow() {
			reply(writerDone, replies, errorEvent(failure{code: response.ErrRateLimitExceeded}))
			continue
		}
		if msg.Action == ws.ActionPing {
			reply(writerDone, replies, ws.PongResponse{Event: ws.EventPong})
			continue
		}

		action, err := msg.SessionAction()
		if err != nil {
			reply(writerDone, replies, ws.ErrorResponse{Event: ws.EventError, Code: string(response.ErrInvalidPayload), Error: err.Error()})
			continue
		}
		if err := ctrl.Dispatch(ctx, action); err != nil {
			if errors.Is(err, context.Canceled) {
				break
			}
			wsLog.Debug().Err(err).Str("action", string(msg.Action)).Msg("Action rejected")
			reply(writerDone, replies, errorEvent(classify(err)))
		}
	}

	cancel()
	<-writerDone
}

func reply(writerDone <-chan struct{}, replies chan<- interface{}, v interface{}) {
	select {
	case replies <- v:
	case <-writerDone:
	}
}

// writeLoop owns every write on conn. It ends when ctx is cancelled, a write
// fails, or the session's subscription is closed; in the last two cases it
// closes conn so the read loop unblocks.
func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, log zerolog.Logger, initial model.SessionState, states <-chan model.SessionState, replies <-chan interface{}) {
	defer conn.Close()
	sentResult := false
	send := func(state model.SessionState) error {
		if err := ws.WriteTyped(conn, ws.StateResponse{Event: ws.EventState, State: state}); err != nil {
			return err
		}
		if state.Status == model.SessionStatusCompleted && state.Result != nil && !sentResult {
			sentResult = true
			return ws.WriteTyped(conn, ws.SubmittedResponse{Event: ws.EventSubmitted, Result: state.Result})
		}
		return nil
	}

	if err := send(initial); err != nil {
		log.Debug().Err(err).Msg("Initial write failed")
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case state, ok := <-states:
			if !ok {
				// Session closed underneath us; tell the view and hang up.
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, session.ErrSessionClosed.Error()),
					time.Now().Add(time.Second))
				return
			}
			if err := send(state); err != nil {
				log.Debug().Err(err).Msg("State write failed")
				return
			}
		case v := <-replies:
			if err := ws.WriteTyped(conn, v); err != nil {
				log.Debug().Err(err).Msg("Reply write failed")
				return
			}
		}
	}
}

func errorEvent(f failure) ws.ErrorResponse {
	msg := f.message
	if msg == "" {
		msg = response.GetMessage(f.code)
	}
	return ws.ErrorResponse{
		Event:  ws.EventError,
		Code:   string(f.code),
		Error:  msg,
		Fields: f.fields,
	}
}

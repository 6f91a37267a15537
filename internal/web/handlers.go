package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/jaminalder/timetravel-tic-tac-toe/internal/app"
	"github.com/jaminalder/timetravel-tic-tac-toe/internal/domain"
	"github.com/jaminalder/timetravel-tic-tac-toe/internal/session"
)

type handlers struct {
	svc       *app.Service
	tpl       *templates
	log       zerolog.Logger
	heartbeat time.Duration
}

func (h *handlers) renderBoard(gs app.GameState, errMsg string) []byte {
	return renderTemplate(h.tpl.board, "", boardData{ID: gs.ID, State: gs, Error: errMsg})
}

func (h *handlers) writeBoard(w http.ResponseWriter, gs app.GameState, errMsg string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(h.renderBoard(gs, errMsg))
}

func (h *handlers) index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(renderTemplate(h.tpl.index, "", nil))
}

func (h *handlers) ping(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("pong"))
}

func (h *handlers) create(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	mode, err := session.ParseMode(r.Form.Get("mode"))
	if err != nil {
		http.Error(w, "unknown mode", http.StatusBadRequest)
		return
	}
	gs, err := h.svc.CreateGame(r.Context(), mode)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("failed to create game")
		http.Error(w, "failed to create", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/game/"+gs.ID, http.StatusSeeOther)
}

func (h *handlers) view(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	// ensure cookie and auto-claim seat
	pid := ensurePlayerCookie(w, r)
	seat, gs, err := h.svc.Join(r.Context(), id, pid)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	data := pageData{ID: gs.ID, State: *gs, Seat: seat}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(renderTemplate(h.tpl.game, "", data))
}

func (h *handlers) join(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	pid := ensurePlayerCookie(w, r)
	_, gs, err := h.svc.Join(r.Context(), id, pid)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeBoard(w, *gs, "")
}

func (h *handlers) play(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	pid := ensurePlayerCookie(w, r)
	_ = r.ParseForm()
	gs, err := h.svc.Play(r.Context(), id, pid, cellIndex(r))
	h.respond(w, r, id, gs, err)
}

func (h *handlers) jump(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	pid := ensurePlayerCookie(w, r)
	_ = r.ParseForm()
	move, err := strconv.Atoi(r.Form.Get("move"))
	if err != nil {
		move = -1
	}
	gs, err := h.svc.JumpTo(r.Context(), id, pid, move)
	h.respond(w, r, id, gs, err)
}

func (h *handlers) order(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	_ = r.ParseForm()
	order, err := domain.ParseOrder(r.Form.Get("order"))
	if err != nil {
		h.refuse(w, r, id, "Invalid order")
		return
	}
	gs, err := h.svc.SetOrder(r.Context(), id, order)
	h.respond(w, r, id, gs, err)
}

func (h *handlers) bot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	gs, err := h.svc.BotMove(r.Context(), id)
	h.respond(w, r, id, gs, err)
}

// stateResponse is the JSON view of a game.
type stateResponse struct {
	app.GameState
	Board       domain.Board      `json:"board"`
	Turn        domain.Cell       `json:"turn"`
	CurrentMove int               `json:"current_move"`
	Moves       []domain.MoveInfo `json:"moves"`
}

func (h *handlers) state(w http.ResponseWriter, r *http.Request) {
	gs, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	resp := stateResponse{
		GameState:   *gs,
		Board:       gs.Board(),
		Turn:        gs.Turn(),
		CurrentMove: gs.History.CurrentMove(),
		Moves:       gs.Moves(),
	}
	w.Header().Set("Content-Type", "application/json")
	if err = json.NewEncoder(w).Encode(resp); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("failed to encode state")
	}
}

// respond renders the board after a change. Refused changes render the stored
// board with a message.
func (h *handlers) respond(w http.ResponseWriter, r *http.Request, id string, gs *app.GameState, err error) {
	if err == nil {
		h.writeBoard(w, *gs, "")
		return
	}
	if errors.Is(err, app.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	errMsg := userMessage(err)
	if errMsg == "" {
		h.fail(w, r, err)
		return
	}
	h.refuse(w, r, id, errMsg)
}

// refuse renders the stored board with errMsg.
func (h *handlers) refuse(w http.ResponseWriter, r *http.Request, id, errMsg string) {
	current, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeBoard(w, *current, errMsg)
}

func userMessage(err error) string {
	switch {
	case errors.Is(err, session.ErrNotYourTurn):
		return "Not your turn"
	case errors.Is(err, session.ErrNotAPlayer):
		return "You are a spectator"
	case errors.Is(err, domain.ErrOccupied):
		return "Cell is occupied"
	case errors.Is(err, domain.ErrGameOver):
		return "Game is over"
	case errors.Is(err, session.ErrNoAvailableMoves):
		return "No moves left"
	case errors.Is(err, domain.ErrInvalidArgument):
		return "Invalid move"
	}
	return ""
}

func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, app.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	hlog.FromRequest(r).Error().Err(err).Msg("request failed")
	http.Error(w, "internal error", http.StatusInternalServerError)
}

// cellIndex reads the target cell from "i", or from "r" and "c". Unparsable input
// yields -1, which the domain rejects.
func cellIndex(r *http.Request) int {
	if s := r.Form.Get("i"); s != "" {
		i, err := strconv.Atoi(s)
		if err != nil {
			return -1
		}
		return i
	}
	row, errR := strconv.Atoi(r.Form.Get("r"))
	col, errC := strconv.Atoi(r.Form.Get("c"))
	p := domain.Position{Row: row, Col: col}
	if errR != nil || errC != nil || !p.Valid() {
		return -1
	}
	return p.Index()
}

func (h *handlers) events(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.svc.Get(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	// non-EventSource requests only get the headers
	if r.Header.Get("Accept") != "text/event-stream" {
		w.WriteHeader(http.StatusOK)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		w.WriteHeader(http.StatusOK)
		return
	}
	ctx := r.Context()
	ch, unsub := h.svc.Subscribe(ctx, id)
	defer unsub()
	h.log.Debug().Str("game", id).Msg("stream opened")
	defer func() { h.log.Debug().Str("game", id).Msg("stream closed") }()
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	flusher.Flush()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = io.WriteString(w, ": ping\n\n")
			flusher.Flush()
		case b, ok := <-ch:
			if !ok {
				return
			}
			writeEvent(w, "board", b)
			flusher.Flush()
		}
	}
}

// writeEvent emits one SSE event; every payload line gets its own data field.
func writeEvent(w io.Writer, name string, payload []byte) {
	_, _ = fmt.Fprintf(w, "event: %s\n", name)
	for _, line := range strings.Split(string(payload), "\n") {
		_, _ = fmt.Fprintf(w, "data: %s\n", line)
	}
	_, _ = io.WriteString(w, "\n")
}

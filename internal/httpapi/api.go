// Package httpapi exposes the rolling service as a JSON REST API under
// /api/rolagens.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/grinmorio/rolling/internal/apperr"
	"github.com/grinmorio/rolling/internal/rolling"
	"github.com/grinmorio/rolling/internal/rolling/dice"
	"github.com/grinmorio/rolling/internal/rolling/history"
	"github.com/grinmorio/rolling/internal/rolling/initiative"
)

const maxBodyBytes = 64 << 10

// Service is the subset of rolling.Service the API calls.
type Service interface {
	RollExpression(ctx context.Context, expression, userID, guildID, username string) (dice.Outcome, error)
	RollInitiative(ctx context.Context, modifier int, userID, guildID, username string) (rolling.InitiativeRoll, error)
	ListInitiative(ctx context.Context, guildID string) ([]initiative.Entry, error)
	ClearInitiative(ctx context.Context, guildID string) error
	SetInitiative(ctx context.Context, guildID, userID, username string, value int) ([]initiative.Entry, error)
	RemoveInitiative(ctx context.Context, guildID, userID string) error
	Stats(ctx context.Context, guildID, userID string) ([]history.Report, error)
}

// API holds the HTTP handlers.
type API struct {
	svc    Service
	logger *zap.Logger
	now    func() time.Time
}

// New creates an API over svc.
//
// Precondition: svc and logger must be non-nil.
func New(svc Service, logger *zap.Logger) *API {
	return &API{svc: svc, logger: logger, now: time.Now}
}

// Handler returns the routed handler wrapped in request logging.
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/rolagens/rolar", a.roll)
	mux.HandleFunc("POST /api/rolagens/iniciativa", a.rollInitiative)
	mux.HandleFunc("PUT /api/rolagens/iniciativa", a.setInitiative)
	mux.HandleFunc("GET /api/rolagens/iniciativa/{guildId}", a.listInitiative)
	mux.HandleFunc("DELETE /api/rolagens/iniciativa/{guildId}", a.clearInitiative)
	mux.HandleFunc("DELETE /api/rolagens/iniciativa/{guildId}/{userId}", a.removeInitiative)
	mux.HandleFunc("GET /api/rolagens/estatisticas/{guildId}/{userId}", a.stats)
	mux.HandleFunc("GET /api/health", a.health)
	mux.HandleFunc("/", a.notFound)
	return requestLogger(a.logger, mux)
}

type rollRequest struct {
	Expressao string `json:"expressao"`
	UserID    string `json:"userId"`
	GuildID   string `json:"guildId"`
	Username  string `json:"username"`
}

// rollResponse carries total as a number, or as the multi-roll label string.
type rollResponse struct {
	Total    any      `json:"total"`
	Detalhes []string `json:"detalhes"`
}

type initiativeRequest struct {
	Modificador int    `json:"modificador"`
	UserID      string `json:"userId"`
	GuildID     string `json:"guildId"`
	Username    string `json:"username"`
}

type initiativeResponse struct {
	Rolagem       rollResponse       `json:"rolagem"`
	ListaOrdenada []initiative.Entry `json:"listaOrdenada"`
}

type setInitiativeRequest struct {
	GuildID  string `json:"guildId"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Valor    *int   `json:"valor"`
}

type listResponse struct {
	ListaOrdenada []initiative.Entry `json:"listaOrdenada"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

func newRollResponse(out dice.Outcome) rollResponse {
	resp := rollResponse{Detalhes: out.Details}
	if out.IsMulti() {
		resp.Total = out.DisplayTotal()
	} else {
		resp.Total = out.Total
	}
	if resp.Detalhes == nil {
		resp.Detalhes = []string{}
	}
	return resp
}

func (a *API) roll(w http.ResponseWriter, r *http.Request) {
	var req rollRequest
	if !a.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Expressao) == "" {
		a.writeError(w, apperr.New(apperr.CodeValidation, "O campo expressao é obrigatório."))
		return
	}

	out, err := a.svc.RollExpression(r.Context(), req.Expressao, req.UserID, req.GuildID, req.Username)
	if err != nil {
		if errors.Is(err, dice.ErrNotARoll) {
			err = apperr.Wrap(apperr.CodeValidation, "Expressão não reconhecida.", err)
		}
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, newRollResponse(out))
}

func (a *API) rollInitiative(w http.ResponseWriter, r *http.Request) {
	var req initiativeRequest
	if !a.decode(w, r, &req) {
		return
	}
	res, err := a.svc.RollInitiative(r.Context(), req.Modificador, req.UserID, req.GuildID, req.Username)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, initiativeResponse{
		Rolagem:       newRollResponse(res.Roll),
		ListaOrdenada: res.Ordered,
	})
}

func (a *API) setInitiative(w http.ResponseWriter, r *http.Request) {
	var req setInitiativeRequest
	if !a.decode(w, r, &req) {
		return
	}
	if req.Valor == nil {
		a.writeError(w, apperr.New(apperr.CodeValidation, "O campo valor é obrigatório."))
		return
	}
	list, err := a.svc.SetInitiative(r.Context(), req.GuildID, req.UserID, req.Username, *req.Valor)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, listResponse{ListaOrdenada: list})
}

func (a *API) listInitiative(w http.ResponseWriter, r *http.Request) {
	list, err := a.svc.ListInitiative(r.Context(), r.PathValue("guildId"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, listResponse{ListaOrdenada: list})
}

func (a *API) clearInitiative(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.ClearInitiative(r.Context(), r.PathValue("guildId")); err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, messageResponse{Message: "Lista de iniciativas limpa."})
}

func (a *API) removeInitiative(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.RemoveInitiative(r.Context(), r.PathValue("guildId"), r.PathValue("userId")); err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, messageResponse{Message: "Utilizador removido da lista de iniciativa."})
}

func (a *API) stats(w http.ResponseWriter, r *http.Request) {
	reports, err := a.svc.Stats(r.Context(), r.PathValue("guildId"), r.PathValue("userId"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, reports)
}

func (a *API) health(w http.ResponseWriter, _ *http.Request) {
	a.writeJSON(w, http.StatusOK, healthResponse{Status: "online", Timestamp: a.now().UTC()})
}

func (a *API) notFound(w http.ResponseWriter, _ *http.Request) {
	a.writeJSON(w, http.StatusNotFound, messageResponse{Message: "Endpoint não encontrado."})
}

func (a *API) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		msg := "Corpo da requisição inválido."
		if errors.Is(err, io.EOF) {
			msg = "Corpo da requisição vazio."
		}
		a.writeError(w, apperr.Wrap(apperr.CodeValidation, msg, err))
		return false
	}
	return true
}

func (a *API) writeError(w http.ResponseWriter, err error) {
	status := apperr.HTTPStatus(err)
	msg := apperr.MessageOf(err)
	if status >= http.StatusInternalServerError {
		a.logger.Error("request failed", zap.Error(err))
		msg = "Erro interno do servidor."
	}
	a.writeJSON(w, status, messageResponse{Message: msg})
}

func (a *API) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Warn("writing response", zap.Error(err))
	}
}

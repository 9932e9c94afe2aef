// Package httpapi exposes the devnet shell protocol over REST.
package httpapi

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/R3E-Network/shell_layer/internal/app/domain/shell"
	"github.com/R3E-Network/shell_layer/internal/app/host/memory"
	"github.com/R3E-Network/shell_layer/internal/app/metrics"
	"github.com/R3E-Network/shell_layer/internal/app/services/deployer"
	"github.com/R3E-Network/shell_layer/pkg/logger"
)

// handler bundles the HTTP endpoints for the shell layer.
type handler struct {
	deployer *deployer.Service
	chain    *memory.Chain
	log      *logger.Logger
}

// NewHandler returns a router exposing the shell REST API.
func NewHandler(dep *deployer.Service, chain *memory.Chain, log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.Default()
	}
	h := &handler{deployer: dep, chain: chain, log: log}

	r := mux.NewRouter()
	r.HandleFunc("/health", h.health).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/shells", h.deploy).Methods(http.MethodPost)
	r.HandleFunc("/shells/deterministic", h.deployDeterministic).Methods(http.MethodPost)
	r.HandleFunc("/shells/predict", h.predict).Methods(http.MethodGet)
	r.HandleFunc("/shells/{address}", h.shellInfo).Methods(http.MethodGet)
	r.HandleFunc("/shells/{address}/invoke", h.invoke).Methods(http.MethodPost)
	r.HandleFunc("/receipts", h.receipts).Methods(http.MethodGet)
	return r
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) deploy(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Controller string `json:"controller"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	controller, err := shell.ParseAddress(payload.Controller)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	addr, err := h.deployer.Create(r.Context(), controller)
	metrics.RecordDeployment("assigned", err)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"address":    addr.String(),
		"controller": controller.String(),
	})
}

func (h *handler) deployDeterministic(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Controller string `json:"controller"`
		Salt       string `json:"salt"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	controller, err := shell.ParseAddress(payload.Controller)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	salt, err := shell.ParseSalt(payload.Salt)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	addr, err := h.deployer.CreateDeterministic(r.Context(), controller, salt)
	metrics.RecordDeployment("deterministic", err)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, shell.ErrSaltAlreadyUsed) {
			status = http.StatusConflict
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"address":    addr.String(),
		"controller": controller.String(),
	})
}

func (h *handler) predict(w http.ResponseWriter, r *http.Request) {
	controller, err := shell.ParseAddress(r.URL.Query().Get("controller"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	salt, err := shell.ParseSalt(r.URL.Query().Get("salt"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"address": h.deployer.Predict(controller, salt).String(),
	})
}

func (h *handler) shellInfo(w http.ResponseWriter, r *http.Request) {
	addr, err := shell.ParseAddress(mux.Vars(r)["address"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	inst, ok := h.chain.Shell(addr)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("no shell at %s", addr))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"address":    inst.Address().String(),
		"controller": inst.Controller().String(),
		"balance":    h.chain.BalanceOf(addr),
	})
}

func (h *handler) invoke(w http.ResponseWriter, r *http.Request) {
	target, err := shell.ParseAddress(mux.Vars(r)["address"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var payload struct {
		Caller string `json:"caller"`
		Value  int64  `json:"value"`
		Input  string `json:"input"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	caller, err := shell.ParseAddress(payload.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	input, err := hex.DecodeString(strings.TrimPrefix(payload.Input, "0x"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("parse input: %w", err))
		return
	}

	res, rcpt, err := h.chain.Invoke(caller, target, payload.Value, input)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	metrics.RecordInvocation(rcpt.Outcome)

	body := map[string]interface{}{
		"receipt_id": rcpt.ID,
		"outcome":    rcpt.Outcome,
		"success":    res.Err == nil,
		"return":     "0x" + hex.EncodeToString(res.Return),
	}
	if res.Err != nil {
		var derr *shell.DelegateError
		if errors.As(res.Err, &derr) {
			body["failure"] = "0x" + hex.EncodeToString(derr.Payload)
		} else {
			body["failure"] = res.Err.Error()
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *handler) receipts(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", raw))
			return
		}
		limit = parsed
	}

	type receiptDTO struct {
		ID        string    `json:"id"`
		Caller    string    `json:"caller"`
		Target    string    `json:"target"`
		Value     int64     `json:"value"`
		Outcome   string    `json:"outcome"`
		Return    string    `json:"return"`
		CreatedAt time.Time `json:"created_at"`
	}
	recs := h.chain.Receipts(limit)
	out := make([]receiptDTO, 0, len(recs))
	for _, rc := range recs {
		out = append(out, receiptDTO{
			ID:        rc.ID,
			Caller:    rc.Caller.String(),
			Target:    rc.Target.String(),
			Value:     rc.Value,
			Outcome:   rc.Outcome,
			Return:    "0x" + hex.EncodeToString(rc.Return),
			CreatedAt: rc.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func decodeJSON(body io.Reader, v interface{}) error {
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/YuvrajArora777/Finsight-Clean/internal/readview"
	"github.com/YuvrajArora777/Finsight-Clean/pkg/logger"
)

// streamInterval is how often the websocket stream pushes a fresh view.
const streamInterval = 15 * time.Second

// ViewHandler serves the merged live-vs-cached read surface
// ⭐ SSOT: dashboard read endpoints live in this struct only
type ViewHandler struct {
	accessor *readview.Accessor
	symbols  []string
	upgrader websocket.Upgrader
	logger   *logger.Logger
}

// NewViewHandler creates a new view handler. symbols is the configured
// ordered symbol set.
func NewViewHandler(accessor *readview.Accessor, symbols []string, log *logger.Logger) *ViewHandler {
	return &ViewHandler{
		accessor: accessor,
		symbols:  symbols,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Dashboard origins are not restricted; the surface is read-only
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: log,
	}
}

// GetSymbols returns the configured symbol set
// GET /api/symbols
func (h *ViewHandler) GetSymbols(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{"symbols": h.symbols})
}

// GetView returns the merged view for one symbol
// GET /api/view/{symbol}
func (h *ViewHandler) GetView(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(mux.Vars(r)["symbol"])
	if symbol == "" {
		respondError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	view, err := h.accessor.GetView(r.Context(), symbol)
	if err != nil {
		if errors.Is(err, readview.ErrUnavailable) {
			respondError(w, http.StatusNotFound, "no data available for "+symbol)
			return
		}
		h.logger.WithError(err).WithField("symbol", symbol).Error("Failed to build view")
		respondError(w, http.StatusInternalServerError, "Failed to build view")
		return
	}

	respondJSON(w, http.StatusOK, view)
}

// GetAllViews returns the merged view for every configured symbol.
// Symbols with no data at all are omitted rather than failing the response
// GET /api/view
func (h *ViewHandler) GetAllViews(w http.ResponseWriter, r *http.Request) {
	views := make([]*readview.View, 0, len(h.symbols))
	for _, symbol := range h.symbols {
		view, err := h.accessor.GetView(r.Context(), symbol)
		if err != nil {
			if !errors.Is(err, readview.ErrUnavailable) {
				h.logger.WithError(err).WithField("symbol", symbol).Error("Failed to build view")
			}
			continue
		}
		views = append(views, view)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"views": views})
}

// StreamView pushes the merged view over a websocket until the client
// disconnects
// GET /api/view/{symbol}/stream
func (h *ViewHandler) StreamView(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(mux.Vars(r)["symbol"])
	if symbol == "" {
		respondError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	log := h.logger.WithField("symbol", symbol)
	log.Debug("View stream opened")

	// Reader goroutine: detect client disconnect
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(streamInterval)
	defer ticker.Stop()

	for {
		view, err := h.accessor.GetView(r.Context(), symbol)
		if err != nil {
			if writeErr := conn.WriteJSON(map[string]string{"error": err.Error()}); writeErr != nil {
				return
			}
		} else if err := conn.WriteJSON(view); err != nil {
			log.WithError(err).Debug("View stream closed by write failure")
			return
		}

		select {
		case <-ticker.C:
		case <-done:
			log.Debug("View stream closed by client")
			return
		case <-r.Context().Done():
			return
		}
	}
}

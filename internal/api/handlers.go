package api

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/IsacDav66/Criptobot/internal/command"
	"github.com/IsacDav66/Criptobot/internal/events"
	"github.com/IsacDav66/Criptobot/pkg/db"
)

// historyDefaultLimit matches the dashboard's visible history window.
const (
	historyDefaultLimit = 10
	historyMaxLimit     = 200
	chartDefaultLimit   = 100
)

// getStatus returns the latest cycle snapshot.
func (s *Server) getStatus(c *gin.Context) {
	snap, ok := s.Statuses.Latest()
	if !ok {
		c.JSON(http.StatusOK, gin.H{
			"ready":   false,
			"message": "no cycle completed yet",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ready":  true,
		"status": snap,
	})
}

// getHistory returns the newest audit rows, most recent first.
func (s *Server) getHistory(c *gin.Context) {
	limit := historyDefaultLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":  "INVALID_LIMIT",
				"error": "limit must be a positive integer",
			})
			return
		}
		limit = n
	}
	if limit > historyMaxLimit {
		limit = historyMaxLimit
	}

	rows, err := s.DB.RecentCycles(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":  "INTERNAL_ERROR",
			"error": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":  len(rows),
		"cycles": historyView(rows),
	})
}

// getChart returns recent candles for the dashboard price chart.
func (s *Server) getChart(c *gin.Context) {
	limit := chartDefaultLimit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}

	klines, err := s.Markets.GetKlines(c.Request.Context(), s.Cfg.Symbol, s.Cfg.CandleInterval, limit)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"code":  "MARKET_DATA_UNAVAILABLE",
			"error": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"symbol":   s.Cfg.Symbol,
		"interval": s.Cfg.CandleInterval,
		"klines":   klines,
	})
}

// getMetrics returns a point-in-time controller metrics snapshot.
func (s *Server) getMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, s.Metrics.GetSnapshot())
}

// getPendingCommand shows what the next cycle will pick up.
func (s *Server) getPendingCommand(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"pending": s.Commands.Peek()})
}

// postCommand stores a forced command for the next cycle. Last write
// wins; the controller consumes it exactly once.
func (s *Server) postCommand(c *gin.Context) {
	var req struct {
		Command string `json:"command"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  "INVALID_PAYLOAD",
			"error": "invalid request payload",
		})
		return
	}

	cmd, ok := command.Parse(req.Command)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  "UNKNOWN_COMMAND",
			"error": "command must be one of FORCE_BUY, FORCE_SELL, FORCE_IA_CONSULT, CLEAR",
		})
		return
	}

	s.Commands.Put(cmd)
	if s.Bus != nil {
		s.Bus.Publish(events.EventCommand, cmd)
	}
	c.JSON(http.StatusAccepted, gin.H{"accepted": cmd})
}

// cycleView flattens a db row for JSON output; NULL columns become null.
type cycleView struct {
	ID           int64   `json:"id"`
	Timestamp    string  `json:"timestamp"`
	Action       string  `json:"action"`
	Symbol       string  `json:"symbol"`
	ExecPrice    *string `json:"exec_price"`
	ExecQty      *string `json:"exec_qty"`
	QuoteCost    *string `json:"quote_cost"`
	AISignal     *string `json:"ai_signal"`
	AIReply      *string `json:"ai_reply"`
	HasPosition  bool    `json:"has_position"`
	EntryPrice   *string `json:"entry_price"`
	BaseBalance  *string `json:"base_balance"`
	QuoteBalance *string `json:"quote_balance"`
	RealizedPnL  *string `json:"realized_pnl"`
	OpenOrderID  *string `json:"open_order_id"`
	Notes        *string `json:"notes"`
}

func historyView(rows []db.CycleRow) []cycleView {
	out := make([]cycleView, 0, len(rows))
	for _, r := range rows {
		out = append(out, cycleView{
			ID:           r.ID,
			Timestamp:    r.Timestamp.UTC().Format(time.RFC3339),
			Action:       r.Action,
			Symbol:       r.Symbol,
			ExecPrice:    decimalPtr(r.ExecPrice),
			ExecQty:      decimalPtr(r.ExecQty),
			QuoteCost:    decimalPtr(r.QuoteCost),
			AISignal:     stringPtr(r.AISignal),
			AIReply:      stringPtr(r.AIReply),
			HasPosition:  r.HasPosition,
			EntryPrice:   decimalPtr(r.EntryPrice),
			BaseBalance:  decimalPtr(r.BaseBalance),
			QuoteBalance: decimalPtr(r.QuoteBalance),
			RealizedPnL:  decimalPtr(r.RealizedPnL),
			OpenOrderID:  stringPtr(r.OpenOrderID),
			Notes:        stringPtr(r.Notes),
		})
	}
	return out
}

func decimalPtr(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := d.Decimal.String()
	return &s
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

package dashboard

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2/common"
	"github.com/gin-gonic/gin"

	"cryptotracker/internal/store"
	"cryptotracker/internal/symbols"
	"cryptotracker/models"
	"cryptotracker/processor"
	"cryptotracker/reader/binance"
)

// Binance answers unknown pairs with this code.
const codeInvalidSymbol = -1121

const healthTimeout = 3 * time.Second

// assetItem is a list card with its icon.
type assetItem struct {
	processor.CardView
	Pinned bool         `json:"pinned"`
	Icon   symbols.Icon `json:"icon"`
}

func (s *Server) item(a models.MarketAsset) assetItem {
	return assetItem{
		CardView: processor.ProjectCard(a),
		Pinned:   a.Pinned,
		Icon:     s.deps.Icons.Resolve(a.BaseAsset),
	}
}

func (s *Server) index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.tmpl", gin.H{
		"AppName":    s.appName,
		"QuoteAsset": s.quoteAsset,
		"SortModes":  processor.SortModes,
	})
}

func (s *Server) listAssets(c *gin.Context) {
	var q models.ViewQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	mode := processor.ParseSortMode(q.Sort)

	snap := s.deps.Store.Load()
	view := processor.Query(snap.Assets, q.Search, mode)

	items := make([]assetItem, 0, len(view))
	for _, a := range view {
		items = append(items, s.item(a))
	}

	c.JSON(http.StatusOK, gin.H{
		"assets": items,
		"count":  len(items),
		"total":  len(snap.Assets),
		"search": q.Search,
		"sort":   mode,
		"quote":  s.quoteAsset,
		"state":  snapshotState(snap),
	})
}

func (s *Server) getAsset(c *gin.Context) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))
	snap := s.deps.Store.Load()

	asset, ok := snap.Assets.Find(symbol)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown symbol " + symbol})
		return
	}

	detail := processor.ProjectDetail(asset)
	c.JSON(http.StatusOK, gin.H{
		"asset":   s.item(asset),
		"detail":  detail,
		"metrics": detail.List(),
		"state":   snapshotState(snap),
	})
}

func (s *Server) getChart(c *gin.Context) {
	if s.deps.Charts == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "chart source not configured"})
		return
	}
	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))

	points, err := s.deps.Charts.FetchChart(c.Request.Context(), symbol)
	if err != nil {
		_ = c.Error(err)
		c.JSON(chartStatus(err), gin.H{"symbol": symbol, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol": symbol,
		"points": points,
		"count":  len(points),
	})
}

func chartStatus(err error) int {
	if errors.Is(err, binance.ErrEmptySymbol) {
		return http.StatusBadRequest
	}
	var apiErr *common.APIError
	if errors.As(err, &apiErr) && apiErr.Code == codeInvalidSymbol {
		return http.StatusNotFound
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}

func (s *Server) refresh(c *gin.Context) {
	snap, err := s.deps.Refresher.Refresh(c.Request.Context())
	status := http.StatusOK
	if err != nil {
		_ = c.Error(err)
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{
		"count": len(snap.Assets),
		"state": snapshotState(snap),
	})
}

func (s *Server) health(c *gin.Context) {
	snap := s.deps.Store.Load()
	body := gin.H{
		"status":   "ok",
		"assets":   len(snap.Assets),
		"exchange": "unchecked",
	}

	if s.deps.Exchange != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()
		if err := s.deps.Exchange.Ping(ctx); err != nil {
			body["status"] = "degraded"
			body["exchange"] = "unreachable"
			body["error"] = err.Error()
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
		body["exchange"] = "reachable"
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) metricHistory(c *gin.Context) {
	items := s.metricStore.snapshot(historyFilter{
		Component: c.Query("component"),
		Name:      c.Query("name"),
		Limit:     queryLimit(c),
	})
	payload := make([]gin.H, 0, len(items))
	for _, m := range items {
		payload = append(payload, gin.H{
			"timestamp": m.Timestamp.Format(time.RFC3339Nano),
			"component": m.Component,
			"name":      m.Name,
			"value":     m.Value,
			"type":      m.Type,
			"fields":    m.Fields,
		})
	}
	c.JSON(http.StatusOK, gin.H{"metrics": payload})
}

func (s *Server) logHistory(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"logs": s.logStore.snapshot(historyFilter{
		Component: c.Query("component"),
		Level:     parseLevel(c.Query("level")),
		Limit:     queryLimit(c),
	})})
}

func (s *Server) resourceHistory(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"resources": s.resourceSampler.snapshot(queryLimit(c))})
}

func queryLimit(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// snapshotState describes the freshness of the served collection. The error
// flag never hides the assets of the last successful fetch.
func snapshotState(snap *store.Snapshot) gin.H {
	state := gin.H{
		"fetched_at": nil,
		"stale":      snap.Stale(),
		"error":      nil,
	}
	if !snap.FetchedAt.IsZero() {
		state["fetched_at"] = snap.FetchedAt.UTC().Format(time.RFC3339)
	}
	if snap.Err != nil {
		state["error"] = snap.Err.Error()
	}
	return state
}

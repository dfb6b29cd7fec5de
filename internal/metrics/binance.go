package metrics

import (
	"net/http"
	"strconv"
	"strings"

	"cryptotracker/logger"
)

const binanceComponent = "binance_reader"

var usedWeightHeaders = []struct {
	key    string
	window string
}{
	{"X-MBX-USED-WEIGHT-1M", "1m"},
	{"X-MBX-USED-WEIGHT", "1m"},
	{"X-MBX-USED-WEIGHT-1S", "1s"},
}

// ReportUsedWeight reads the Binance used-weight headers of a response and
// records the first numeric value found. It returns the weight and whether
// one was recorded.
func ReportUsedWeight(log *logger.Log, header http.Header, endpoint string) (float64, bool) {
	if header == nil {
		return 0, false
	}
	if log == nil {
		log = logger.GetLogger()
	}

	for _, h := range usedWeightHeaders {
		value := header.Get(h.key)
		if value == "" {
			continue
		}

		used, err := strconv.ParseFloat(value, 64)
		if err != nil {
			log.WithComponent(binanceComponent).WithFields(logger.Fields{
				"header": h.key,
				"value":  value,
			}).WithError(err).Debug("failed to parse used weight header")
			continue
		}

		setUsedWeight(h.window, used)
		EmitMetric(log, binanceComponent, "used_weight", used, "gauge", logger.Fields{
			"exchange": "binance",
			"endpoint": endpoint,
			"window":   h.window,
		})
		return used, true
	}
	return 0, false
}

// Binance API error codes that signal throttling.
const (
	codeTooManyRequests = -1003
	codeTooManyOrders   = -1015
)

// detectLimit classifies an exchange response as a rate limit or an IP ban
// from its HTTP status, API error code and message.
func detectLimit(status int, code int64, msg string) (rateLimit bool, ipBan bool) {
	lower := strings.ToLower(msg)
	ipBan = status == http.StatusTeapot || (strings.Contains(lower, "ip") && strings.Contains(lower, "ban"))
	rateLimit = !ipBan && (status == http.StatusTooManyRequests ||
		code == codeTooManyRequests || code == codeTooManyOrders ||
		strings.Contains(lower, "too many requests") || strings.Contains(lower, "rate limit"))
	return
}

// ReportLimit records rate limit and IP ban responses. Other responses are
// ignored. It reports whether the response was a limit of either kind.
func ReportLimit(log *logger.Log, endpoint string, status int, code int64, msg string) bool {
	rateLimit, ipBan := detectLimit(status, code, msg)
	if !rateLimit && !ipBan {
		return false
	}
	if log == nil {
		log = logger.GetLogger()
	}

	kind := "rate_limit_exceeded"
	if ipBan {
		kind = "ip_ban"
	}
	incRateLimitEvent(kind)

	fields := logger.Fields{
		"exchange": "binance",
		"endpoint": endpoint,
		"status":   strconv.Itoa(status),
	}
	EmitMetric(log, binanceComponent, kind, int64(1), "counter", fields)

	entry := log.WithComponent(binanceComponent).WithFields(fields).WithField("code", code)
	if ipBan {
		entry.Error("ip banned")
	} else {
		entry.Warn("rate limit exceeded")
	}
	return true
}

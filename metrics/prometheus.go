package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// xVault Metrics Collector
// Provides metrics for monitoring vault accounting and the API layer

var (
	// Singleton collector
	collector     *Collector
	collectorOnce sync.Once
)

// Collector holds all xVault metrics
type Collector struct {
	// Vault state metrics
	VaultTotalAssets   *prometheus.GaugeVec
	VaultTotalShares   *prometheus.GaugeVec
	VaultSharePrice    *prometheus.GaugeVec
	VaultEpoch         *prometheus.GaugeVec
	VaultPendingShares *prometheus.GaugeVec

	// Deposit metrics
	DepositsTotal  *prometheus.CounterVec
	DepositVolume  *prometheus.CounterVec
	SharesMinted   *prometheus.CounterVec

	// Withdrawal metrics
	WithdrawalsRequested *prometheus.CounterVec
	WithdrawalsProcessed *prometheus.CounterVec
	WithdrawalVolume     *prometheus.CounterVec
	SharesBurned         *prometheus.CounterVec

	// Exposure metrics
	FillsTotal        *prometheus.CounterVec
	NotionalExposed   *prometheus.CounterVec
	PremiumAccrued    *prometheus.CounterVec
	CapRejections     *prometheus.CounterVec
	EpochUtilization  *prometheus.GaugeVec
	AvgPremiumBps     *prometheus.GaugeVec

	// Epoch metrics
	EpochsAdvanced *prometheus.CounterVec
	EpochPremium   *prometheus.CounterVec
	EpochDuration  *prometheus.HistogramVec

	// API metrics
	APIRequestsTotal  *prometheus.CounterVec
	APIRequestLatency *prometheus.HistogramVec
	APIErrorsTotal    *prometheus.CounterVec
	RateLimitHits     *prometheus.CounterVec

	// System metrics
	BlockHeight prometheus.Gauge
	BlockTime   *prometheus.HistogramVec
	VaultCount  prometheus.Gauge
}

// GetCollector returns the singleton metrics collector
func GetCollector() *Collector {
	collectorOnce.Do(func() {
		collector = newCollector()
	})
	return collector
}

// newCollector creates a new metrics collector
func newCollector() *Collector {
	c := &Collector{}

	// Vault state metrics
	c.VaultTotalAssets = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "xvault",
			Subsystem: "vault",
			Name:      "total_assets",
			Help:      "Total underlying units pooled in the vault",
		},
		[]string{"asset_id"},
	)

	c.VaultTotalShares = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "xvault",
			Subsystem: "vault",
			Name:      "total_shares",
			Help:      "Total vault shares outstanding",
		},
		[]string{"asset_id"},
	)

	c.VaultSharePrice = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "xvault",
			Subsystem: "vault",
			Name:      "share_price",
			Help:      "Current share price (assets per share)",
		},
		[]string{"asset_id"},
	)

	c.VaultEpoch = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "xvault",
			Subsystem: "vault",
			Name:      "epoch",
			Help:      "Current vault epoch",
		},
		[]string{"asset_id"},
	)

	c.VaultPendingShares = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "xvault",
			Subsystem: "vault",
			Name:      "pending_withdrawal_shares",
			Help:      "Shares queued for withdrawal settlement",
		},
		[]string{"asset_id"},
	)

	// Deposit metrics
	c.DepositsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xvault",
			Subsystem: "deposits",
			Name:      "total",
			Help:      "Total number of deposits",
		},
		[]string{"asset_id"},
	)

	c.DepositVolume = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xvault",
			Subsystem: "deposits",
			Name:      "volume",
			Help:      "Total deposit volume in underlying units",
		},
		[]string{"asset_id"},
	)

	c.SharesMinted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xvault",
			Subsystem: "deposits",
			Name:      "shares_minted",
			Help:      "Total shares minted for deposits",
		},
		[]string{"asset_id"},
	)

	// Withdrawal metrics
	c.WithdrawalsRequested = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xvault",
			Subsystem: "withdrawals",
			Name:      "requested_total",
			Help:      "Total number of withdrawal requests queued",
		},
		[]string{"asset_id"},
	)

	c.WithdrawalsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xvault",
			Subsystem: "withdrawals",
			Name:      "processed_total",
			Help:      "Total number of withdrawal requests settled",
		},
		[]string{"asset_id"},
	)

	c.WithdrawalVolume = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xvault",
			Subsystem: "withdrawals",
			Name:      "volume",
			Help:      "Total paid out in underlying units",
		},
		[]string{"asset_id"},
	)

	c.SharesBurned = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xvault",
			Subsystem: "withdrawals",
			Name:      "shares_burned",
			Help:      "Total shares burned at settlement",
		},
		[]string{"asset_id"},
	)

	// Exposure metrics
	c.FillsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xvault",
			Subsystem: "exposure",
			Name:      "fills_total",
			Help:      "Total number of strategy fills recorded",
		},
		[]string{"asset_id"},
	)

	c.NotionalExposed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xvault",
			Subsystem: "exposure",
			Name:      "notional",
			Help:      "Total notional exposure booked",
		},
		[]string{"asset_id"},
	)

	c.PremiumAccrued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xvault",
			Subsystem: "exposure",
			Name:      "premium",
			Help:      "Total premium accrued from fills",
		},
		[]string{"asset_id"},
	)

	c.CapRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xvault",
			Subsystem: "exposure",
			Name:      "cap_rejections_total",
			Help:      "Fills rejected for exceeding the epoch utilization cap",
		},
		[]string{"asset_id"},
	)

	c.EpochUtilization = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "xvault",
			Subsystem: "exposure",
			Name:      "epoch_utilization",
			Help:      "Fraction of the epoch cap currently consumed (0-1)",
		},
		[]string{"asset_id"},
	)

	c.AvgPremiumBps = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "xvault",
			Subsystem: "exposure",
			Name:      "avg_premium_bps",
			Help:      "Running average premium in basis points for the epoch",
		},
		[]string{"asset_id"},
	)

	// Epoch metrics
	c.EpochsAdvanced = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xvault",
			Subsystem: "epochs",
			Name:      "advanced_total",
			Help:      "Total number of epoch advances",
		},
		[]string{"asset_id"},
	)

	c.EpochPremium = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xvault",
			Subsystem: "epochs",
			Name:      "premium_folded",
			Help:      "Total realized premium folded into vaults at epoch close",
		},
		[]string{"asset_id"},
	)

	c.EpochDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "xvault",
			Subsystem: "epochs",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of closed epochs",
			Buckets:   []float64{60, 300, 900, 3600, 14400, 43200, 86400, 604800},
		},
		[]string{"asset_id"},
	)

	// API metrics
	c.APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xvault",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of API requests",
		},
		[]string{"method", "path", "status"},
	)

	c.APIRequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "xvault",
			Subsystem: "api",
			Name:      "request_latency_ms",
			Help:      "API request latency in milliseconds",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"method", "path"},
	)

	c.APIErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xvault",
			Subsystem: "api",
			Name:      "errors_total",
			Help:      "Total number of API errors",
		},
		[]string{"path", "code"},
	)

	c.RateLimitHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xvault",
			Subsystem: "api",
			Name:      "rate_limit_hits_total",
			Help:      "Requests rejected by the rate limiter",
		},
		[]string{"limit_type"},
	)

	// System metrics
	c.BlockHeight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "xvault",
			Subsystem: "system",
			Name:      "block_height",
			Help:      "Current block height",
		},
	)

	c.BlockTime = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "xvault",
			Subsystem: "system",
			Name:      "block_time_seconds",
			Help:      "Block time in seconds",
			Buckets:   []float64{0.5, 1, 2, 3, 5, 10},
		},
		[]string{"chain_id"},
	)

	c.VaultCount = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "xvault",
			Subsystem: "system",
			Name:      "vault_count",
			Help:      "Number of registered vaults",
		},
	)

	c.register()
	return c
}

// register registers all metrics with Prometheus
func (c *Collector) register() {
	// Vault state metrics
	prometheus.MustRegister(c.VaultTotalAssets)
	prometheus.MustRegister(c.VaultTotalShares)
	prometheus.MustRegister(c.VaultSharePrice)
	prometheus.MustRegister(c.VaultEpoch)
	prometheus.MustRegister(c.VaultPendingShares)

	// Deposit metrics
	prometheus.MustRegister(c.DepositsTotal)
	prometheus.MustRegister(c.DepositVolume)
	prometheus.MustRegister(c.SharesMinted)

	// Withdrawal metrics
	prometheus.MustRegister(c.WithdrawalsRequested)
	prometheus.MustRegister(c.WithdrawalsProcessed)
	prometheus.MustRegister(c.WithdrawalVolume)
	prometheus.MustRegister(c.SharesBurned)

	// Exposure metrics
	prometheus.MustRegister(c.FillsTotal)
	prometheus.MustRegister(c.NotionalExposed)
	prometheus.MustRegister(c.PremiumAccrued)
	prometheus.MustRegister(c.CapRejections)
	prometheus.MustRegister(c.EpochUtilization)
	prometheus.MustRegister(c.AvgPremiumBps)

	// Epoch metrics
	prometheus.MustRegister(c.EpochsAdvanced)
	prometheus.MustRegister(c.EpochPremium)
	prometheus.MustRegister(c.EpochDuration)

	// API metrics
	prometheus.MustRegister(c.APIRequestsTotal)
	prometheus.MustRegister(c.APIRequestLatency)
	prometheus.MustRegister(c.APIErrorsTotal)
	prometheus.MustRegister(c.RateLimitHits)

	// System metrics
	prometheus.MustRegister(c.BlockHeight)
	prometheus.MustRegister(c.BlockTime)
	prometheus.MustRegister(c.VaultCount)
}

// ============ Recording Helpers ============

// RecordVaultState updates per-vault state gauges
func (c *Collector) RecordVaultState(assetID string, totalAssets, totalShares, pendingShares uint64, sharePrice float64, epoch uint64) {
	c.VaultTotalAssets.WithLabelValues(assetID).Set(float64(totalAssets))
	c.VaultTotalShares.WithLabelValues(assetID).Set(float64(totalShares))
	c.VaultSharePrice.WithLabelValues(assetID).Set(sharePrice)
	c.VaultEpoch.WithLabelValues(assetID).Set(float64(epoch))
	c.VaultPendingShares.WithLabelValues(assetID).Set(float64(pendingShares))
}

// RecordDeposit records a deposit event
func (c *Collector) RecordDeposit(assetID string, amount, sharesMinted uint64) {
	c.DepositsTotal.WithLabelValues(assetID).Inc()
	c.DepositVolume.WithLabelValues(assetID).Add(float64(amount))
	c.SharesMinted.WithLabelValues(assetID).Add(float64(sharesMinted))
}

// RecordWithdrawalRequested records a queued withdrawal
func (c *Collector) RecordWithdrawalRequested(assetID string) {
	c.WithdrawalsRequested.WithLabelValues(assetID).Inc()
}

// RecordWithdrawalProcessed records a settled withdrawal
func (c *Collector) RecordWithdrawalProcessed(assetID string, amountPaid, sharesBurned uint64) {
	c.WithdrawalsProcessed.WithLabelValues(assetID).Inc()
	c.WithdrawalVolume.WithLabelValues(assetID).Add(float64(amountPaid))
	c.SharesBurned.WithLabelValues(assetID).Add(float64(sharesBurned))
}

// RecordFill records a strategy fill booked against the epoch cap
func (c *Collector) RecordFill(assetID string, notional, premium uint64, utilization float64, avgPremiumBps uint32) {
	c.FillsTotal.WithLabelValues(assetID).Inc()
	c.NotionalExposed.WithLabelValues(assetID).Add(float64(notional))
	c.PremiumAccrued.WithLabelValues(assetID).Add(float64(premium))
	c.EpochUtilization.WithLabelValues(assetID).Set(utilization)
	c.AvgPremiumBps.WithLabelValues(assetID).Set(float64(avgPremiumBps))
}

// RecordCapRejection records a fill rejected by the utilization cap
func (c *Collector) RecordCapRejection(assetID string) {
	c.CapRejections.WithLabelValues(assetID).Inc()
}

// RecordEpochAdvance records an epoch close
func (c *Collector) RecordEpochAdvance(assetID string, premiumFolded uint64, durationSeconds float64) {
	c.EpochsAdvanced.WithLabelValues(assetID).Inc()
	c.EpochPremium.WithLabelValues(assetID).Add(float64(premiumFolded))
	if durationSeconds > 0 {
		c.EpochDuration.WithLabelValues(assetID).Observe(durationSeconds)
	}
	c.EpochUtilization.WithLabelValues(assetID).Set(0)
	c.AvgPremiumBps.WithLabelValues(assetID).Set(0)
}

// RecordAPIRequest records an API request
func (c *Collector) RecordAPIRequest(method, path, status string, latencyMs float64) {
	c.APIRequestsTotal.WithLabelValues(method, path, status).Inc()
	c.APIRequestLatency.WithLabelValues(method, path).Observe(latencyMs)
}

// RecordAPIError records an API error
func (c *Collector) RecordAPIError(path, code string) {
	c.APIErrorsTotal.WithLabelValues(path, code).Inc()
}

// RecordRateLimitHit records a request rejected by the rate limiter
func (c *Collector) RecordRateLimitHit(limitType string) {
	c.RateLimitHits.WithLabelValues(limitType).Inc()
}

// UpdateSystemMetrics updates system-level metrics
func (c *Collector) UpdateSystemMetrics(blockHeight int64, vaultCount int) {
	c.BlockHeight.Set(float64(blockHeight))
	c.VaultCount.Set(float64(vaultCount))
}

// ============ HTTP Handler ============

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for measuring latency
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ElapsedMs returns the elapsed time in milliseconds
func (t *Timer) ElapsedMs() float64 {
	return float64(time.Since(t.start).Microseconds()) / 1000.0
}

package metrics

import (
	"strings"

	"mercator-hq/quaestor/pkg/ledger"

	"github.com/prometheus/client_golang/prometheus"
)

// BudgetMetrics exposes the current budget position as gauges, updated
// from each BudgetStatus snapshot the gateway fetches.
//
// Metrics:
//   - quaestor_budget_daily_spent_eur / _soft_limit_eur / _hard_limit_eur
//   - quaestor_budget_daily_percent
//   - quaestor_budget_monthly_spent_eur / _limit_eur
//   - quaestor_budget_monthly_percent
//   - quaestor_budget_days_until_reset
//   - quaestor_budget_alerts_total: threshold alerts by period
type BudgetMetrics struct {
	dailySpent     prometheus.Gauge
	dailySoftLimit prometheus.Gauge
	dailyHardLimit prometheus.Gauge
	dailyPercent   prometheus.Gauge

	monthlySpent   prometheus.Gauge
	monthlyLimit   prometheus.Gauge
	monthlyPercent prometheus.Gauge

	daysUntilReset prometheus.Gauge

	alertsTotal *prometheus.CounterVec
}

// NewBudgetMetrics creates and registers budget metrics with the
// provided registry.
func NewBudgetMetrics(namespace string, registry *prometheus.Registry) *BudgetMetrics {
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		})
	}

	bm := &BudgetMetrics{
		dailySpent:     gauge("budget_daily_spent_eur", "Spending so far in the current UTC day, in EUR"),
		dailySoftLimit: gauge("budget_daily_soft_limit_eur", "Configured daily soft limit in EUR"),
		dailyHardLimit: gauge("budget_daily_hard_limit_eur", "Configured daily hard limit in EUR"),
		dailyPercent:   gauge("budget_daily_percent", "Daily spending as a percentage of the soft limit"),

		monthlySpent:   gauge("budget_monthly_spent_eur", "Spending so far in the current UTC month, in EUR"),
		monthlyLimit:   gauge("budget_monthly_limit_eur", "Effective monthly limit in EUR, rollover included"),
		monthlyPercent: gauge("budget_monthly_percent", "Monthly spending as a percentage of the effective limit"),

		daysUntilReset: gauge("budget_days_until_reset", "Days until the monthly budget resets"),

		alertsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "budget_alerts_total",
				Help:      "Total budget threshold alerts raised, by period",
			},
			[]string{"period"},
		),
	}

	registry.MustRegister(
		bm.dailySpent,
		bm.dailySoftLimit,
		bm.dailyHardLimit,
		bm.dailyPercent,
		bm.monthlySpent,
		bm.monthlyLimit,
		bm.monthlyPercent,
		bm.daysUntilReset,
		bm.alertsTotal,
	)

	return bm
}

// RecordStatus updates all gauges from a budget status snapshot.
func (bm *BudgetMetrics) RecordStatus(status *ledger.BudgetStatus) {
	bm.dailySpent.Set(status.DailySpent.EUR())
	bm.dailySoftLimit.Set(status.DailySoftLimit.EUR())
	bm.dailyHardLimit.Set(status.DailyHardLimit.EUR())
	bm.dailyPercent.Set(status.DailyPercent)

	bm.monthlySpent.Set(status.MonthlySpent.EUR())
	bm.monthlyLimit.Set(status.MonthlyLimit.EUR())
	bm.monthlyPercent.Set(status.MonthlyPercent)

	bm.daysUntilReset.Set(float64(status.DaysUntilReset))
}

// RecordAlerts counts raised threshold alerts. Alert texts start with
// the period they concern.
func (bm *BudgetMetrics) RecordAlerts(alerts []string) {
	for _, alert := range alerts {
		period := "monthly"
		if strings.HasPrefix(alert, "daily") {
			period = "daily"
		}
		bm.alertsTotal.WithLabelValues(period).Inc()
	}
}

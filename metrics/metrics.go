package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SalesRecordedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "affiliate_sales_recorded_total",
		Help: "Sales recorded through referral codes",
	})

	SalesAmountTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "affiliate_sales_amount_naira_total",
		Help: "Sum of recorded sale amounts in naira",
	})

	SaleErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "affiliate_sale_errors_total",
		Help: "RecordSale failures by kind",
	}, []string{"kind"})

	QualificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "affiliate_payment_qualifications_total",
		Help: "Payment qualifications emitted, by level and source (sale or sweep)",
	}, []string{"level", "source"})

	NotificationsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "affiliate_notifications_created_total",
		Help: "Notifications appended to the store, by type",
	}, []string{"type"})

	PushesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "affiliate_notification_pushes_total",
		Help: "Live pushes attempted, by result (delivered, offline, dropped)",
	}, []string{"result"})

	ConnectedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "affiliate_ws_connected_clients",
		Help: "WebSocket connections currently in the Ready state",
	})
)

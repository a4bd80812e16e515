package triage

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the triage subsystem.
type Metrics struct {
	UploadsTotal       *prometheus.CounterVec
	UploadRows         *prometheus.CounterVec
	PatientsAdmitted   *prometheus.CounterVec
	RiskOverrides      prometheus.Counter
	AssessmentsTotal   *prometheus.CounterVec
	RiskScore          prometheus.Histogram
	NotificationsTotal *prometheus.CounterVec
	BoardSize          prometheus.Gauge
}

// NewMetrics registers and returns triage metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		UploadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "triagedesk_uploads_total",
			Help: "Total file uploads by format and result.",
		}, []string{"format", "result"}),
		UploadRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "triagedesk_upload_rows_total",
			Help: "Rows read from uploads by outcome.",
		}, []string{"outcome"}),
		PatientsAdmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "triagedesk_patients_admitted_total",
			Help: "Patients added to the board by final risk level.",
		}, []string{"risk_level"}),
		RiskOverrides: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "triagedesk_risk_overrides_total",
			Help: "Uploaded rows whose Risk_Level column replaced a different computed tier.",
		}),
		AssessmentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "triagedesk_assessments_total",
			Help: "Stateless risk assessments by computed level.",
		}, []string{"risk_level"}),
		RiskScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "triagedesk_risk_score",
			Help:    "Distribution of computed risk scores.",
			Buckets: prometheus.LinearBuckets(0, 10, 11), // 0 .. 100
		}),
		NotificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "triagedesk_notifications_total",
			Help: "High-risk notifications by notifier and status.",
		}, []string{"notifier", "status"}),
		BoardSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "triagedesk_board_patients",
			Help: "Patients currently on the board.",
		}),
	}

	reg.MustRegister(
		m.UploadsTotal,
		m.UploadRows,
		m.PatientsAdmitted,
		m.RiskOverrides,
		m.AssessmentsTotal,
		m.RiskScore,
		m.NotificationsTotal,
		m.BoardSize,
	)

	return m
}

func (m *Metrics) observeUpload(format, result string, up *Upload) {
	if m == nil {
		return
	}
	m.UploadsTotal.WithLabelValues(format, result).Inc()
	if up == nil {
		return
	}
	m.UploadRows.WithLabelValues("admitted").Add(float64(len(up.Patients)))
	m.UploadRows.WithLabelValues("skipped").Add(float64(up.RowsSkipped))
	for i := range up.Patients {
		p := &up.Patients[i]
		m.PatientsAdmitted.WithLabelValues(string(p.RiskLevel)).Inc()
		m.RiskScore.Observe(float64(p.RiskScore))
		if p.Overridden {
			m.RiskOverrides.Inc()
		}
	}
}

func (m *Metrics) observeAssessment(a Assessment) {
	if m == nil {
		return
	}
	m.AssessmentsTotal.WithLabelValues(string(a.RiskLevel)).Inc()
	m.RiskScore.Observe(float64(a.RiskScore))
}

func (m *Metrics) observeNotification(notifier string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.NotificationsTotal.WithLabelValues(notifier, status).Inc()
}

func (m *Metrics) setBoardSize(n int) {
	if m == nil {
		return
	}
	m.BoardSize.Set(float64(n))
}

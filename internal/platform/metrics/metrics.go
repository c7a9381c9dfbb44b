package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the application-level Prometheus collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	PrincipalsRegistered *prometheus.CounterVec
	Logins               *prometheus.CounterVec
	Logouts              prometheus.Counter
	AuthFailures         *prometheus.CounterVec
	LoginLockouts        *prometheus.CounterVec
	RequestTransitions   *prometheus.CounterVec
	CertificateBytes     prometheus.Counter
	DocumentsAttached    prometheus.Counter
	ServiceTypesCreated  prometheus.Counter
	ProfilesUpserted     prometheus.Counter
}

// New registers the collectors with the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the collectors with reg.
func NewWith(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		PrincipalsRegistered: f.NewCounterVec(prometheus.CounterOpts{
			Name: "smartgn_principals_registered_total",
			Help: "Principals registered, labeled by kind",
		}, []string{"kind"}),
		Logins: f.NewCounterVec(prometheus.CounterOpts{
			Name: "smartgn_logins_total",
			Help: "Successful logins, labeled by kind",
		}, []string{"kind"}),
		Logouts: f.NewCounter(prometheus.CounterOpts{
			Name: "smartgn_logouts_total",
			Help: "Tokens revoked through logout",
		}),
		AuthFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "smartgn_auth_failures_total",
			Help: "Authentication failures, labeled by reason",
		}, []string{"reason"}),
		LoginLockouts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "smartgn_login_lockouts_total",
			Help: "Logins locked after repeated failures, labeled by kind",
		}, []string{"kind"}),
		RequestTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "smartgn_request_transitions_total",
			Help: "Request lifecycle mutations, labeled by resulting status",
		}, []string{"status"}),
		CertificateBytes: f.NewCounter(prometheus.CounterOpts{
			Name: "smartgn_certificate_bytes_total",
			Help: "Bytes of certificate files stored",
		}),
		DocumentsAttached: f.NewCounter(prometheus.CounterOpts{
			Name: "smartgn_documents_attached_total",
			Help: "Supporting documents stored",
		}),
		ServiceTypesCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "smartgn_service_types_created_total",
			Help: "Service types created",
		}),
		ProfilesUpserted: f.NewCounter(prometheus.CounterOpts{
			Name: "smartgn_profiles_upserted_total",
			Help: "Citizen profile writes",
		}),
	}
}

func (m *Metrics) IncPrincipalRegistered(kind string) {
	if m != nil {
		m.PrincipalsRegistered.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) IncLogin(kind string) {
	if m != nil {
		m.Logins.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) IncLogout() {
	if m != nil {
		m.Logouts.Inc()
	}
}

func (m *Metrics) IncAuthFailure(reason string) {
	if m != nil {
		m.AuthFailures.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) IncLoginLockout(kind string) {
	if m != nil {
		m.LoginLockouts.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) IncRequestTransition(status string) {
	if m != nil {
		m.RequestTransitions.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) AddCertificateBytes(n int) {
	if m != nil && n > 0 {
		m.CertificateBytes.Add(float64(n))
	}
}

func (m *Metrics) IncDocumentAttached() {
	if m != nil {
		m.DocumentsAttached.Inc()
	}
}

func (m *Metrics) IncServiceTypeCreated() {
	if m != nil {
		m.ServiceTypesCreated.Inc()
	}
}

func (m *Metrics) IncProfileUpserted() {
	if m != nil {
		m.ProfilesUpserted.Inc()
	}
}

package commands

import (
	"fmt"
	"os"

	"go.opentelemetry.io/otel/trace"

	"github.com/moolen/medidesk/internal/audit"
	"github.com/moolen/medidesk/internal/config"
	"github.com/moolen/medidesk/internal/delegation"
	"github.com/moolen/medidesk/internal/metrics"
	"github.com/moolen/medidesk/internal/session"
)

// runtime is what every command needs to create sessions.
type runtime struct {
	cfg        *config.Config
	client     *delegation.Client
	factory    *session.Factory
	audit      *audit.Logger
	credential string
}

func (r *runtime) Close() {
	if r.audit != nil {
		_ = r.audit.Close()
	}
}

// newRuntime builds the classifier and session factory from cfg. m and
// tracer may be nil.
func newRuntime(cfg *config.Config, m *metrics.Metrics, tracer trace.Tracer) (*runtime, error) {
	connect, err := connector(cfg)
	if err != nil {
		return nil, err
	}

	var auditLogger *audit.Logger
	if cfg.Session.AuditLog != "" {
		auditLogger, err = audit.NewLogger(cfg.Session.AuditLog)
		if err != nil {
			return nil, fmt.Errorf("open audit log: %w", err)
		}
	}

	client := delegation.NewClient(delegation.Options{
		Model:   cfg.EffectiveModel(),
		Connect: connect,
		Tracer:  tracer,
		Metrics: m,
	})
	factory := &session.Factory{
		Classifier: client,
		Backend:    cfg.Backend.Provider,
		Model:      client.Model(),
		Audit:      auditLogger,
		Metrics:    m,
	}
	factory.SetResponseDelay(cfg.Session.ResponseDelay)

	return &runtime{
		cfg:        cfg,
		client:     client,
		factory:    factory,
		audit:      auditLogger,
		credential: cfg.APIKey(os.Getenv),
	}, nil
}

func connector(cfg *config.Config) (delegation.ConnectFunc, error) {
	switch cfg.Backend.Provider {
	case config.ProviderGemini:
		return delegation.GeminiConnector(), nil
	case config.ProviderAnthropic:
		return delegation.AnthropicConnector(), nil
	case config.ProviderScenario:
		if cfg.Backend.ScenarioPath == "" {
			return delegation.ScenarioConnector(delegation.DefaultScenario()), nil
		}
		scenario, err := delegation.LoadScenario(cfg.Backend.ScenarioPath)
		if err != nil {
			return nil, err
		}
		return delegation.ScenarioConnector(scenario), nil
	default:
		return nil, config.NewConfigError(fmt.Sprintf("unknown backend provider %q", cfg.Backend.Provider))
	}
}

// missingKeyError explains how to supply a key for cfg's provider.
func missingKeyError(cfg *config.Config) error {
	env := config.EnvGeminiAPIKey
	if cfg.Backend.Provider == config.ProviderAnthropic {
		env = config.EnvAnthropicAPIKey
	}
	return fmt.Errorf("no API key for backend %s: set backend.api_key or %s", cfg.Backend.Provider, env)
}

package delegation

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"google.golang.org/genai"
	"gopkg.in/yaml.v3"
)

// Scenario is a scripted coordinator loaded from YAML. It lets the command
// center run without network access.
//
//	name: triage-demo
//	steps:
//	  - match: "lab"
//	    call: call-medical-records
//	  - match: "offline"
//	    error: "dial tcp: connection refused"
//	default:
//	  call: call-patient-management
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description,omitempty"`
	Steps       []ScenarioStep `yaml:"steps"`
	// Default answers queries no step matches. Without it they fail.
	Default *ScenarioStep `yaml:"default,omitempty"`
}

// ScenarioStep is one scripted reply. Exactly one of Call, Text, Error or
// Empty must be set.
type ScenarioStep struct {
	// Match is a case-insensitive substring of the query. Empty matches all.
	Match string `yaml:"match,omitempty"`
	// Call is the function the coordinator calls.
	Call string `yaml:"call,omitempty"`
	// Args default to the query under ParamUserRequest.
	Args map[string]any `yaml:"args,omitempty"`
	// Text makes the coordinator answer in prose instead of calling.
	Text string `yaml:"text,omitempty"`
	// Error fails the request as a transport error would.
	Error string `yaml:"error,omitempty"`
	// Empty returns a response with no candidates.
	Empty   bool `yaml:"empty,omitempty"`
	DelayMs int  `yaml:"delay_ms,omitempty"`
}

// LoadScenario reads and validates a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[1:])
	}

	// #nosec G304 -- scenario path is operator configuration
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file %s: %w", path, err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("failed to parse scenario YAML: %w", err)
	}
	if err := scenario.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// Validate checks that the scenario is usable.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return errors.New("scenario name is required")
	}
	if len(s.Steps) == 0 && s.Default == nil {
		return errors.New("scenario must have at least one step or a default")
	}
	for i := range s.Steps {
		if err := s.Steps[i].validate(); err != nil {
			return fmt.Errorf("step[%d]: %w", i, err)
		}
	}
	if s.Default != nil {
		if err := s.Default.validate(); err != nil {
			return fmt.Errorf("default: %w", err)
		}
	}
	return nil
}

func (st *ScenarioStep) validate() error {
	set := 0
	for _, ok := range []bool{st.Call != "", st.Text != "", st.Error != "", st.Empty} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return errors.New("exactly one of call, text, error or empty is required")
	}
	if st.DelayMs < 0 {
		return errors.New("delay_ms must not be negative")
	}
	return nil
}

// Step returns the step answering query, or nil.
func (s *Scenario) Step(query string) *ScenarioStep {
	q := strings.ToLower(query)
	for i := range s.Steps {
		if strings.Contains(q, strings.ToLower(s.Steps[i].Match)) {
			return &s.Steps[i]
		}
	}
	return s.Default
}

// ScenarioGenerator replays a Scenario. It is stateless between requests.
type ScenarioGenerator struct {
	scenario *Scenario
}

// NewScenarioGenerator wraps a validated scenario.
func NewScenarioGenerator(scenario *Scenario) *ScenarioGenerator {
	return &ScenarioGenerator{scenario: scenario}
}

// ScenarioConnector returns a ConnectFunc that ignores the credential.
func ScenarioConnector(scenario *Scenario) ConnectFunc {
	return func(context.Context, string) (ContentGenerator, error) {
		return NewScenarioGenerator(scenario), nil
	}
}

// GenerateContent implements ContentGenerator.
func (g *ScenarioGenerator) GenerateContent(ctx context.Context, _ string, contents []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	query := lastUserText(contents)
	step := g.scenario.Step(query)
	if step == nil {
		return nil, fmt.Errorf("scenario %q has no step matching %q", g.scenario.Name, query)
	}

	if step.DelayMs > 0 {
		timer := time.NewTimer(time.Duration(step.DelayMs) * time.Millisecond)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	switch {
	case step.Error != "":
		return nil, errors.New(step.Error)
	case step.Empty:
		return &genai.GenerateContentResponse{}, nil
	case step.Text != "":
		return respond(genai.NewPartFromText(step.Text)), nil
	}

	args := step.Args
	if args == nil {
		args = map[string]any{ParamUserRequest: query}
	}
	return respond(&genai.Part{FunctionCall: &genai.FunctionCall{Name: step.Call, Args: args}}), nil
}

func respond(part *genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{part}},
		}},
	}
}

func lastUserText(contents []*genai.Content) string {
	for i := len(contents) - 1; i >= 0; i-- {
		c := contents[i]
		if c == nil || c.Role == genai.RoleModel {
			continue
		}
		var texts []string
		for _, p := range c.Parts {
			if p != nil && p.Text != "" {
				texts = append(texts, p.Text)
			}
		}
		if len(texts) > 0 {
			return strings.Join(texts, "\n")
		}
	}
	return ""
}

//go:embed scenarios/default.yaml
var defaultScenarioYAML []byte

// DefaultScenario returns the built-in keyword triage scenario.
func DefaultScenario() *Scenario {
	s, err := ParseScenario(defaultScenarioYAML)
	if err != nil {
		panic(fmt.Sprintf("built-in scenario is invalid: %v", err))
	}
	return s
}

//go:build e2e

package requests

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/cucumber/godog"
)

// TestContext is the part of the scenario context the request steps need.
type TestContext interface {
	Do(method, path, token string, body any) error
	GetResponseField(field string) (any, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	Token(alias string) string
	ID(alias string) string
	RequestID(alias string) string
	SetRequestID(alias, id string)
}

// RegisterSteps registers the service request lifecycle steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &requestSteps{tc: tc}

	ctx.Step(`^"([^"]*)" files a "([^"]*)" request with "([^"]*)"$`, steps.filesRequest)
	ctx.Step(`^"([^"]*)" (verifies|declines|completes) the request of "([^"]*)"$`, steps.transitions)
	ctx.Step(`^"([^"]*)" views the request of "([^"]*)"$`, steps.viewsRequest)
	ctx.Step(`^"([^"]*)" lists their requests$`, steps.listsOwnRequests)
	ctx.Step(`^"([^"]*)" lists all requests$`, steps.listsAllRequests)
	ctx.Step(`^"([^"]*)" opens the dashboard$`, steps.opensDashboard)
	ctx.Step(`^"([^"]*)" fetches request statistics$`, steps.fetchesStatistics)
	ctx.Step(`^"([^"]*)" lists service types$`, steps.listsServiceTypes)

	ctx.Step(`^the response should list (\d+) items?$`, steps.responseShouldList)
}

type requestSteps struct {
	tc TestContext
}

var actions = map[string]string{
	"verifies":  "verify",
	"declines":  "decline",
	"completes": "complete",
}

func (s *requestSteps) filesRequest(ctx context.Context, citizen, requestType, officer string) error {
	body := map[string]any{
		"gn_id":        s.tc.ID(officer),
		"request_type": requestType,
		"description":  "filed by the e2e suite",
	}
	if err := s.tc.Do(http.MethodPost, "/gn/requests", s.tc.Token(citizen), body); err != nil {
		return err
	}
	if s.tc.GetLastResponseStatus() != http.StatusCreated {
		return nil
	}
	requestID, err := s.tc.GetResponseField("id")
	if err != nil {
		return err
	}
	s.tc.SetRequestID(citizen, fmt.Sprint(requestID))
	return nil
}

func (s *requestSteps) transitions(ctx context.Context, officer, verb, citizen string) error {
	path := fmt.Sprintf("/gn/requests/%s/%s", s.tc.RequestID(citizen), actions[verb])
	return s.tc.Do(http.MethodPut, path, s.tc.Token(officer), map[string]any{})
}

func (s *requestSteps) viewsRequest(ctx context.Context, viewer, citizen string) error {
	return s.tc.Do(http.MethodGet, "/gn/requests/"+s.tc.RequestID(citizen), s.tc.Token(viewer), nil)
}

func (s *requestSteps) listsOwnRequests(ctx context.Context, alias string) error {
	return s.tc.Do(http.MethodGet, "/gn/requests/mine", s.tc.Token(alias), nil)
}

func (s *requestSteps) listsAllRequests(ctx context.Context, alias string) error {
	return s.tc.Do(http.MethodGet, "/gn/requests", s.tc.Token(alias), nil)
}

func (s *requestSteps) opensDashboard(ctx context.Context, alias string) error {
	return s.tc.Do(http.MethodGet, "/gn/dashboard", s.tc.Token(alias), nil)
}

func (s *requestSteps) fetchesStatistics(ctx context.Context, alias string) error {
	return s.tc.Do(http.MethodGet, "/gn/requests/stats/statistics", s.tc.Token(alias), nil)
}

func (s *requestSteps) listsServiceTypes(ctx context.Context, alias string) error {
	return s.tc.Do(http.MethodGet, "/service-types", s.tc.Token(alias), nil)
}

func (s *requestSteps) responseShouldList(ctx context.Context, n int) error {
	var items []json.RawMessage
	if err := json.Unmarshal(s.tc.GetLastResponseBody(), &items); err != nil {
		return fmt.Errorf("response is not a list: %w", err)
	}
	if len(items) != n {
		return fmt.Errorf("expected %d items but got %d", n, len(items))
	}
	return nil
}

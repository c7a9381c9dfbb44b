//go:build e2e

package identity

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cucumber/godog"
)

const password = "e2e-secret-123"

// TestContext is the part of the scenario context the identity steps need.
type TestContext interface {
	Do(method, path, token string, body any) error
	DoWithHeaders(method, path string, body any, headers map[string]string) error
	GetResponseField(field string) (any, error)
	GetLastResponseStatus() int
	GetAdminToken() string
	Email(alias string) string
	Token(alias string) string
	SetToken(alias, token string)
	SetID(alias, id string)
}

// RegisterSteps registers account, login and session steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &identitySteps{tc: tc, kinds: map[string]string{}}

	ctx.Step(`^a citizen "([^"]*)" is registered$`, steps.citizenIsRegistered)
	ctx.Step(`^a village officer "([^"]*)" is registered$`, steps.officerIsRegistered)
	ctx.Step(`^an admin "([^"]*)" is provisioned$`, steps.adminIsProvisioned)

	ctx.Step(`^"([^"]*)" logs in$`, steps.logsIn)
	ctx.Step(`^"([^"]*)" logs in with a wrong password (\d+) times$`, steps.logsInWithWrongPassword)
	ctx.Step(`^"([^"]*)" logs out$`, steps.logsOut)
	ctx.Step(`^"([^"]*)" fetches their account$`, steps.fetchesAccount)
	ctx.Step(`^"([^"]*)" registers again with the same email$`, steps.registersAgain)
}

type identitySteps struct {
	tc TestContext
	// kinds maps an alias to the path segment of its login route.
	kinds map[string]string
}

func (s *identitySteps) citizenIsRegistered(ctx context.Context, alias string) error {
	return s.signup(alias, "user", map[string]any{"nic": "200012345678"})
}

func (s *identitySteps) officerIsRegistered(ctx context.Context, alias string) error {
	return s.signup(alias, "village-officer", map[string]any{"district": "Colombo", "division": "Kollupitiya"})
}

func (s *identitySteps) adminIsProvisioned(ctx context.Context, alias string) error {
	token := s.tc.GetAdminToken()
	if token == "" {
		return godog.ErrSkip
	}
	body := map[string]any{"email": s.tc.Email(alias), "password": password, "full_name": "E2E Admin"}
	if err := s.tc.DoWithHeaders(http.MethodPost, "/admin/officers", body, map[string]string{"X-Admin-Token": token}); err != nil {
		return err
	}
	if err := s.expectStatus(http.StatusCreated); err != nil {
		return err
	}
	if err := s.saveID(alias); err != nil {
		return err
	}
	s.kinds[alias] = "village-officer"
	return s.login(alias, password)
}

func (s *identitySteps) signup(alias, kind string, extra map[string]any) error {
	body := map[string]any{"email": s.tc.Email(alias), "password": password, "full_name": "E2E " + alias}
	for k, v := range extra {
		body[k] = v
	}
	if err := s.tc.Do(http.MethodPost, "/auth/"+kind+"/register", "", body); err != nil {
		return err
	}
	if err := s.expectStatus(http.StatusCreated); err != nil {
		return err
	}
	if err := s.saveID(alias); err != nil {
		return err
	}
	s.kinds[alias] = kind
	return s.login(alias, password)
}

func (s *identitySteps) logsIn(ctx context.Context, alias string) error {
	return s.login(alias, password)
}

func (s *identitySteps) logsInWithWrongPassword(ctx context.Context, alias string, times int) error {
	for range times {
		if err := s.attempt(alias, "not-"+password); err != nil {
			return err
		}
	}
	return nil
}

func (s *identitySteps) logsOut(ctx context.Context, alias string) error {
	return s.tc.Do(http.MethodPost, "/auth/logout", s.tc.Token(alias), nil)
}

func (s *identitySteps) fetchesAccount(ctx context.Context, alias string) error {
	return s.tc.Do(http.MethodGet, "/auth/me", s.tc.Token(alias), nil)
}

func (s *identitySteps) registersAgain(ctx context.Context, alias string) error {
	kind, ok := s.kinds[alias]
	if !ok {
		return fmt.Errorf("unknown actor %q", alias)
	}
	body := map[string]any{
		"email":     s.tc.Email(alias),
		"password":  password,
		"full_name": "Again",
		"district":  "Colombo",
		"division":  "Kollupitiya",
	}
	return s.tc.Do(http.MethodPost, "/auth/"+kind+"/register", "", body)
}

func (s *identitySteps) login(alias, pw string) error {
	if err := s.attempt(alias, pw); err != nil {
		return err
	}
	if s.tc.GetLastResponseStatus() != http.StatusOK {
		return nil
	}
	token, err := s.tc.GetResponseField("access_token")
	if err != nil {
		return err
	}
	s.tc.SetToken(alias, fmt.Sprint(token))
	return nil
}

func (s *identitySteps) attempt(alias, pw string) error {
	kind, ok := s.kinds[alias]
	if !ok {
		return fmt.Errorf("unknown actor %q", alias)
	}
	body := map[string]any{"email": s.tc.Email(alias), "password": pw}
	return s.tc.Do(http.MethodPost, "/auth/"+kind+"/login", "", body)
}

func (s *identitySteps) saveID(alias string) error {
	userID, err := s.tc.GetResponseField("user.id")
	if err != nil {
		return err
	}
	s.tc.SetID(alias, fmt.Sprint(userID))
	return nil
}

func (s *identitySteps) expectStatus(want int) error {
	if got := s.tc.GetLastResponseStatus(); got != want {
		return fmt.Errorf("expected status %d but got %d", want, got)
	}
	return nil
}

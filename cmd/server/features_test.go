package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cucumber/godog"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"breachledger/internal/incident/handler"
	jwttoken "breachledger/internal/jwt_token"
	"breachledger/internal/platform/config"
	id "breachledger/pkg/domain"
)

const featureSigningKey = "feature-signing-key"

// scenario carries state between the steps of one scenario.
type scenario struct {
	app      *app
	bearer   string
	last     *httptest.ResponseRecorder
	incident handler.WriteResponse
	tokens   []string
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		Name: "incidents",
		ScenarioInitializer: func(sc *godog.ScenarioContext) {
			s := &scenario{}
			sc.After(func(ctx context.Context, _ *godog.Scenario, _ error) (context.Context, error) {
				if s.app != nil {
					_ = s.app.Close()
				}
				return ctx, nil
			})
			s.register(sc)
		},
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			Strict:   true,
			TestingT: t,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("feature scenarios failed")
	}
}

func (s *scenario) register(sc *godog.ScenarioContext) {
	sc.Step(`^a registry serving organization "([^"]*)"$`, s.aRegistryServingOrganization)
	sc.Step(`^the controller reports an incident detected (\d+) hours ago described as "([^"]*)"$`, s.reportIncident)
	sc.Step(`^the controller updates the incident description to "([^"]*)"$`, s.updateDescription)
	sc.Step(`^the controller deletes the incident$`, s.deleteIncident)
	sc.Step(`^a member of another organization requests the incident$`, s.outsiderRequestsIncident)
	sc.Step(`^anyone verifies the token of version (\d+)$`, s.verifyVersion)
	sc.Step(`^anyone verifies the token "([^"]*)"$`, s.verifyToken)
	sc.Step(`^the response status should be (\d+)$`, s.responseStatusShouldBe)
	sc.Step(`^the incident internal id should be (\d+)$`, s.internalIDShouldBe)
	sc.Step(`^the version number should be (\d+)$`, s.versionNumberShouldBe)
	sc.Step(`^the proof should name "([^"]*)" at version (\d+)$`, s.proofShouldName)
}

func (s *scenario) aRegistryServingOrganization(name string) error {
	org := id.OrganizationID(uuid.New())
	cfg := &config.Config{
		Server: config.ServerConfig{RequestTimeout: 5 * time.Second},
		Auth:   config.AuthConfig{JWTSigningKey: featureSigningKey},
		Verification: config.VerificationConfig{
			TokenSecret: strings.Repeat("f", 32),
			CacheTTL:    time.Minute,
		},
		RateLimit:     config.RateLimitConfig{Disabled: true},
		Organizations: []config.OrganizationSeed{{ID: org.String(), Name: name}},
	}
	var err error
	s.app, err = newApp(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), prometheus.NewRegistry())
	if err != nil {
		return err
	}
	s.bearer, err = bearerFor(org)
	return err
}

func bearerFor(org id.OrganizationID) (string, error) {
	return jwttoken.NewJWTService(featureSigningKey, "", "").
		GenerateAccessToken(id.UserID(uuid.New()), org, time.Hour)
}

func (s *scenario) do(method, path, body, bearer string) {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	s.last = httptest.NewRecorder()
	s.app.router.ServeHTTP(s.last, req)
}

func (s *scenario) write(method, path, detectedAt, description string) error {
	body := fmt.Sprintf(`{"detected_at":%q,"description":%q,"status":"draft"}`, detectedAt, description)
	s.do(method, path, body, s.bearer)
	if s.last.Code >= 300 {
		return nil
	}
	var resp handler.WriteResponse
	if err := json.Unmarshal(s.last.Body.Bytes(), &resp); err != nil {
		return fmt.Errorf("decode write response: %w", err)
	}
	s.incident = resp
	s.tokens = append(s.tokens, resp.Token)
	return nil
}

func (s *scenario) reportIncident(hours int, description string) error {
	s.tokens = nil
	detected := time.Now().UTC().Add(-time.Duration(hours) * time.Hour).Format(time.RFC3339)
	return s.write(http.MethodPost, "/incidents", detected, description)
}

func (s *scenario) updateDescription(description string) error {
	detected := s.incident.Version.Snapshot.DetectedAt.UTC().Format(time.RFC3339)
	return s.write(http.MethodPut, "/incidents/"+s.incident.Incident.ID, detected, description)
}

func (s *scenario) deleteIncident() error {
	s.do(http.MethodDelete, "/incidents/"+s.incident.Incident.ID, "", s.bearer)
	return nil
}

func (s *scenario) outsiderRequestsIncident() error {
	outsider, err := bearerFor(id.OrganizationID(uuid.New()))
	if err != nil {
		return err
	}
	s.do(http.MethodGet, "/incidents/"+s.incident.Incident.ID, "", outsider)
	return nil
}

func (s *scenario) verifyVersion(version int) error {
	if version < 1 || version > len(s.tokens) {
		return fmt.Errorf("no token recorded for version %d", version)
	}
	return s.verifyToken(s.tokens[version-1])
}

func (s *scenario) verifyToken(token string) error {
	s.do(http.MethodGet, "/verify/"+token, "", "")
	return nil
}

func (s *scenario) responseStatusShouldBe(status int) error {
	if s.last.Code != status {
		return fmt.Errorf("expected status %d, got %d: %s", status, s.last.Code, s.last.Body.String())
	}
	return nil
}

func (s *scenario) internalIDShouldBe(internalID int) error {
	if s.incident.Incident.InternalID != int64(internalID) {
		return fmt.Errorf("expected internal id %d, got %d", internalID, s.incident.Incident.InternalID)
	}
	return nil
}

func (s *scenario) versionNumberShouldBe(version int) error {
	if s.incident.Version.VersionNumber != version {
		return fmt.Errorf("expected version %d, got %d", version, s.incident.Version.VersionNumber)
	}
	return nil
}

func (s *scenario) proofShouldName(name string, version int) error {
	var proof struct {
		OrganizationName string `json:"organization_name"`
		VersionNumber    int    `json:"version_number"`
	}
	if err := json.Unmarshal(s.last.Body.Bytes(), &proof); err != nil {
		return fmt.Errorf("decode proof: %w", err)
	}
	if proof.OrganizationName != name || proof.VersionNumber != version {
		return fmt.Errorf("expected %q at version %d, got %q at version %d",
			name, version, proof.OrganizationName, proof.VersionNumber)
	}
	return nil
}

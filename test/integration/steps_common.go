package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cucumber/godog"
)

// StepsContext holds state shared between step definitions
type StepsContext struct {
	tc           *TestContext
	client       *http.Client
	response     *http.Response
	responseBody []byte
	account      string
	session      string
	licenseToken string
	productIDs   map[string]string // code -> id
	artifactIDs  map[string]string // filename -> id
	licenseID    string
}

// NewStepsContext creates a new steps context
func NewStepsContext(tc *TestContext) *StepsContext {
	return &StepsContext{
		tc: tc,
		// Redirects are assertions in these scenarios, not transport details
		client: &http.Client{
			Timeout: 10 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		productIDs:  make(map[string]string),
		artifactIDs: make(map[string]string),
	}
}

// RegisterSteps registers all step definitions
func (s *StepsContext) RegisterSteps(sc *godog.ScenarioContext) {
	// Background steps
	sc.Step(`^a Keyline server is running$`, s.aKeylineServerIsRunning)
	sc.Step(`^an account "([^"]*)" exists with admin "([^"]*)" and password "([^"]*)"$`, s.anAccountExistsWithAdmin)
	sc.Step(`^I log in as "([^"]*)" with password "([^"]*)" in account "([^"]*)"$`, s.iLogIn)

	// Provisioning steps
	sc.Step(`^I create a product "([^"]*)" with code "([^"]*)"$`, s.iCreateProduct)
	sc.Step(`^I create an open product "([^"]*)" with code "([^"]*)"$`, s.iCreateOpenProduct)
	sc.Step(`^I create an entitlement "([^"]*)" with code "([^"]*)"$`, s.iCreateEntitlement)
	sc.Step(`^I create a license for product "([^"]*)"$`, s.iCreateLicense)
	sc.Step(`^I attach entitlement "([^"]*)" to the license$`, s.iAttachEntitlement)
	sc.Step(`^I generate a token for the license$`, s.iGenerateLicenseToken)
	sc.Step(`^I publish an artifact "([^"]*)" version "([^"]*)" for product "([^"]*)"$`, s.iPublishArtifact)
	sc.Step(`^I require entitlement "([^"]*)" for artifact "([^"]*)" of product "([^"]*)"$`, s.iRequireEntitlement)
	sc.Step(`^a webhook endpoint "([^"]*)" subscribed to "([^"]*)" exists$`, s.aWebhookEndpointExists)

	// Request steps
	sc.Step(`^I request the simple index for "([^"]*)" with the license token$`, s.iRequestSimpleIndexWithLicense)
	sc.Step(`^I request the simple index for "([^"]*)" anonymously$`, s.iRequestSimpleIndexAnonymously)
	sc.Step(`^I download artifact "([^"]*)" of product "([^"]*)" with the license token$`, s.iDownloadArtifactWithLicense)
	sc.Step(`^I list artifacts of product "([^"]*)" with the license token$`, s.iListArtifactsWithLicense)
	sc.Step(`^I list artifacts of product "([^"]*)" anonymously$`, s.iListArtifactsAnonymously)

	// Response steps
	sc.Step(`^the response status should be (\d+)$`, s.theResponseStatusShouldBe)
	sc.Step(`^the response body should contain "([^"]*)"$`, s.theResponseBodyShouldContain)
	sc.Step(`^the response body should not contain "([^"]*)"$`, s.theResponseBodyShouldNotContain)
	sc.Step(`^the response should redirect to "([^"]*)"$`, s.theResponseShouldRedirectTo)

	// Assertion steps against the database
	sc.Step(`^a webhook event "([^"]*)" should be recorded$`, s.aWebhookEventShouldBeRecorded)
}

// Background steps

func (s *StepsContext) aKeylineServerIsRunning() error {
	// Server is already running via TestContext
	return nil
}

func (s *StepsContext) anAccountExistsWithAdmin(slug, email, password string) error {
	s.account = slug

	body := map[string]string{
		"name":           slug,
		"slug":           slug,
		"admin_email":    email,
		"admin_password": password,
	}
	if err := s.doJSON("POST", "/v1/accounts", body, ""); err != nil {
		return err
	}
	if s.response.StatusCode != http.StatusCreated && s.response.StatusCode != http.StatusConflict {
		return fmt.Errorf("account signup returned %d: %s", s.response.StatusCode, s.responseBody)
	}
	return nil
}

func (s *StepsContext) iLogIn(email, password, account string) error {
	s.account = account

	body := map[string]string{"email": email, "password": password}
	if err := s.doJSON("POST", "/v1/accounts/"+account+"/tokens", body, ""); err != nil {
		return err
	}
	if s.response.StatusCode != http.StatusCreated {
		return fmt.Errorf("login returned %d: %s", s.response.StatusCode, s.responseBody)
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(s.responseBody, &resp); err != nil {
		return err
	}
	if resp.Token == "" {
		return fmt.Errorf("login response has no token: %s", s.responseBody)
	}
	s.session = resp.Token
	return nil
}

// Provisioning steps

func (s *StepsContext) iCreateProduct(name, code string) error {
	return s.createProduct(name, code, "")
}

func (s *StepsContext) iCreateOpenProduct(name, code string) error {
	return s.createProduct(name, code, "open")
}

func (s *StepsContext) createProduct(name, code, strategy string) error {
	body := map[string]string{"name": name, "code": code}
	if strategy != "" {
		body["distribution_strategy"] = strategy
	}
	if err := s.doJSON("POST", "/v1/accounts/"+s.account+"/products", body, s.session); err != nil {
		return err
	}
	if s.response.StatusCode != http.StatusCreated {
		return fmt.Errorf("product create returned %d: %s", s.response.StatusCode, s.responseBody)
	}

	var product struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(s.responseBody, &product); err != nil {
		return err
	}
	s.productIDs[code] = product.ID
	return nil
}

func (s *StepsContext) iCreateEntitlement(name, code string) error {
	body := map[string]string{"name": name, "code": code}
	if err := s.doJSON("POST", "/v1/accounts/"+s.account+"/entitlements", body, s.session); err != nil {
		return err
	}
	if s.response.StatusCode != http.StatusCreated {
		return fmt.Errorf("entitlement create returned %d: %s", s.response.StatusCode, s.responseBody)
	}
	return nil
}

func (s *StepsContext) iCreateLicense(productCode string) error {
	body := map[string]string{"product_id": s.productIDs[productCode]}
	if err := s.doJSON("POST", "/v1/accounts/"+s.account+"/licenses", body, s.session); err != nil {
		return err
	}
	if s.response.StatusCode != http.StatusCreated {
		return fmt.Errorf("license create returned %d: %s", s.response.StatusCode, s.responseBody)
	}

	var license struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(s.responseBody, &license); err != nil {
		return err
	}
	s.licenseID = license.ID
	return nil
}

func (s *StepsContext) iAttachEntitlement(entitlementCode string) error {
	path := "/v1/accounts/" + s.account + "/licenses/" + s.licenseID + "/entitlements/" + entitlementCode
	if err := s.doJSON("PUT", path, nil, s.session); err != nil {
		return err
	}
	if s.response.StatusCode != http.StatusOK {
		return fmt.Errorf("entitlement attach returned %d: %s", s.response.StatusCode, s.responseBody)
	}
	return nil
}

func (s *StepsContext) iGenerateLicenseToken() error {
	path := "/v1/accounts/" + s.account + "/licenses/" + s.licenseID + "/tokens"
	if err := s.doJSON("POST", path, map[string]string{}, s.session); err != nil {
		return err
	}
	if s.response.StatusCode != http.StatusCreated {
		return fmt.Errorf("license token returned %d: %s", s.response.StatusCode, s.responseBody)
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(s.responseBody, &resp); err != nil {
		return err
	}
	s.licenseToken = resp.Token
	return nil
}

func (s *StepsContext) iPublishArtifact(filename, version, productCode string) error {
	body := map[string]interface{}{
		"filename":     filename,
		"version":      version,
		"download_url": "https://cdn.example/" + filename,
	}
	path := "/v1/accounts/" + s.account + "/products/" + s.productIDs[productCode] + "/artifacts"
	if err := s.doJSON("POST", path, body, s.session); err != nil {
		return err
	}
	if s.response.StatusCode != http.StatusCreated {
		return fmt.Errorf("artifact create returned %d: %s", s.response.StatusCode, s.responseBody)
	}

	var artifact struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(s.responseBody, &artifact); err != nil {
		return err
	}
	s.artifactIDs[filename] = artifact.ID
	return nil
}

func (s *StepsContext) iRequireEntitlement(entitlementCode, filename, productCode string) error {
	path := "/v1/accounts/" + s.account + "/products/" + s.productIDs[productCode] +
		"/artifacts/" + s.artifactIDs[filename] + "/constraints/" + entitlementCode
	if err := s.doJSON("PUT", path, nil, s.session); err != nil {
		return err
	}
	if s.response.StatusCode != http.StatusOK {
		return fmt.Errorf("constraint attach returned %d: %s", s.response.StatusCode, s.responseBody)
	}
	return nil
}

func (s *StepsContext) aWebhookEndpointExists(url, event string) error {
	body := map[string]interface{}{
		"url":           url,
		"subscriptions": []string{event},
	}
	if err := s.doJSON("POST", "/v1/accounts/"+s.account+"/webhook-endpoints", body, s.session); err != nil {
		return err
	}
	if s.response.StatusCode != http.StatusCreated {
		return fmt.Errorf("webhook endpoint create returned %d: %s", s.response.StatusCode, s.responseBody)
	}
	return nil
}

// Request steps

func (s *StepsContext) iRequestSimpleIndexWithLicense(pkg string) error {
	return s.do("GET", "/v1/accounts/"+s.account+"/pypi/simple/"+pkg+"/", nil, s.licenseToken)
}

func (s *StepsContext) iRequestSimpleIndexAnonymously(pkg string) error {
	return s.do("GET", "/v1/accounts/"+s.account+"/pypi/simple/"+pkg+"/", nil, "")
}

func (s *StepsContext) iDownloadArtifactWithLicense(filename, productCode string) error {
	path := "/v1/accounts/" + s.account + "/products/" + s.productIDs[productCode] +
		"/artifacts/" + s.artifactIDs[filename] + "/download"
	return s.do("GET", path, nil, s.licenseToken)
}

func (s *StepsContext) iListArtifactsWithLicense(productCode string) error {
	path := "/v1/accounts/" + s.account + "/products/" + s.productIDs[productCode] + "/artifacts"
	return s.do("GET", path, nil, s.licenseToken)
}

func (s *StepsContext) iListArtifactsAnonymously(productCode string) error {
	path := "/v1/accounts/" + s.account + "/products/" + s.productIDs[productCode] + "/artifacts"
	return s.do("GET", path, nil, "")
}

// Response steps

func (s *StepsContext) theResponseStatusShouldBe(expectedStatus int) error {
	if s.response.StatusCode != expectedStatus {
		return fmt.Errorf("expected status %d, got %d: %s", expectedStatus, s.response.StatusCode, s.responseBody)
	}
	return nil
}

func (s *StepsContext) theResponseBodyShouldContain(expected string) error {
	if !strings.Contains(string(s.responseBody), expected) {
		return fmt.Errorf("expected body to contain %q, got: %s", expected, s.responseBody)
	}
	return nil
}

func (s *StepsContext) theResponseBodyShouldNotContain(unexpected string) error {
	if strings.Contains(string(s.responseBody), unexpected) {
		return fmt.Errorf("expected body to not contain %q, got: %s", unexpected, s.responseBody)
	}
	return nil
}

func (s *StepsContext) theResponseShouldRedirectTo(location string) error {
	got := s.response.Header.Get("Location")
	if got != location {
		return fmt.Errorf("expected redirect to %q, got %q (status %d)", location, got, s.response.StatusCode)
	}
	return nil
}

// Assertion steps against the database

func (s *StepsContext) aWebhookEventShouldBeRecorded(event string) error {
	var count int64
	if err := s.tc.DB.Table("webhook_events").Where("event = ?", event).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("no webhook event %q recorded", event)
	}
	return nil
}

// HTTP helpers

func (s *StepsContext) doJSON(method, path string, body interface{}, token string) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}
	return s.do(method, path, reader, token)
}

func (s *StepsContext) do(method, path string, body io.Reader, token string) error {
	req, err := http.NewRequest(method, s.tc.ServerURL+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	s.response, err = s.client.Do(req)
	if err != nil {
		return err
	}

	s.responseBody, err = io.ReadAll(s.response.Body)
	_ = s.response.Body.Close()
	return err
}

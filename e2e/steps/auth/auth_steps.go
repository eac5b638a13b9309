package auth

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body interface{}) error
	GET(path string, headers map[string]string) error
	GetResponseField(field string) (interface{}, error)
	GetToken() string
	SetToken(token string)
}

// RegisterSteps registers registration, login and logout step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &authSteps{tc: tc}

	// Registration steps
	ctx.Step(`^I register with email "([^"]*)" and password "([^"]*)"$`, steps.register)
	ctx.Step(`^I register without an email$`, steps.registerWithoutEmail)

	// Session steps
	ctx.Step(`^I connect with email "([^"]*)" and password "([^"]*)"$`, steps.connect)
	ctx.Step(`^I connect with authorization header "([^"]*)"$`, steps.connectWithHeader)
	ctx.Step(`^I save the session token$`, steps.saveToken)
	ctx.Step(`^I request my identity with the session token$`, steps.meWithToken)
	ctx.Step(`^I request my identity with email "([^"]*)" and password "([^"]*)"$`, steps.meWithCredentials)
	ctx.Step(`^I disconnect with the session token$`, steps.disconnect)
}

type authSteps struct {
	tc TestContext
}

func basic(email, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(email+":"+password))
}

func (s *authSteps) register(ctx context.Context, email, password string) error {
	return s.tc.POST("/users", map[string]interface{}{
		"email":    email,
		"password": password,
	})
}

func (s *authSteps) registerWithoutEmail(ctx context.Context) error {
	return s.tc.POST("/users", map[string]interface{}{
		"password": "pw123",
	})
}

func (s *authSteps) connect(ctx context.Context, email, password string) error {
	return s.tc.GET("/connect", map[string]string{
		"Authorization": basic(email, password),
	})
}

func (s *authSteps) connectWithHeader(ctx context.Context, header string) error {
	return s.tc.GET("/connect", map[string]string{
		"Authorization": header,
	})
}

func (s *authSteps) saveToken(ctx context.Context) error {
	token, err := s.tc.GetResponseField("token")
	if err != nil {
		return err
	}
	str, ok := token.(string)
	if !ok || str == "" {
		return fmt.Errorf("token is not a non-empty string: %v", token)
	}
	s.tc.SetToken(str)
	return nil
}

func (s *authSteps) meWithToken(ctx context.Context) error {
	return s.tc.GET("/users/me", map[string]string{
		"X-Token": s.tc.GetToken(),
	})
}

func (s *authSteps) meWithCredentials(ctx context.Context, email, password string) error {
	return s.tc.GET("/users/me", map[string]string{
		"Authorization": basic(email, password),
	})
}

func (s *authSteps) disconnect(ctx context.Context) error {
	return s.tc.GET("/disconnect", map[string]string{
		"X-Token": s.tc.GetToken(),
	})
}

package e2e

import (
	"github.com/cucumber/godog"

	"sessiongate/e2e/steps/auth"
	"sessiongate/e2e/steps/common"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Register common steps (background, generic requests, assertions)
	common.RegisterSteps(ctx, tc)

	// Register registration, login and logout steps
	auth.RegisterSteps(ctx, tc)
}

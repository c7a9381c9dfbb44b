//go:build e2e

package e2e

import (
	"smartgn/e2e/steps/common"
	"smartgn/e2e/steps/identity"
	"smartgn/e2e/steps/requests"

	"github.com/cucumber/godog"
)

// RegisterSteps wires every step package to the shared context.
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	identity.RegisterSteps(ctx, tc)
	requests.RegisterSteps(ctx, tc)
}

package automation

import (
	"context"
	"fmt"
	"time"

	"github.com/ShayCichocki/tiergate/pkg/models"
)

// defaultWait is used by wait steps without a timeout.
const defaultWait = time.Second

// ExecuteStep runs a single step against the client.
// A step missing required fields yields a *ConfigError before any call is
// made. An assertion that does not hold yields an *AssertionError.
func ExecuteStep(ctx context.Context, client Client, index int, step models.TestStep) error {
	if err := step.Validate(); err != nil {
		return &ConfigError{Step: index, Action: step.Action, Err: err}
	}

	timeout := time.Duration(step.Timeout) * time.Millisecond

	switch step.Action {
	case models.ActionClick:
		return client.Click(ctx, step.Selector)
	case models.ActionType:
		return client.TypeText(ctx, step.Selector, step.Value)
	case models.ActionNavigate:
		return client.Navigate(ctx, step.Value)
	case models.ActionWait:
		if timeout <= 0 {
			timeout = defaultWait
		}
		return client.Wait(ctx, timeout)
	case models.ActionWaitForSelector:
		return client.WaitForSelector(ctx, step.Selector, timeout)
	case models.ActionSelect:
		return client.Select(ctx, step.Selector, step.Value)
	case models.ActionCheck:
		return client.Check(ctx, step.Selector, step.Value != "false")
	case models.ActionSubmit:
		return client.Submit(ctx, step.Selector)
	case models.ActionAssertVisible:
		ok, err := client.AssertVisible(ctx, step.Selector)
		if err != nil {
			return err
		}
		if !ok {
			return &AssertionError{Action: step.Action, Selector: step.Selector,
				Message: fmt.Sprintf("element not visible: %s", step.Selector)}
		}
	case models.ActionAssertText:
		ok, err := client.AssertText(ctx, step.Selector, step.Expected)
		if err != nil {
			return err
		}
		if !ok {
			return &AssertionError{Action: step.Action, Selector: step.Selector,
				Message: fmt.Sprintf("element %s does not contain text: %s", step.Selector, step.Expected)}
		}
	case models.ActionAssertPosition:
		ok, err := client.AssertPosition(ctx, step.Selector, *step.Position)
		if err != nil {
			return err
		}
		if !ok {
			return &AssertionError{Action: step.Action, Selector: step.Selector,
				Message: fmt.Sprintf("element %s position does not match expected", step.Selector)}
		}
	}
	return nil
}

// PositionMatches compares actual geometry against expected within tolerance.
// Only coordinates set on expected are compared.
func PositionMatches(actual, expected models.Position) bool {
	within := func(a, e *float64) bool {
		if e == nil {
			return true
		}
		var av float64
		if a != nil {
			av = *a
		}
		d := av - *e
		if d < 0 {
			d = -d
		}
		return d <= expected.Tolerance
	}
	return within(actual.X, expected.X) &&
		within(actual.Y, expected.Y) &&
		within(actual.Width, expected.Width) &&
		within(actual.Height, expected.Height)
}

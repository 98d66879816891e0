package actions

import (
	"context"

	"github.com/entrhq/crmpilot/pkg/driver"
	"github.com/entrhq/crmpilot/pkg/wait"
)

// Probes answer "is it there?" rather than "it must be there". Absence is a
// plain false; a broken connection or a closed session is an error.

// ElementPresentByLinkText looks up a link by its text once, without waiting.
func ElementPresentByLinkText(s Session, text string) (bool, error) {
	d, err := s.Driver()
	if err != nil {
		return false, err
	}
	if _, err := d.FindElement(driver.LinkText(text)); err != nil {
		if driver.IsAbsence(err) {
			s.Logger().Debugf("link %q not present", text)
			return false, nil
		}
		s.Logger().Errorf("probe for link %q failed: %v", text, err)
		return false, err
	}
	return true, nil
}

// IsElementPresent reports whether the element is displayed right now.
// It evaluates the visibility predicate a single time.
func IsElementPresent(ctx context.Context, s Session, loc driver.Locator) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	d, err := s.Driver()
	if err != nil {
		return false, err
	}
	_, ok, err := wait.Visible(loc).Evaluate(d)
	if err != nil {
		if driver.IsAbsence(err) {
			s.Logger().Debugf("%s not present", loc)
			return false, nil
		}
		s.Logger().Errorf("probe for %s failed: %v", loc, err)
		return false, err
	}
	return ok, nil
}

package service

import (
	"net/mail"
	"regexp"

	"taskhub/internal/apperr"
)

// Slugs are lowercase alphanumeric with single hyphens, 2-50 characters,
// no leading or trailing hyphen.
var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

func validateSlug(slug string) *apperr.Issue {
	if len(slug) < 2 || len(slug) > 50 {
		return &apperr.Issue{Field: "slug", Message: "must be 2 to 50 characters"}
	}
	if !slugPattern.MatchString(slug) {
		return &apperr.Issue{Field: "slug", Message: "must be lowercase alphanumeric with hyphens"}
	}
	return nil
}

func validateOrgName(name string) *apperr.Issue {
	if name == "" {
		return &apperr.Issue{Field: "name", Message: "is required"}
	}
	if len(name) > 100 {
		return &apperr.Issue{Field: "name", Message: "must be at most 100 characters"}
	}
	return nil
}

func validateDescription(description string) *apperr.Issue {
	if len(description) > 500 {
		return &apperr.Issue{Field: "description", Message: "must be at most 500 characters"}
	}
	return nil
}

func validateEmail(email string) *apperr.Issue {
	if email == "" {
		return &apperr.Issue{Field: "email", Message: "is required"}
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return &apperr.Issue{Field: "email", Message: "is not a valid email address"}
	}
	return nil
}

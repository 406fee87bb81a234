package api

import (
	"fmt"
	"net/url"

	"github.com/Past-Tang/x/internal/models"
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateAccount validates pool account data
func ValidateAccount(name string, maxSlots, weight int) error {
	if name == "" {
		return ValidationError{Field: "name", Message: "Name is required"}
	}

	// Validate concurrency slots (1 - 100)
	if maxSlots < 1 || maxSlots > 100 {
		return ValidationError{Field: "max_slots", Message: "Max slots must be between 1 and 100"}
	}

	if weight < 0 {
		return ValidationError{Field: "weight", Message: "Weight cannot be negative"}
	}

	return nil
}

// ValidateTarget validates monitor target data
func ValidateTarget(target *models.MonitorTarget) error {
	if target.UserID == "" {
		return ValidationError{Field: "user_id", Message: "User ID is required"}
	}

	// Validate check interval (1 minute to 1440 minutes/24 hours)
	if target.CheckIntervalMinutes < 1 || target.CheckIntervalMinutes > 1440 {
		return ValidationError{Field: "check_interval_minutes", Message: "Check interval must be between 1 and 1440 minutes"}
	}

	// Validate fetch count (1 - 100)
	if target.FetchCount < 1 || target.FetchCount > 100 {
		return ValidationError{Field: "fetch_count", Message: "Fetch count must be between 1 and 100"}
	}

	// 0 means unlimited
	if target.MaxNewPerCheck < 0 {
		return ValidationError{Field: "max_new_per_check", Message: "Max new per check cannot be negative"}
	}

	return nil
}

// ValidateTemplate validates reply template data
func ValidateTemplate(tpl *models.ReplyTemplate) error {
	if tpl.Content == "" {
		return ValidationError{Field: "content", Message: "Content is required"}
	}

	switch tpl.Scope {
	case models.ScopeGlobal:
		if tpl.TargetID != "" {
			return ValidationError{Field: "target_id", Message: "Global templates cannot name a target"}
		}
	case models.ScopeTarget:
		if tpl.TargetID == "" {
			return ValidationError{Field: "target_id", Message: "Target ID is required for target-scoped templates"}
		}
	default:
		return ValidationError{Field: "scope", Message: "Invalid scope (must be global or target)"}
	}

	return nil
}

// ValidateContent validates post content data
func ValidateContent(content *models.PostContent) error {
	if content.Text == "" {
		return ValidationError{Field: "text", Message: "Text is required"}
	}

	if content.Link != "" {
		if err := ValidateURL(content.Link); err != nil {
			return ValidationError{Field: "link", Message: "Invalid link URL"}
		}
	}

	return nil
}

// ValidateJob validates post job data
func ValidateJob(job *models.PostJob) error {
	if job.Name == "" {
		return ValidationError{Field: "name", Message: "Name is required"}
	}

	// Validate run interval (1 minute to 10080 minutes/7 days)
	if job.IntervalMinutes < 1 || job.IntervalMinutes > 10080 {
		return ValidationError{Field: "interval_minutes", Message: "Run interval must be between 1 and 10080 minutes"}
	}

	if job.AccountStrategy != "" {
		if _, err := models.ParseStrategy(string(job.AccountStrategy)); err != nil {
			return ValidationError{Field: "account_strategy", Message: "Invalid strategy (must be round_robin, random, or weighted)"}
		}
	}

	return nil
}

// ValidateURL validates a URL string
func ValidateURL(urlStr string) error {
	if urlStr == "" {
		return ValidationError{Field: "url", Message: "URL is required"}
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return ValidationError{Field: "url", Message: "Invalid URL format"}
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return ValidationError{Field: "url", Message: "URL must use http or https scheme"}
	}

	if parsedURL.Host == "" {
		return ValidationError{Field: "url", Message: "URL must have a host"}
	}

	return nil
}

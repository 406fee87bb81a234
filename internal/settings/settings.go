// Package settings resolves runtime tunables once at startup: values stored
// in the settings table win, then environment configuration, then built-in
// defaults. The resolved snapshot is immutable for the process lifetime.
package settings

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Past-Tang/x/internal/config"
	"github.com/Past-Tang/x/internal/models"
)

// Setting keys recognized in the settings table.
const (
	KeyGatewayBaseURL          = "gateway_base_url"
	KeyGatewayAPIKey           = "gateway_api_key"
	KeyAccountHourlyLimit      = "account_hourly_limit"
	KeyAccountFailureThreshold = "account_failure_threshold"
	KeyMinRandomDelay          = "min_random_delay_seconds"
	KeyMaxRandomDelay          = "max_random_delay_seconds"
	KeyAccountStrategy         = "account_selection_strategy"
	KeyTemplateStrategy        = "template_selection_strategy"
)

// Runtime is the resolved tunable snapshot the pipelines read from. It is
// never mutated after Resolve returns.
type Runtime struct {
	GatewayBaseURL          string
	GatewayAPIKey           string
	AccountHourlyLimit      int
	AccountFailureThreshold int
	MinRandomDelaySeconds   int
	MaxRandomDelaySeconds   int
	AccountStrategy         models.Strategy
	TemplateStrategy        models.Strategy
}

// Resolve builds the runtime snapshot. A stored setting that fails to parse
// is logged and skipped, leaving the environment or default value in place.
func Resolve(ctx context.Context, repo models.SettingRepository, cfg config.Config, logger *slog.Logger) (Runtime, error) {
	rt := Runtime{
		GatewayBaseURL:          cfg.Gateway.BaseURL,
		GatewayAPIKey:           cfg.Gateway.APIKey,
		AccountHourlyLimit:      cfg.Defaults.AccountHourlyLimit,
		AccountFailureThreshold: cfg.Defaults.AccountFailureThreshold,
		MinRandomDelaySeconds:   cfg.Defaults.MinRandomDelaySeconds,
		MaxRandomDelaySeconds:   cfg.Defaults.MaxRandomDelaySeconds,
	}

	accountStrategy, err := models.ParseStrategy(cfg.Defaults.AccountStrategy)
	if err != nil {
		return Runtime{}, fmt.Errorf("account strategy: %w", err)
	}
	rt.AccountStrategy = accountStrategy

	templateStrategy, err := models.ParseStrategy(cfg.Defaults.TemplateStrategy)
	if err != nil {
		return Runtime{}, fmt.Errorf("template strategy: %w", err)
	}
	rt.TemplateStrategy = templateStrategy

	stored, err := repo.ListAll(ctx)
	if err != nil {
		return Runtime{}, fmt.Errorf("load settings: %w", err)
	}

	for _, s := range stored {
		if err := apply(&rt, s); err != nil {
			logger.Warn("ignoring stored setting", "key", s.Key, "error", err)
		}
	}

	if rt.MaxRandomDelaySeconds < rt.MinRandomDelaySeconds {
		return Runtime{}, fmt.Errorf("max random delay %d below min %d", rt.MaxRandomDelaySeconds, rt.MinRandomDelaySeconds)
	}

	return rt, nil
}

func apply(rt *Runtime, s *models.Setting) error {
	switch s.Key {
	case KeyGatewayBaseURL:
		if s.Value != "" {
			rt.GatewayBaseURL = s.Value
		}
	case KeyGatewayAPIKey:
		if s.Value != "" {
			rt.GatewayAPIKey = s.Value
		}
	case KeyAccountHourlyLimit:
		return applyInt(s, &rt.AccountHourlyLimit)
	case KeyAccountFailureThreshold:
		return applyInt(s, &rt.AccountFailureThreshold)
	case KeyMinRandomDelay:
		return applyInt(s, &rt.MinRandomDelaySeconds)
	case KeyMaxRandomDelay:
		return applyInt(s, &rt.MaxRandomDelaySeconds)
	case KeyAccountStrategy:
		strategy, err := models.ParseStrategy(s.Value)
		if err != nil {
			return err
		}
		rt.AccountStrategy = strategy
	case KeyTemplateStrategy:
		strategy, err := models.ParseStrategy(s.Value)
		if err != nil {
			return err
		}
		rt.TemplateStrategy = strategy
	}
	return nil
}

func applyInt(s *models.Setting, dst *int) error {
	n, err := s.IntValue()
	if err != nil {
		return err
	}
	if n < 0 {
		return fmt.Errorf("setting %q must be non-negative", s.Key)
	}
	*dst = n
	return nil
}

// Seed writes default rows for every recognized key that is absent, so the
// admin API surfaces the full tunable set.
func Seed(ctx context.Context, repo models.SettingRepository, cfg config.Config) error {
	defaults := []models.Setting{
		{Key: KeyGatewayBaseURL, Value: cfg.Gateway.BaseURL, ValueType: models.SettingTypeString, Description: "Platform gateway base URL"},
		{Key: KeyAccountHourlyLimit, Value: fmt.Sprint(cfg.Defaults.AccountHourlyLimit), ValueType: models.SettingTypeInt, Description: "Max actions per account per hour"},
		{Key: KeyAccountFailureThreshold, Value: fmt.Sprint(cfg.Defaults.AccountFailureThreshold), ValueType: models.SettingTypeInt, Description: "Consecutive failures before an account turns suspect"},
		{Key: KeyMinRandomDelay, Value: fmt.Sprint(cfg.Defaults.MinRandomDelaySeconds), ValueType: models.SettingTypeInt, Description: "Lower bound of the pre-call pacing delay"},
		{Key: KeyMaxRandomDelay, Value: fmt.Sprint(cfg.Defaults.MaxRandomDelaySeconds), ValueType: models.SettingTypeInt, Description: "Upper bound of the pre-call pacing delay"},
		{Key: KeyAccountStrategy, Value: cfg.Defaults.AccountStrategy, ValueType: models.SettingTypeString, Description: "Account selection strategy"},
		{Key: KeyTemplateStrategy, Value: cfg.Defaults.TemplateStrategy, ValueType: models.SettingTypeString, Description: "Reply template selection strategy"},
	}

	for i := range defaults {
		existing, err := repo.Get(ctx, defaults[i].Key)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		if err := repo.Upsert(ctx, &defaults[i]); err != nil {
			return err
		}
	}
	return nil
}

package domain

import (
	"strconv"
	"strings"
)

// Review setting keys as stored in review_settings.key.
const (
	SettingAutoApproveThreshold = "auto_approve_threshold"
	SettingAutoSkipThreshold    = "auto_skip_threshold"
	SettingScoringEnabled       = "scoring_enabled"
	SettingAutoCollectEnabled   = "auto_collect_enabled"
)

// Default review settings.
const (
	DefaultAutoApproveThreshold = 70
	DefaultAutoSkipThreshold    = 30
)

// ReviewSettings is the process-wide triage configuration.
type ReviewSettings struct {
	AutoApproveThreshold int  `json:"auto_approve_threshold"`
	AutoSkipThreshold    int  `json:"auto_skip_threshold"`
	ScoringEnabled       bool `json:"scoring_enabled"`
	AutoCollectEnabled   bool `json:"auto_collect_enabled"`
}

// DefaultReviewSettings returns the settings used when no rows are stored.
func DefaultReviewSettings() ReviewSettings {
	return ReviewSettings{
		AutoApproveThreshold: DefaultAutoApproveThreshold,
		AutoSkipThreshold:    DefaultAutoSkipThreshold,
		ScoringEnabled:       true,
		AutoCollectEnabled:   true,
	}
}

// ReviewSettingsFromMap builds settings from key/value rows.
// Missing or unparsable values keep their defaults.
func ReviewSettingsFromMap(values map[string]string) ReviewSettings {
	s := DefaultReviewSettings()
	if v, ok := values[SettingAutoApproveThreshold]; ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			s.AutoApproveThreshold = n
		}
	}
	if v, ok := values[SettingAutoSkipThreshold]; ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			s.AutoSkipThreshold = n
		}
	}
	if v, ok := values[SettingScoringEnabled]; ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			s.ScoringEnabled = b
		}
	}
	if v, ok := values[SettingAutoCollectEnabled]; ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			s.AutoCollectEnabled = b
		}
	}
	return s
}

// ToMap serializes settings into key/value rows.
func (s ReviewSettings) ToMap() map[string]string {
	return map[string]string{
		SettingAutoApproveThreshold: strconv.Itoa(s.AutoApproveThreshold),
		SettingAutoSkipThreshold:    strconv.Itoa(s.AutoSkipThreshold),
		SettingScoringEnabled:       strconv.FormatBool(s.ScoringEnabled),
		SettingAutoCollectEnabled:   strconv.FormatBool(s.AutoCollectEnabled),
	}
}

// Validate checks that thresholds are within the score range.
// Crossed thresholds are accepted; approval takes precedence when resolving.
func (s ReviewSettings) Validate() error {
	if s.AutoApproveThreshold < 0 || s.AutoApproveThreshold > 100 {
		return NewValidationError(SettingAutoApproveThreshold, "must be between 0 and 100")
	}
	if s.AutoSkipThreshold < 0 || s.AutoSkipThreshold > 100 {
		return NewValidationError(SettingAutoSkipThreshold, "must be between 0 and 100")
	}
	return nil
}

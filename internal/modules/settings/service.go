package settings

import (
	"fmt"
	"strconv"

	"github.com/rs/zerolog"
)

// Service wraps the repository with default handling and validation.
// Getters never return errors: on a missing key, a parse failure, or a
// database error they fall back to the supplied default, so callers on
// the hot path (config overlay, backend selection) stay unconditional.
type Service struct {
	repo *Repository
	log  zerolog.Logger
}

// NewService creates a new settings service
func NewService(repo *Repository, log zerolog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With().Str("service", "settings").Logger(),
	}
}

// GetAll returns every known setting: defaults overlaid with stored
// values, plus any stale stored keys that no longer have defaults.
func (s *Service) GetAll() (map[string]interface{}, error) {
	stored, err := s.repo.GetAll()
	if err != nil {
		return nil, err
	}

	result := make(map[string]interface{}, len(SettingDefaults))
	for key, def := range SettingDefaults {
		result[key] = def
	}

	for key, raw := range stored {
		if StringSettings[key] {
			result[key] = raw
			continue
		}
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			result[key] = f
			continue
		}
		// Booleans stored as "true"/"false" and stale keys come through raw
		switch raw {
		case "true":
			result[key] = 1.0
		case "false":
			result[key] = 0.0
		default:
			result[key] = raw
		}
	}

	return result, nil
}

// Set validates and stores a setting value. Unknown keys and values of
// the wrong type are rejected so typos don't silently create dead knobs.
func (s *Service) Set(key string, value interface{}) error {
	if _, known := SettingDefaults[key]; !known {
		return fmt.Errorf("unknown setting %q", key)
	}

	var desc *string
	if d, ok := SettingDescriptions[key]; ok {
		desc = &d
	}

	if StringSettings[key] {
		str, ok := value.(string)
		if !ok {
			return fmt.Errorf("setting %q expects a string value, got %T", key, value)
		}
		return s.repo.Set(key, str, desc)
	}

	switch v := value.(type) {
	case float64:
		return s.repo.Set(key, strconv.FormatFloat(v, 'f', -1, 64), desc)
	case int:
		return s.repo.Set(key, strconv.Itoa(v), desc)
	case bool:
		if v {
			return s.repo.Set(key, "true", desc)
		}
		return s.repo.Set(key, "false", desc)
	case string:
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			return fmt.Errorf("setting %q expects a numeric value, got %q", key, v)
		}
		return s.repo.Set(key, v, desc)
	default:
		return fmt.Errorf("unsupported value type %T for setting %q", value, key)
	}
}

// Delete removes a stored override; reads fall back to the default.
func (s *Service) Delete(key string) error {
	if _, known := SettingDefaults[key]; !known {
		return fmt.Errorf("unknown setting %q", key)
	}
	return s.repo.Delete(key)
}

// GetFloat returns the setting as float64, or defaultValue.
func (s *Service) GetFloat(key string, defaultValue float64) float64 {
	value, err := s.repo.GetFloat(key, defaultValue)
	if err != nil {
		return defaultValue
	}
	return value
}

// GetInt returns the setting as int, or defaultValue.
func (s *Service) GetInt(key string, defaultValue int) int {
	value, err := s.repo.GetInt(key, defaultValue)
	if err != nil {
		return defaultValue
	}
	return value
}

// GetBool returns the setting as bool, or defaultValue. Accepts
// "true"/"false" words and any numeric form (1, 1.0, 0).
func (s *Service) GetBool(key string, defaultValue bool) bool {
	value, err := s.repo.Get(key)
	if err != nil || value == nil {
		return defaultValue
	}

	switch *value {
	case "true", "yes", "on":
		return true
	case "false", "no", "off":
		return false
	}

	if f, err := strconv.ParseFloat(*value, 64); err == nil {
		return f != 0
	}

	return defaultValue
}

// GetString returns the setting as string, or defaultValue.
func (s *Service) GetString(key string, defaultValue string) string {
	value, err := s.repo.Get(key)
	if err != nil || value == nil || *value == "" {
		return defaultValue
	}
	return *value
}

// DefaultBackend returns the backend name used when a request omits one.
func (s *Service) DefaultBackend() string {
	return s.GetString("default_backend", defaultString("default_backend"))
}

// DefaultShots returns the shot count used when an ad-hoc run omits one.
func (s *Service) DefaultShots() int {
	return s.GetInt("default_shots", defaultInt("default_shots"))
}

// MaxQubits returns the configured circuit width ceiling.
func (s *Service) MaxQubits() int {
	return s.GetInt("max_qubits", defaultInt("max_qubits"))
}

// RetentionDays returns the run history retention window in days.
func (s *Service) RetentionDays() int {
	return s.GetInt("runs_retention_days", defaultInt("runs_retention_days"))
}

// CacheResults reports whether circuit results should be memoized.
func (s *Service) CacheResults() bool {
	return s.GetBool("cache_results", defaultInt("cache_results") != 0)
}

// CacheMaxAgeDays returns the age after which unused cache entries are swept.
func (s *Service) CacheMaxAgeDays() int {
	return s.GetInt("cache_max_age_days", defaultInt("cache_max_age_days"))
}

// CacheMaxEntries returns the soft cap on cached results.
func (s *Service) CacheMaxEntries() int {
	return s.GetInt("cache_max_entries", defaultInt("cache_max_entries"))
}

func defaultString(key string) string {
	if v, ok := SettingDefaults[key].(string); ok {
		return v
	}
	return ""
}

func defaultInt(key string) int {
	if v, ok := SettingDefaults[key].(float64); ok {
		return int(v)
	}
	return 0
}

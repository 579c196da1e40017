package settings

// SettingDefaults holds all default values for configurable settings.
// Numeric values are stored as float64; GetInt parses through float to
// tolerate "12.0" strings coming back from the database.
var SettingDefaults = map[string]interface{}{
	// Execution
	"default_backend": "statevec", // Backend used when a request does not name one
	"default_shots":   0.0,        // Default shot count for ad-hoc runs (0 = exact readout, no sampling)
	"max_qubits":      16.0,       // Ceiling on circuit width accepted by the API and session

	// Run history
	"runs_retention_days": 30.0, // Days of run history kept before the retention job purges

	// Result cache
	"cache_results":        1.0,   // 1.0 = memoize circuit results in cache.db
	"cache_max_age_days":   14.0,  // Entries not hit for this many days are swept
	"cache_max_entries":    500.0, // Soft cap enforced by the sweep job
	"session_state_pushes": 1.0,   // 1.0 = push full state after every session op
}

// StringSettings defines which settings should be treated as strings rather than floats
var StringSettings = map[string]bool{
	"default_backend": true,
}

// SettingDescriptions holds human-readable descriptions for all settings
var SettingDescriptions = map[string]string{
	"default_backend":      "Execution backend used when a run request does not name one (see GET /api/system/status for registered backends)",
	"default_shots":        "Shot count for ad-hoc circuit runs when the request omits one. 0 returns the exact distribution without sampling.",
	"max_qubits":           "Maximum circuit width accepted by the run endpoints and the interactive session. State vectors grow as 2^n, keep this modest.",
	"runs_retention_days":  "Days of run history kept in results.db. The daily retention job deletes older rows.",
	"cache_results":        "Memoize deterministic circuit results in cache.db keyed by circuit hash (1.0 = enabled)",
	"cache_max_age_days":   "Cache entries not hit for this many days are removed by the sweep job",
	"cache_max_entries":    "Soft cap on cache rows; the sweep job evicts least recently hit entries beyond it",
	"session_state_pushes": "Push the full state vector to session clients after every applied gate (1.0 = enabled)",
}

// SettingUpdate represents a setting value update request
type SettingUpdate struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

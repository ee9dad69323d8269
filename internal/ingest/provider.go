package ingest

// Result holds the outcome of an import.
type Result struct {
	WorkoutsReceived int `json:"workouts_received"`
	SessionsImported int `json:"sessions_imported"`
	// SessionsSkipped counts sessions whose date is already in the collection.
	SessionsSkipped  int      `json:"sessions_skipped"`
	SessionsRejected int      `json:"sessions_rejected"`
	Rejected         []string `json:"rejected,omitempty"`

	SetsReceived   int `json:"sets_received"`
	WarmupsDropped int `json:"warmups_dropped"`

	DryRun  bool   `json:"dry_run,omitempty"`
	Message string `json:"message,omitempty"`
}

package dashboard

// Stats is the laboratory overview shown on the landing page.
type Stats struct {
	TotalPatients     int            `json:"total_patients"`
	TodaySpecimens    int            `json:"today_samples"`
	PendingResults    int            `json:"pending_results"`
	CriticalResults   int            `json:"critical_results"`
	TATBreaches       int            `json:"tat_breaches"`
	SpecimensByStatus map[string]int `json:"samples_by_status"`
}

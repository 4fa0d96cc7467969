package models

// Availability is the answer to "how many seats of tier are left".
type Availability struct {
	EventID   int64 `json:"event_id"`
	Tier      Tier  `json:"seat_type"`
	Available int   `json:"available"`
	Cached    bool  `json:"cached"`
}

package hive

// Metrics is an atomic snapshot of the colony's global counters.
type Metrics struct {
	NectarCollected    int `json:"nectar_collected"`
	NectarStored       int `json:"nectar_stored"`
	AttacksDetected    int `json:"attacks_detected"`
	AttacksNeutralized int `json:"attacks_neutralized"`
	RoleChanges        int `json:"role_changes"`
	FlowersVisited     int `json:"flowers_visited"`
	LarvaeFed          int `json:"larvae_fed"`
	CellsOccupied      int `json:"cells_occupied"`
	CellsFree          int `json:"cells_free"`
}

// BeeTally holds the per-bee contribution counters.
type BeeTally struct {
	NectarCollected    int `json:"nectar_collected,omitempty"`
	NectarStored       int `json:"nectar_stored,omitempty"`
	NectarConsumed     int `json:"nectar_consumed,omitempty"`
	FlowersVisited     int `json:"flowers_visited,omitempty"`
	LarvaeFed          int `json:"larvae_fed,omitempty"`
	AttacksNeutralized int `json:"attacks_neutralized,omitempty"`
}

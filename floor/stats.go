package floor

import "github.com/aruizmx/comandero/models"

// Stats is the zone-panel rollup.
type Stats struct {
	TotalZones     int `json:"total_zones"`
	ActiveZones    int `json:"active_zones"`
	TotalTables    int `json:"total_tables"`
	FreeTables     int `json:"free_tables"`
	OccupiedTables int `json:"occupied_tables"`
}

// ZoneStats folds zone and table snapshots into the panel stats. Pure.
func ZoneStats(zones []models.Zone, tables []models.Table) Stats {
	s := Stats{TotalZones: len(zones), TotalTables: len(tables)}
	for _, z := range zones {
		if z.Active {
			s.ActiveZones++
		}
	}
	for _, t := range tables {
		switch t.Status {
		case models.TableFree:
			s.FreeTables++
		case models.TableOccupied:
			s.OccupiedTables++
		}
	}
	return s
}

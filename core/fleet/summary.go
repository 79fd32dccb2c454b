package fleet

import "github.com/kilianp07/fleetcast/core/model"

// Summarize aggregates assigned trucks and capacity over reqs. The peak day
// is the first day with the highest assigned truck count.
func Summarize(reqs []model.FleetRequirement) model.FleetSummary {
	var s model.FleetSummary
	s.Days = len(reqs)
	for i, r := range reqs {
		s.TotalPackages += r.Packages
		s.TotalRegularTrucks += r.AssignedRegularTrucks
		s.TotalLargeTrucks += r.AssignedLargeTrucks
		s.TotalAssignedCapacity += r.AssignedCapacity
		s.TotalRemaining += r.RemainingPackages
		if n := r.AssignedTrucks(); i == 0 || n > s.PeakTrucks {
			s.PeakDay = r.Day
			s.PeakTrucks = n
		}
	}
	s.TotalTrucks = s.TotalRegularTrucks + s.TotalLargeTrucks
	s.AdditionalCapacity = max(0, s.TotalAssignedCapacity-s.TotalPackages)
	if s.Days > 0 {
		s.AverageTrucksPerDay = float64(s.TotalTrucks) / float64(s.Days)
	}
	return s
}

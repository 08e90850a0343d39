package domain

// PreferenceProfile is the named set of desired equipment used as a scoring
// input. It is configuration, not subject to history tracking.
type PreferenceProfile struct {
	Name             string
	DesiredEquipment []string
}

// DesiredSet returns the normalized desired equipment names.
func (p *PreferenceProfile) DesiredSet() map[string]struct{} {
	if p == nil {
		return nil
	}
	set := make(map[string]struct{}, len(p.DesiredEquipment))
	for _, name := range p.DesiredEquipment {
		n := NormalizeEquipmentText(name)
		if n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}

package contracts

// FreshnessState classifies the age of a source category
type FreshnessState string

const (
	Fresh   FreshnessState = "fresh"
	Stale   FreshnessState = "stale"
	Unknown FreshnessState = "unknown"
)

// FreshnessVerdict is the age classification of one source category
type FreshnessVerdict struct {
	Category      SourceCategory `json:"category"`
	AgeDays       *int           `json:"age_days"` // null when no timestamp
	State         FreshnessState `json:"state"`
	ThresholdDays int            `json:"threshold_days"`
}

// FreshnessReport holds one verdict per category in AllSourceCategories order
type FreshnessReport struct {
	Verdicts []FreshnessVerdict `json:"verdicts"`
}

// Get returns the verdict for a category
func (r FreshnessReport) Get(cat SourceCategory) (FreshnessVerdict, bool) {
	for _, v := range r.Verdicts {
		if v.Category == cat {
			return v, true
		}
	}
	return FreshnessVerdict{}, false
}

// AllFresh is true only when every category is present and fresh
func (r FreshnessReport) AllFresh() bool {
	if len(r.Verdicts) == 0 {
		return false
	}
	for _, v := range r.Verdicts {
		if v.State != Fresh {
			return false
		}
	}
	return true
}

// NonFresh returns categories whose verdict is stale or unknown
func (r FreshnessReport) NonFresh() []FreshnessVerdict {
	out := make([]FreshnessVerdict, 0)
	for _, v := range r.Verdicts {
		if v.State != Fresh {
			out = append(out, v)
		}
	}
	return out
}

package fetch

// NoDataMessage is the sentinel the endpoint returns for a device without
// samples in the requested window.
const NoDataMessage = "No data found for the specified device."

// ppgResponse is the endpoint payload: parallel arrays aligned by position.
type ppgResponse struct {
	Message   *string    `json:"message"`
	HR        []*float64 `json:"hr"`
	LFHFRatio []*float64 `json:"lf_hf_ratio"`
	RMSSD     []*float64 `json:"rmssd"`
	SDRR      []*float64 `json:"sdrr"`
	SI        []*float64 `json:"si"`
	Time      []string   `json:"time"`
}

func (r *ppgResponse) noData() bool {
	return r.Message != nil && *r.Message == NoDataMessage
}

// empty reports whether every physiological array is empty.
func (r *ppgResponse) empty() bool {
	return len(r.HR) == 0 &&
		len(r.LFHFRatio) == 0 &&
		len(r.RMSSD) == 0 &&
		len(r.SDRR) == 0 &&
		len(r.SI) == 0
}

func (r *ppgResponse) lengths() []int {
	return []int{len(r.HR), len(r.LFHFRatio), len(r.RMSSD), len(r.SDRR), len(r.SI), len(r.Time)}
}

// rows returns the number of complete positions and whether all arrays
// had the same length.
func (r *ppgResponse) rows() (int, bool) {
	lengths := r.lengths()
	n := lengths[0]
	aligned := true
	for _, l := range lengths[1:] {
		if l != n {
			aligned = false
		}
		n = min(n, l)
	}
	return n, aligned
}

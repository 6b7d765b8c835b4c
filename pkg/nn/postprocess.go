package nn

import "fmt"

// Postprocessor turns raw detector output into a DetectionSet, by running NMS
// independently on every class except the background.
type Postprocessor struct {
	params DetectionParams
}

func NewPostprocessor(params *DetectionParams) (*Postprocessor, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Postprocessor{
		params: *params,
	}, nil
}

func (p *Postprocessor) Params() DetectionParams {
	return p.params
}

// Process runs NMS on each class of a single image.
// If filter is true, then kept detections with a score below ProbabilityThreshold are dropped.
// Timing measurements don't depend on the filter, so the benchmark path can skip it.
func (p *Postprocessor) Process(out *ImageOutput, filter bool) (DetectionSet, error) {
	if err := out.Validate(); err != nil {
		return nil, err
	}
	set := DetectionSet{}
	// Class 0 is background
	for c := 1; c < out.NumClasses(); c++ {
		candidates := out.ClassScoredBoxes(c)
		keep, err := NMS(candidates, p.params.NmsIouThreshold)
		if err != nil {
			return nil, err
		}
		for _, k := range keep {
			if filter && candidates[k].Score < p.params.ProbabilityThreshold {
				continue
			}
			set[c] = append(set[c], Detection{
				Class: c,
				Score: candidates[k].Score,
				Box:   candidates[k].Box,
			})
		}
	}
	return set, nil
}

// ProcessBatch runs Process on every image of a batch
func (p *Postprocessor) ProcessBatch(out *BatchOutput, filter bool) ([]DetectionSet, error) {
	sets := make([]DetectionSet, len(out.Images))
	for i := range out.Images {
		set, err := p.Process(&out.Images[i], filter)
		if err != nil {
			return nil, fmt.Errorf("image %v: %w", i, err)
		}
		sets[i] = set
	}
	return sets, nil
}

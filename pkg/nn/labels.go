package nn

import (
	"fmt"
	"slices"
)

// Detection is an object that survived post-processing
type Detection struct {
	Class int     `json:"class"`
	Score float32 `json:"score"`
	Box   Box     `json:"box"`
}

// DetectionSet holds the detections of one image, keyed by class index.
// Within a class, detections are in the order that NMS selected them.
// Classes without any detections are absent.
type DetectionSet map[int][]Detection

// Count returns the total number of detections over all classes
func (s DetectionSet) Count() int {
	n := 0
	for _, dets := range s {
		n += len(dets)
	}
	return n
}

// Classes returns the class indices present in the set, in ascending order
func (s DetectionSet) Classes() []int {
	classes := make([]int, 0, len(s))
	for c := range s {
		classes = append(classes, c)
	}
	slices.Sort(classes)
	return classes
}

// Describe produces one line per detection, such as "dog 0.913 (10.0,20.0)-(80.0,90.0)".
// If a class index has no name in 'classNames', then the number is printed instead.
func (s DetectionSet) Describe(classNames []string) []string {
	lines := []string{}
	for _, c := range s.Classes() {
		name := fmt.Sprintf("class%v", c)
		if c < len(classNames) {
			name = classNames[c]
		}
		for _, d := range s[c] {
			lines = append(lines, fmt.Sprintf("%v %.3f %v", name, d.Score, d.Box))
		}
	}
	return lines
}

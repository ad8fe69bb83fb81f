package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// LabNumber is the parsed form of a lab-issued sample identifier in
// region-batch-sequence format, e.g. "1-027-450". Zero padding is not
// guaranteed on the wire, so ordering is numeric per component, never
// lexical on the raw string.
type LabNumber struct {
	Region   int
	Batch    int
	Sequence int
}

func ParseLabNumber(s string) (LabNumber, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 3 {
		return LabNumber{}, fmt.Errorf("%w: lab number %q is not region-batch-sequence", ErrValidation, s)
	}

	values := make([]int, 3)
	for i, part := range parts {
		v, err := strconv.Atoi(part)
		if err != nil || v < 0 {
			return LabNumber{}, fmt.Errorf("%w: lab number %q has non-numeric component %q", ErrValidation, s, part)
		}
		values[i] = v
	}

	return LabNumber{Region: values[0], Batch: values[1], Sequence: values[2]}, nil
}

func (n LabNumber) String() string {
	return fmt.Sprintf("%d-%03d-%d", n.Region, n.Batch, n.Sequence)
}

// Compare orders lab numbers by region, then batch, then sequence. It returns
// -1, 0, or 1 in the manner of strings.Compare.
func (n LabNumber) Compare(other LabNumber) int {
	pairs := [3][2]int{
		{n.Region, other.Region},
		{n.Batch, other.Batch},
		{n.Sequence, other.Sequence},
	}
	for _, p := range pairs {
		if p[0] < p[1] {
			return -1
		}
		if p[0] > p[1] {
			return 1
		}
	}
	return 0
}

// Package seed produces a pseudo-randomized demo population of samples.
// The shape is deterministic for a fixed seed and reference time: samples
// arrive in contiguous same-type blocks the way real submissions batch,
// timestamps follow a tiered recency scale, and statuses follow positional
// rules rather than pure randomness so demos and tests are reproducible.
package seed

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/agrolab/sample-engine/internal/catalog"
	"github.com/agrolab/sample-engine/internal/domain"
	"github.com/google/uuid"
)

const (
	// The first recentCount samples are spread over the last day.
	recentCount = 10
	// Indices past midTierEnd fall into the widest days-ago tier.
	midTierEnd = 25

	labRegion    = 1
	labBatch     = 27
	firstLabSeq  = 450
	minBlockSize = 3
	maxBlockSize = 6
)

var demoNames = []string{"Bunker 1", "Bag 4 East", "North Pit", "Second Cutting", ""}

type Generator struct {
	rng  *rand.Rand
	now  time.Time
	mode domain.Mode
	cat  *catalog.Catalog
}

func NewGenerator(mode domain.Mode, seed int64, now time.Time) (*Generator, error) {
	cat, err := catalog.ForMode(mode)
	if err != nil {
		return nil, err
	}

	return &Generator{
		rng:  rand.New(rand.NewSource(seed)),
		now:  now,
		mode: mode,
		cat:  cat,
	}, nil
}

// Samples generates n samples for a farm. Output order is newest first,
// matching how submissions read back from storage.
func (g *Generator) Samples(farmID string, n int) []domain.Sample {
	types := domain.SampleTypes(g.mode)
	packages := g.cat.Packages()
	addOns := g.cat.AddOns()

	samples := make([]domain.Sample, 0, n)

	blockRemaining := 0
	var blockType string
	var blockPackage catalog.TestPackage

	for i := 0; i < n; i++ {
		if blockRemaining == 0 {
			blockRemaining = minBlockSize + g.rng.Intn(maxBlockSize-minBlockSize+1)
			blockType = types[g.rng.Intn(len(types))]
			blockPackage = packages[g.rng.Intn(len(packages))]
		}
		blockRemaining--

		var addOnIDs []string
		if g.rng.Intn(3) == 0 {
			addOnIDs = []string{addOns[g.rng.Intn(len(addOns))].ID}
		}

		createdAt := g.createdAt(i)
		status := g.status(i, createdAt)

		analytes, err := g.cat.Analytes(blockPackage.ID, addOnIDs)
		if err != nil {
			// Generator only selects from the catalog it was built with.
			panic(fmt.Sprintf("seed: catalog self-lookup failed: %v", err))
		}
		completed, pending := splitTests(status, analytes)

		sample := domain.Sample{
			ID:             uuid.NewString(),
			ContainerID:    fmt.Sprintf("B%04d", 1000+i),
			SampleName:     demoNames[i%len(demoNames)],
			FarmID:         farmID,
			Mode:           g.mode,
			SampleType:     blockType,
			PackageID:      blockPackage.ID,
			AddOnIDs:       addOnIDs,
			Status:         status,
			CompletedTests: completed,
			PendingTests:   pending,
			CreatedAt:      createdAt,
			UpdatedAt:      createdAt,
		}

		// Pending samples have not arrived at the lab, so no lab number yet.
		if status != domain.StatusPending {
			sample.LabNumber = domain.LabNumber{
				Region:   labRegion,
				Batch:    labBatch,
				Sequence: firstLabSeq + i,
			}.String()
		}

		samples = append(samples, sample)
	}

	return samples
}

// createdAt assigns the tiered recency scale: the ten most recent samples sit
// hours ago, the next tier one day per index, and the remainder spreads out
// several days per index.
func (g *Generator) createdAt(i int) time.Time {
	switch {
	case i < recentCount:
		return g.now.Add(-time.Duration(2*i+1) * time.Hour)
	case i < midTierEnd:
		daysAgo := i - recentCount + 1
		return g.now.AddDate(0, 0, -daysAgo).Add(-time.Duration(g.rng.Intn(8)) * time.Hour)
	default:
		daysAgo := (midTierEnd - recentCount) + (i-midTierEnd+1)*4
		return g.now.AddDate(0, 0, -daysAgo).Add(-time.Duration(g.rng.Intn(12)) * time.Hour)
	}
}

// status applies the positional rules: the first two indices are always
// processing, the next two pending, every index with i%7 == 5 partial; the
// rest complete once they are older than the pending turnaround window.
func (g *Generator) status(i int, createdAt time.Time) domain.Status {
	switch {
	case i < 2:
		return domain.StatusProcessing
	case i < 4:
		return domain.StatusPending
	case i%7 == 5:
		return domain.StatusPartial
	case g.now.Sub(createdAt) > 3*24*time.Hour:
		return domain.StatusCompleted
	default:
		return domain.StatusPending
	}
}

func splitTests(status domain.Status, analytes []string) (completed []string, pending []string) {
	switch status {
	case domain.StatusCompleted:
		return analytes, nil
	case domain.StatusPartial:
		half := len(analytes) / 2
		if half == 0 {
			half = 1
		}
		return analytes[:half], analytes[half:]
	default:
		return nil, analytes
	}
}

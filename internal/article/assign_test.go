package article

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"
)

// recordingGenerator records every descriptor it is asked to reserve and
// hands out sequential DOIs.
type recordingGenerator struct {
	resources []string
	next      int
}

func (g *recordingGenerator) Reserve(resource string) (string, error) {
	g.resources = append(g.resources, resource)
	g.next++
	return fmt.Sprintf("10.1234/test.%d", g.next), nil
}

func testManuscript() *Manuscript {
	return &Manuscript{
		Work: Work{
			Authors: []Author{
				{GivenName: "Jane", Surname: "Doe", IsCorresponding: true},
				{GivenName: "John", Surname: "Doe"},
			},
		},
		DOI:         "10.1101/manuscript",
		Title:       "A manuscript",
		PreprintDOI: "10.1101/2022.01.01.474000",
		ReviewProcess: []RevisionRound{
			{
				RevisionID: "0",
				Reviews: []Review{
					{RunningNumber: "1"},
					{RunningNumber: "2"},
				},
				AuthorReply: &AuthorReply{
					Work: Work{Authors: []Author{{GivenName: "Jane", Surname: "Doe"}}},
				},
			},
			{
				RevisionID: "1",
				Reviews:    []Review{{RunningNumber: "1"}},
			},
		},
	}
}

func TestAssignDOIs(t *testing.T) {
	gen := &recordingGenerator{}
	m := testManuscript()
	pubDate := time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC)

	art, err := AssignDOIs(m, pubDate, gen, AssignOptions{})
	if err != nil {
		t.Fatalf("AssignDOIs() error = %v", err)
	}

	if art.DOI != m.PreprintDOI {
		t.Errorf("article DOI = %q, want preprint DOI %q", art.DOI, m.PreprintDOI)
	}
	if !art.PublicationDate.Equal(pubDate) {
		t.Errorf("publication date = %v, want %v", art.PublicationDate, pubDate)
	}

	wantResources := []string{
		"10.1101/2022.01.01.474000 - 0 - 1",
		"10.1101/2022.01.01.474000 - 0 - 2",
		"10.1101/2022.01.01.474000 - 0 - author reply",
		"10.1101/2022.01.01.474000 - 1 - 1",
	}
	if !reflect.DeepEqual(gen.resources, wantResources) {
		t.Errorf("descriptors = %v, want %v", gen.resources, wantResources)
	}

	for _, round := range art.ReviewProcess {
		for _, review := range round.Reviews {
			if review.DOI == "" {
				t.Errorf("review %s of round %s has no DOI", review.RunningNumber, round.RevisionID)
			}
		}
		if round.AuthorReply != nil && round.AuthorReply.DOI == "" {
			t.Errorf("author reply of round %s has no DOI", round.RevisionID)
		}
	}

	// The input manuscript must not be mutated.
	if m.ReviewProcess[0].Reviews[0].DOI != "" {
		t.Error("AssignDOIs mutated the input manuscript")
	}
}

func TestAssignDOIsDescriptorStability(t *testing.T) {
	m := testManuscript()
	pubDate := time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC)

	first := &recordingGenerator{}
	if _, err := AssignDOIs(m, pubDate, first, AssignOptions{}); err != nil {
		t.Fatalf("first AssignDOIs() error = %v", err)
	}
	second := &recordingGenerator{next: 100}
	if _, err := AssignDOIs(m, pubDate, second, AssignOptions{}); err != nil {
		t.Fatalf("second AssignDOIs() error = %v", err)
	}

	if !reflect.DeepEqual(first.resources, second.resources) {
		t.Errorf("descriptors differ between runs: %v vs %v", first.resources, second.resources)
	}
}

func TestAssignDOIsPreconditions(t *testing.T) {
	pubDate := time.Now()
	gen := &recordingGenerator{}

	t.Run("no preprint DOI", func(t *testing.T) {
		m := testManuscript()
		m.PreprintDOI = ""
		_, err := AssignDOIs(m, pubDate, gen, AssignOptions{})
		if !errors.Is(err, ErrNoPreprintDOI) {
			t.Errorf("AssignDOIs() error = %v, want ErrNoPreprintDOI", err)
		}
	})

	t.Run("preprint DOI override", func(t *testing.T) {
		m := testManuscript()
		m.PreprintDOI = ""
		art, err := AssignDOIs(m, pubDate, gen, AssignOptions{PreprintDOI: "10.1234/x"})
		if err != nil {
			t.Fatalf("AssignDOIs() error = %v", err)
		}
		if art.DOI != "10.1234/x" {
			t.Errorf("article DOI = %q, want override %q", art.DOI, "10.1234/x")
		}
	})

	t.Run("override wins over embedded DOI", func(t *testing.T) {
		m := testManuscript()
		art, err := AssignDOIs(m, pubDate, gen, AssignOptions{PreprintDOI: "10.1234/override"})
		if err != nil {
			t.Fatalf("AssignDOIs() error = %v", err)
		}
		if art.DOI != "10.1234/override" {
			t.Errorf("article DOI = %q, want %q", art.DOI, "10.1234/override")
		}
	})

	t.Run("nil review process", func(t *testing.T) {
		m := testManuscript()
		m.ReviewProcess = nil
		_, err := AssignDOIs(m, pubDate, gen, AssignOptions{})
		if !errors.Is(err, ErrNoReviews) {
			t.Errorf("AssignDOIs() error = %v, want ErrNoReviews", err)
		}
	})

	t.Run("empty review process", func(t *testing.T) {
		m := testManuscript()
		m.ReviewProcess = []RevisionRound{}
		_, err := AssignDOIs(m, pubDate, gen, AssignOptions{})
		if !errors.Is(err, ErrNoReviews) {
			t.Errorf("AssignDOIs() error = %v, want ErrNoReviews", err)
		}
	})
}

func TestAssignDOIsGeneratorFailure(t *testing.T) {
	failure := errors.New("pool exhausted")
	gen := GeneratorFunc(func(resource string) (string, error) {
		return "", failure
	})

	_, err := AssignDOIs(testManuscript(), time.Now(), gen, AssignOptions{})
	if !errors.Is(err, failure) {
		t.Errorf("AssignDOIs() error = %v, want wrapped %v", err, failure)
	}
}

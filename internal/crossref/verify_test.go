package crossref

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mecatools/peerdoi/internal/article"
	"github.com/mecatools/peerdoi/internal/eeb"
)

// eebStub serves a fixed review process for every DOI lookup.
func eebStub(t *testing.T, numReviews int, hasResponse bool, assignedDOI string) *eeb.Client {
	t.Helper()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var reviews []string
		for i := 0; i < numReviews; i++ {
			reviews = append(reviews, fmt.Sprintf(`{"review_idx": "%d", "doi": "%s"}`, i+1, assignedDOI))
		}
		response := "null"
		if hasResponse {
			response = `{"review_idx": "response", "doi": ""}`
		}
		fmt.Fprintf(w, `[{"doi": "x", "review_process": {"reviews": [%s], "response": %s}}]`,
			strings.Join(reviews, ","), response)
	})
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return eeb.NewClient(eeb.WithBaseURL(server.URL))
}

func generateTestDeposition(t *testing.T) string {
	t.Helper()
	deposition, err := Generate([]article.Article{testArticle()}, testGenerateConfig)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	return deposition
}

func TestVerifyPasses(t *testing.T) {
	deposition := generateTestDeposition(t)
	client := eebStub(t, 2, true, "")

	results, err := Verify(context.Background(), deposition, client)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}

	result := results[0]
	if result.PreprintDOI != "10.1101/2022.01.01.474000" {
		t.Errorf("PreprintDOI = %q", result.PreprintDOI)
	}
	if !result.OK() {
		t.Errorf("verification failed: %s", result.Error)
	}
	if !result.Checked || !result.AllReviewsPresent || !result.AuthorReplyMatches || !result.NoDOIsAssigned {
		t.Errorf("result = %+v, want all checks passing", result)
	}
}

func TestVerifyReviewCountMismatch(t *testing.T) {
	deposition := generateTestDeposition(t)
	client := eebStub(t, 3, true, "")

	results, err := Verify(context.Background(), deposition, client)
	if err != nil {
		t.Fatal(err)
	}
	result := results[0]
	if result.OK() {
		t.Fatal("verification should fail on review count mismatch")
	}
	if !result.Checked || result.AllReviewsPresent {
		t.Errorf("result = %+v", result)
	}
	if !result.NoDOIsAssigned {
		t.Errorf("no DOIs are assigned, result = %+v", result)
	}
}

func TestVerifyMissingAuthorReply(t *testing.T) {
	deposition := generateTestDeposition(t)
	client := eebStub(t, 2, false, "")

	results, err := Verify(context.Background(), deposition, client)
	if err != nil {
		t.Fatal(err)
	}
	if results[0].OK() || results[0].AuthorReplyMatches {
		t.Errorf("result = %+v, want author reply mismatch", results[0])
	}
}

func TestVerifyDOIsAlreadyAssigned(t *testing.T) {
	deposition := generateTestDeposition(t)
	client := eebStub(t, 2, true, "10.15252/rc.2021999999")

	results, err := Verify(context.Background(), deposition, client)
	if err != nil {
		t.Fatal(err)
	}
	result := results[0]
	if result.OK() {
		t.Fatal("verification should fail when DOIs are assigned")
	}
	if !result.Checked || result.NoDOIsAssigned {
		t.Errorf("result = %+v, want NoDOIsAssigned false", result)
	}
}

func TestVerifyUnknownPreprint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer server.Close()
	client := eeb.NewClient(eeb.WithBaseURL(server.URL))

	results, err := Verify(context.Background(), generateTestDeposition(t), client)
	if err != nil {
		t.Fatal(err)
	}
	result := results[0]
	if result.OK() {
		t.Fatal("verification should fail for an unknown preprint")
	}
	if result.Checked {
		t.Errorf("result = %+v, want Checked false for a failed lookup", result)
	}
}

func TestVerifyGroupsByPreprint(t *testing.T) {
	first := testArticle()
	second := testArticle()
	second.DOI = "10.1101/2022.02.02.480000"
	second.ReviewProcess = []article.RevisionRound{
		{RevisionID: "0", Reviews: []article.Review{{RunningNumber: "1", DOI: "10.15252/rc.2022000009"}}},
	}

	deposition, err := Generate([]article.Article{first, second}, testGenerateConfig)
	if err != nil {
		t.Fatal(err)
	}

	groups, order, err := groupByPreprintDOI(deposition)
	if err != nil {
		t.Fatal(err)
	}
	if len(order) != 2 || order[0] != first.DOI || order[1] != second.DOI {
		t.Fatalf("order = %v", order)
	}
	if groups[first.DOI].numReviews != 2 || !groups[first.DOI].hasAuthorReply {
		t.Errorf("first group = %+v", groups[first.DOI])
	}
	if groups[second.DOI].numReviews != 1 || groups[second.DOI].hasAuthorReply {
		t.Errorf("second group = %+v", groups[second.DOI])
	}
}

func TestVerifyRejectsMalformedDeposition(t *testing.T) {
	client := eeb.NewClient()
	if _, err := Verify(context.Background(), "not xml at all <", client); err == nil {
		t.Error("Verify() should fail on malformed XML")
	}
}

// keep the deterministic clock from deposition_test.go honest
func TestGenerateBatchIDChanges(t *testing.T) {
	timeNow = func() time.Time { return time.Unix(0, 1) }
	first, err := Generate([]article.Article{testArticle()}, testGenerateConfig)
	if err != nil {
		t.Fatal(err)
	}
	timeNow = func() time.Time { return time.Unix(0, 2) }
	second, err := Generate([]article.Article{testArticle()}, testGenerateConfig)
	timeNow = time.Now
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Error("batch IDs should differ between runs")
	}
}

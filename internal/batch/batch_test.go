package batch

import (
	"archive/zip"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mecatools/peerdoi/internal/article"
	"github.com/mecatools/peerdoi/internal/crossref"
	"github.com/mecatools/peerdoi/internal/eeb"
	"github.com/mecatools/peerdoi/internal/store"
)

const testManifest = `<?xml version="1.0" encoding="UTF-8"?>
<manifest xmlns="https://manuscriptexchange.org" version="1.0">
  <item id="1" type="article-metadata">
    <instance href="article.xml" media-type="application/xml"/>
  </item>
  <item id="2" type="review-metadata">
    <instance href="reviews.xml" media-type="application/xml"/>
  </item>
</manifest>`

const testManifestNoReviews = `<?xml version="1.0" encoding="UTF-8"?>
<manifest xmlns="https://manuscriptexchange.org" version="1.0">
  <item id="1" type="article-metadata">
    <instance href="article.xml" media-type="application/xml"/>
  </item>
</manifest>`

const testReviews = `<?xml version="1.0" encoding="UTF-8"?>
<review-group>
  <version revision="0">
    <review></review>
  </version>
</review-group>`

func testArticleXML(preprintDOI string) string {
	meta := ""
	if preprintDOI != "" {
		meta = fmt.Sprintf(`<custom-meta-group>
        <custom-meta>
          <meta-name>Pre-existing BioRxiv Preprint DOI</meta-name>
          <meta-value>%s</meta-value>
        </custom-meta>
      </custom-meta-group>`, preprintDOI)
	}
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<article>
  <front>
    <article-meta>
      <article-id pub-id-type="doi">10.1101/manuscript.123</article-id>
      <title-group>
        <article-title>A title</article-title>
      </title-group>
      %s
    </article-meta>
  </front>
</article>`, meta)
}

func writeZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	zw := zip.NewWriter(f)
	for name, content := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
}

func openTestDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "batch.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestParse(t *testing.T) {
	dir := t.TempDir()
	db := openTestDB(t)

	writeZip(t, filepath.Join(dir, "valid.zip"), map[string]string{
		"manifest.xml": testManifest,
		"article.xml":  testArticleXML("10.1101/preprint.1"),
		"reviews.xml":  testReviews,
	})
	writeZip(t, filepath.Join(dir, "no-doi.zip"), map[string]string{
		"manifest.xml": testManifest,
		"article.xml":  testArticleXML(""),
		"reviews.xml":  testReviews,
	})
	writeZip(t, filepath.Join(dir, "no-reviews.zip"), map[string]string{
		"manifest.xml": testManifestNoReviews,
		"article.xml":  testArticleXML("10.1101/preprint.2"),
	})
	garbage := filepath.Join(dir, "garbage.zip")
	if err := os.WriteFile(garbage, []byte("not a zip"), 0644); err != nil {
		t.Fatal(err)
	}

	files := []string{
		filepath.Join(dir, "valid.zip"),
		filepath.Join(dir, "no-doi.zip"),
		filepath.Join(dir, "no-reviews.zip"),
		garbage,
	}
	parsed, err := Parse(files, db, ParseOptions{})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(parsed) != 4 {
		t.Fatalf("got %d parsed files, want 4", len(parsed))
	}

	// results come back sorted by path
	byName := map[string]*store.ParsedFile{}
	for _, p := range parsed {
		byName[filepath.Base(p.Path)] = p
		if p.ID == 0 {
			t.Errorf("%s: ID not backfilled", p.Path)
		}
	}
	wantStatus := map[string]store.ParsedStatus{
		"valid.zip":      store.StatusValid,
		"no-doi.zip":     store.StatusNoDOI,
		"no-reviews.zip": store.StatusNoReviews,
		"garbage.zip":    store.StatusInvalid,
	}
	for name, want := range wantStatus {
		if byName[name].Status != want {
			t.Errorf("%s: status = %q, want %q", name, byName[name].Status, want)
		}
	}
	if byName["valid.zip"].DOI != "10.1101/preprint.1" {
		t.Errorf("valid.zip DOI = %q", byName["valid.zip"].DOI)
	}
	if byName["garbage.zip"].Manuscript != nil {
		t.Error("garbage.zip should have no manuscript")
	}
}

func TestParseMarksDuplicates(t *testing.T) {
	dir := t.TempDir()
	db := openTestDB(t)

	entries := map[string]string{
		"manifest.xml": testManifest,
		"article.xml":  testArticleXML("10.1101/preprint.1"),
		"reviews.xml":  testReviews,
	}
	first := filepath.Join(dir, "first.zip")
	second := filepath.Join(dir, "second.zip")
	writeZip(t, first, entries)
	writeZip(t, second, entries)

	if _, err := Parse([]string{first}, db, ParseOptions{}); err != nil {
		t.Fatal(err)
	}
	parsed, err := Parse([]string{second}, db, ParseOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if parsed[0].Status != store.StatusDuplicate {
		t.Errorf("status = %q, want duplicate", parsed[0].Status)
	}
}

// depositFixture inserts one valid parsed file and stubs the EEB and
// Crossref endpoints.
type depositFixture struct {
	db       *store.DB
	file     *store.ParsedFile
	depositor Depositor
	crossrefHits *int
}

func newDepositFixture(t *testing.T, eebReviews int, eebHasReply bool, eebDOI string, crossrefStatus int) *depositFixture {
	t.Helper()
	db := openTestDB(t)

	manuscript := &article.Manuscript{
		Work:        article.Work{Authors: []article.Author{{GivenName: "Jane", Surname: "Doe"}}},
		DOI:         "10.1101/manuscript.123",
		Title:       "A title",
		PreprintDOI: "10.1101/preprint.1",
		ReviewProcess: []article.RevisionRound{
			{
				RevisionID:  "0",
				Reviews:     []article.Review{{RunningNumber: "1"}, {RunningNumber: "2"}},
				AuthorReply: &article.AuthorReply{Work: article.Work{Authors: []article.Author{{Surname: "Doe"}}}},
			},
		},
	}
	file := &store.ParsedFile{
		Path:       "valid.zip",
		ReceivedAt: time.Date(2022, 4, 15, 0, 0, 0, 0, time.UTC),
		Manuscript: manuscript,
		DOI:        manuscript.PreprintDOI,
		Status:     store.StatusValid,
	}
	if err := db.InsertParsedFiles([]*store.ParsedFile{file}); err != nil {
		t.Fatal(err)
	}

	eebServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var reviews []string
		for i := 0; i < eebReviews; i++ {
			reviews = append(reviews, fmt.Sprintf(`{"review_idx": "%d", "doi": "%s"}`, i+1, eebDOI))
		}
		response := "null"
		if eebHasReply {
			response = fmt.Sprintf(`{"review_idx": "response", "doi": "%s"}`, eebDOI)
		}
		fmt.Fprintf(w, `[{"doi": "x", "review_process": {"reviews": [%s], "response": %s}}]`,
			strings.Join(reviews, ","), response)
	}))
	t.Cleanup(eebServer.Close)

	hits := 0
	crossrefServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if crossrefStatus >= 400 {
			http.Error(w, "rejected", crossrefStatus)
			return
		}
		w.Write([]byte("SUCCESS"))
	}))
	t.Cleanup(crossrefServer.Close)

	counter := 0
	generator := article.GeneratorFunc(func(resource string) (string, error) {
		counter++
		return fmt.Sprintf("10.15252/rc.2022%06d", counter), nil
	})

	return &depositFixture{
		db:   db,
		file: file,
		depositor: Depositor{
			DB:        db,
			Generator: generator,
			EEB:       eeb.NewClient(eeb.WithBaseURL(eebServer.URL)),
			Crossref:  crossref.NewClient(crossrefServer.URL, "user", "pass"),
			Config: crossref.GenerateConfig{
				DepositorName:                  "Depositor",
				DepositorEmail:                 "d@example.org",
				Registrant:                     "Registrant",
				InstitutionName:                "Institution",
				ReviewTitleTemplate:            "Review $review_number of $article_title",
				ReviewResourceURLTemplate:      "https://example.org/$article_doi/$revision/$running_number",
				AuthorReplyTitleTemplate:       "Reply to reviews of $article_title",
				AuthorReplyResourceURLTemplate: "https://example.org/$article_doi/$revision/reply",
			},
		},
		crossrefHits: &hits,
	}
}

func TestDepositSucceeds(t *testing.T) {
	fx := newDepositFixture(t, 2, true, "", http.StatusOK)

	attempts, deposited, err := Deposit(context.Background(), []*store.ParsedFile{fx.file}, fx.depositor)
	if err != nil {
		t.Fatalf("Deposit() error = %v", err)
	}
	if len(attempts) != 1 || attempts[0].Status != store.AttemptSucceeded {
		t.Fatalf("attempts = %+v", attempts)
	}
	if len(deposited) != 1 || deposited[0].DOI != "10.1101/preprint.1" {
		t.Errorf("deposited = %+v", deposited)
	}
	if *fx.crossrefHits != 1 {
		t.Errorf("crossref hit %d times, want 1", *fx.crossrefHits)
	}

	// the attempt must be recorded
	recorded, err := fx.db.DepositionAttemptsForFile(fx.file.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(recorded) != 1 || recorded[0].Status != store.AttemptSucceeded {
		t.Errorf("recorded attempts = %+v", recorded)
	}
	if recorded[0].Deposition == "" {
		t.Error("deposition XML not recorded")
	}
}

func TestDepositDryRun(t *testing.T) {
	fx := newDepositFixture(t, 2, true, "", http.StatusOK)
	fx.depositor.DryRun = true

	attempts, deposited, err := Deposit(context.Background(), []*store.ParsedFile{fx.file}, fx.depositor)
	if err != nil {
		t.Fatal(err)
	}
	if attempts[0].Status != store.AttemptSucceeded {
		t.Errorf("status = %q", attempts[0].Status)
	}
	if len(deposited) != 0 {
		t.Errorf("dry run deposited %d articles", len(deposited))
	}
	if *fx.crossrefHits != 0 {
		t.Errorf("dry run hit crossref %d times", *fx.crossrefHits)
	}

	recorded, err := fx.db.DepositionAttemptsForFile(fx.file.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(recorded) != 0 {
		t.Errorf("dry run recorded %d attempts", len(recorded))
	}
}

func TestDepositVerificationFailed(t *testing.T) {
	// platform hosts 3 reviews, deposition registers 2
	fx := newDepositFixture(t, 3, true, "", http.StatusOK)

	attempts, deposited, err := Deposit(context.Background(), []*store.ParsedFile{fx.file}, fx.depositor)
	if err != nil {
		t.Fatal(err)
	}
	if attempts[0].Status != store.AttemptVerificationFailed {
		t.Errorf("status = %q, want verification-failed", attempts[0].Status)
	}
	if len(deposited) != 0 || *fx.crossrefHits != 0 {
		t.Error("failed verification must not reach crossref")
	}
}

func TestDepositDoisAlreadyPresent(t *testing.T) {
	fx := newDepositFixture(t, 2, true, "10.15252/rc.2021999999", http.StatusOK)

	attempts, _, err := Deposit(context.Background(), []*store.ParsedFile{fx.file}, fx.depositor)
	if err != nil {
		t.Fatal(err)
	}
	if attempts[0].Status != store.AttemptDoisAlreadyPresent {
		t.Errorf("status = %q, want dois-already-present", attempts[0].Status)
	}
}

func TestDepositCrossrefFailure(t *testing.T) {
	fx := newDepositFixture(t, 2, true, "", http.StatusInternalServerError)

	attempts, deposited, err := Deposit(context.Background(), []*store.ParsedFile{fx.file}, fx.depositor)
	if err != nil {
		t.Fatal(err)
	}
	if attempts[0].Status != store.AttemptFailed {
		t.Errorf("status = %q, want failed", attempts[0].Status)
	}
	if len(deposited) != 0 {
		t.Error("failed deposition must not report articles")
	}
}

func TestDepositGenerationFailure(t *testing.T) {
	fx := newDepositFixture(t, 2, true, "", http.StatusOK)
	fx.depositor.Generator = article.GeneratorFunc(func(string) (string, error) {
		return "", fmt.Errorf("pool exhausted")
	})

	attempts, _, err := Deposit(context.Background(), []*store.ParsedFile{fx.file}, fx.depositor)
	if err != nil {
		t.Fatal(err)
	}
	if attempts[0].Status != store.AttemptGenerationFailed {
		t.Errorf("status = %q, want generation-failed", attempts[0].Status)
	}
}

func TestDepositRejectsUnreadyFiles(t *testing.T) {
	fx := newDepositFixture(t, 2, true, "", http.StatusOK)
	unready := &store.ParsedFile{ID: 99, Path: "invalid.zip", Status: store.StatusInvalid}

	if _, _, err := Deposit(context.Background(), []*store.ParsedFile{unready}, fx.depositor); err == nil {
		t.Error("Deposit() should reject files that are not ready")
	}
}

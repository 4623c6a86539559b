package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/aluiziolira/go-nextbook/models"
	"github.com/aluiziolira/go-nextbook/pipeline"
	"github.com/aluiziolira/go-nextbook/ranker"
)

const testCatalog = `bookID,title,authors,average_rating,isbn,isbn13,language_code,  num_pages,ratings_count,text_reviews_count,publication_date,publisher
1,Dune,Frank Herbert,4.5,0441013597,9780441013593,eng,528,700000,19000,9/1/2005,Ace Books
2,Dune Messiah,Frank Herbert,4.0,0593098234,9780593098233,eng,256,120000,5000,7/4/2019,Ace
3,Foundation,Isaac Asimov,4.3,0553293354,9780553293357,eng,255,400000,9000,6/1/1991,Spectra
4,,Nobody,3.0,,,eng,100,1,0,1/1/2000,Nowhere
`

func writeCatalog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "books.csv")
	if err := os.WriteFile(path, []byte(testCatalog), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRecommendJSON(t *testing.T) {
	path := writeCatalog(t)
	out, err := execute(t, "recommend", "--catalog", path, "--n", "2", "--format", "json", "Dune")
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}

	var recs []models.Recommendation
	if err := json.Unmarshal([]byte(out), &recs); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	if len(recs) != 2 || recs[0].Title != "Dune Messiah" || recs[1].Title != "Foundation" {
		t.Fatalf("unexpected recommendations: %+v", recs)
	}
}

func TestRecommendFormatIgnoresCase(t *testing.T) {
	path := writeCatalog(t)
	out, err := execute(t, "recommend", "--catalog", path, "--n", "1", "--format", "JSON", "Dune")
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}

	var recs []models.Recommendation
	if err := json.Unmarshal([]byte(out), &recs); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	if len(recs) != 1 || recs[0].Title != "Dune Messiah" {
		t.Fatalf("unexpected recommendations: %+v", recs)
	}
}

func TestPrintRecommendationsEmpty(t *testing.T) {
	tests := []struct {
		name        string
		catalogSize int
		want        string
		notWant     string
	}{
		{name: "empty catalog", catalogSize: 0, want: "catalog has no books"},
		{name: "only self matches", catalogSize: 2, want: `No recommendations for "Dune" by title.`, notWant: "catalog has no books"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			if err := printRecommendations(&out, "Dune", ranker.ByTitle, nil, tt.catalogSize); err != nil {
				t.Fatalf("print: %v", err)
			}
			if !strings.Contains(out.String(), tt.want) {
				t.Fatalf("output %q missing %q", out.String(), tt.want)
			}
			if tt.notWant != "" && strings.Contains(out.String(), tt.notWant) {
				t.Fatalf("output %q should not contain %q", out.String(), tt.notWant)
			}
		})
	}
}

func TestRecommendByAuthorText(t *testing.T) {
	path := writeCatalog(t)
	out, err := execute(t, "recommend", "--catalog", path, "--by", "author", "Frank", "Herbert")
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if !strings.Contains(out, `Books similar to "Frank Herbert" by author`) {
		t.Fatalf("missing heading in %q", out)
	}
	dune := strings.Index(out, "Dune ")
	messiah := strings.Index(out, "Dune Messiah")
	foundation := strings.Index(out, "Foundation")
	if dune < 0 || messiah < 0 || foundation < 0 || !(dune < messiah && messiah < foundation) {
		t.Fatalf("unexpected order in %q", out)
	}
}

func TestRecommendRejectsBadArguments(t *testing.T) {
	path := writeCatalog(t)
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "unknown mode", args: []string{"recommend", "--catalog", path, "--by", "genre", "Dune"}, want: "unknown mode"},
		{name: "n above max", args: []string{"recommend", "--catalog", path, "--n", "11", "Dune"}, want: "--n must be between 1 and 10"},
		{name: "bad format", args: []string{"recommend", "--catalog", path, "--format", "xml", "Dune"}, want: "unsupported output format"},
		{name: "missing catalog", args: []string{"recommend", "--catalog", filepath.Join(t.TempDir(), "none.csv"), "Dune"}, want: "load catalog"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestStatsYAML(t *testing.T) {
	path := writeCatalog(t)
	out, err := execute(t, "stats", "--catalog", path, "--top", "1", "--format", "yaml")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}

	var report statsReport
	if err := yaml.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode yaml %q: %v", out, err)
	}
	if report.Books != 3 || report.Load.Rows != 4 || report.Load.Dropped["missing_title"] != 1 {
		t.Fatalf("unexpected report: %+v load=%+v", report, report.Load)
	}
	if len(report.TopAuthors) != 1 || report.TopAuthors[0].Label != "Frank Herbert" || report.TopAuthors[0].Count != 2 {
		t.Fatalf("top authors = %+v", report.TopAuthors)
	}
	for _, w := range report.TitleWords {
		if w.Text == "dune" && w.Weight == 2 {
			return
		}
	}
	t.Fatalf("expected dune in title words: %+v", report.TitleWords)
}

func TestCreateWriter(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		format  string
		wantErr bool
	}{
		{format: "csv"},
		{format: "json"},
		{format: "dual"},
		{format: "parquet"},
		{format: "xml", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			w, err := createWriter(tt.format, filepath.Join(dir, tt.format, "books.csv"))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("create writer: %v", err)
			}
			if err := w.Close(); err != nil {
				t.Fatalf("close writer: %v", err)
			}
		})
	}

	w, err := createWriter("dual", filepath.Join(dir, "pair", "books.csv"))
	if err != nil {
		t.Fatalf("create dual writer: %v", err)
	}
	if _, ok := w.(*pipeline.DualWriter); !ok {
		t.Fatalf("dual format gave %T", w)
	}
	w.Close()
	if _, err := os.Stat(filepath.Join(dir, "pair", "books.jsonl")); err != nil {
		t.Fatalf("expected jsonl companion file: %v", err)
	}
}

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/happyhackingspace/openie"
)

const corpus = `ENT p=ENT regex=Aa
REL p=VBD w=was
REL p=VBN w=born
REL p=IN w=in
ENT p=ENT regex=Aa

ENT p=ENT regex=Aa
REL p=VBD w=acquired
ENT p=ENT regex=AaAa
`

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	path := filepath.Join(t.TempDir(), "train.txt")
	if err := os.WriteFile(path, []byte(corpus), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := openie.Train(path, &openie.TrainConfig{Options: map[string]string{"l1prior": "0"}})
	if err != nil {
		t.Fatal(err)
	}
	return New(m, openie.DefaultLabelRoles())
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestModelRoute(t *testing.T) {
	s := newTestServer(t)
	w := do(t, s.Routes(), http.MethodGet, "/api/model", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	var resp ModelResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Kind != "crf" || !reflect.DeepEqual(resp.Labels, []string{"ENT", "REL"}) {
		t.Errorf("resp = %+v", resp)
	}
	if resp.ID != s.model.Params().ID.String() || resp.Features == 0 || resp.Parameters == 0 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestTagRoute(t *testing.T) {
	s := newTestServer(t)
	h := s.Routes()

	w := do(t, h, http.MethodPost, "/api/tag", TagRequest{
		Tokens:    [][]string{{"p=ENT"}, {"w=was", "p=VBD"}, {"p=ENT", "regex=Aa"}},
		Marginals: true,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	var resp TagResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(resp.Labels, []string{"ENT", "REL", "ENT"}) {
		t.Errorf("labels = %v", resp.Labels)
	}
	if len(resp.Marginals) != 3 {
		t.Fatalf("marginals = %v", resp.Marginals)
	}
	for i, row := range resp.Marginals {
		if math.Abs(row[0]+row[1]-1) > 1e-9 {
			t.Errorf("row %d sums to %v", i, row[0]+row[1])
		}
	}

	w = do(t, h, http.MethodPost, "/api/tag", TagRequest{
		Features: []map[string]any{{"p": "ENT"}, {"w": "acquired"}},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	resp = TagResponse{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(resp.Labels, []string{"ENT", "REL"}) || resp.Marginals != nil {
		t.Errorf("dict resp = %+v", resp)
	}

	w = do(t, h, http.MethodPost, "/api/tag", TagRequest{
		Tokens:   [][]string{{"p=ENT"}},
		Features: []map[string]any{{"p": "ENT"}},
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("mixed input status = %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/tag", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad json status = %d", rec.Code)
	}
}

func TestExtractRoute(t *testing.T) {
	s := newTestServer(t)
	h := s.Routes()

	w := do(t, h, http.MethodPost, "/api/extract", ExtractRequest{
		Tagged: []string{
			"Curie/NNP/B-NP was/VBD/B-VP born/VBN/I-VP in/IN/B-PP Paris/NNP/B-NP ././O",
			"",
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	var resp ExtractResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	want := []openie.Tuple{{Arg1: "Curie", Rel: "was born in", Arg2: "Paris"}}
	if !reflect.DeepEqual(resp.Tuples, want) {
		t.Errorf("tuples = %+v", resp.Tuples)
	}

	w = do(t, h, http.MethodPost, "/api/extract", ExtractRequest{Text: "nothing to see here"})
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte(`"tuples":[]`)) {
		t.Errorf("empty extraction = %d %s", w.Code, w.Body.String())
	}

	w = do(t, h, http.MethodPost, "/api/extract", ExtractRequest{Tagged: []string{"bad"}})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad line status = %d", w.Code)
	}
}

func TestServe(t *testing.T) {
	s := newTestServer(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/api/model")
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

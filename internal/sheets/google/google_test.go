package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	goption "google.golang.org/api/option"
)

// fakeSheets records the calls the client makes against the Sheets REST API.
type fakeSheets struct {
	mu       sync.Mutex
	tabs     []string
	calls    []string
	lastRows [][]any
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(path, "/v4/spreadsheets/sheet-1"):
		f.calls = append(f.calls, "get")
		sheets := make([]map[string]any, 0, len(f.tabs))
		for _, tab := range f.tabs {
			sheets = append(sheets, map[string]any{"properties": map[string]any{"title": tab}})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": "sheet-1", "sheets": sheets})
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":batchUpdate"):
		f.calls = append(f.calls, "addSheet")
		var req struct {
			Requests []struct {
				AddSheet struct {
					Properties struct {
						Title string `json:"title"`
					} `json:"properties"`
				} `json:"addSheet"`
			} `json:"requests"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		for _, rq := range req.Requests {
			f.tabs = append(f.tabs, rq.AddSheet.Properties.Title)
		}
		_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-1"}`))
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":clear"):
		f.calls = append(f.calls, "clear")
		_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-1"}`))
	case r.Method == http.MethodPut && strings.Contains(path, "/values/"):
		f.calls = append(f.calls, "update")
		if got := r.URL.Query().Get("valueInputOption"); got != "USER_ENTERED" {
			http.Error(w, `{"error":{"code":400,"message":"bad valueInputOption"}}`, http.StatusBadRequest)
			return
		}
		var vr struct {
			Values [][]any `json:"values"`
		}
		_ = json.NewDecoder(r.Body).Decode(&vr)
		f.lastRows = vr.Values
		_ = json.NewEncoder(w).Encode(map[string]any{"updatedRows": len(vr.Values)})
	default:
		http.Error(w, `{"error":{"code":404,"message":"not found"}}`, http.StatusNotFound)
	}
}

func newTestClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := NewWithOptions(context.Background(), "sheet-1",
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()),
		goption.WithoutAuthentication())
	if err != nil {
		t.Fatalf("NewWithOptions: %v", err)
	}
	return c
}

func TestWriteLedgerCreatesMissingTab(t *testing.T) {
	fake := &fakeSheets{tabs: []string{"Sheet1"}}
	c := newTestClient(t, fake)

	rows := [][]any{{"Data", "Descrição"}, {"2024-03-10", "Mercado"}}
	if err := c.WriteLedger(context.Background(), "Financas ana@example.com", rows); err != nil {
		t.Fatalf("WriteLedger: %v", err)
	}

	want := []string{"get", "addSheet", "clear", "update"}
	if strings.Join(fake.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("calls = %v, want %v", fake.calls, want)
	}
	if len(fake.tabs) != 2 || fake.tabs[1] != "Financas ana@example.com" {
		t.Fatalf("tabs = %v", fake.tabs)
	}
	if len(fake.lastRows) != 2 || fake.lastRows[1][1] != "Mercado" {
		t.Fatalf("rows written = %v", fake.lastRows)
	}
}

func TestWriteLedgerReusesExistingTab(t *testing.T) {
	fake := &fakeSheets{tabs: []string{"Financas u1"}}
	c := newTestClient(t, fake)

	if err := c.WriteLedger(context.Background(), "Financas u1", [][]any{{"x"}}); err != nil {
		t.Fatalf("WriteLedger: %v", err)
	}
	for _, call := range fake.calls {
		if call == "addSheet" {
			t.Fatalf("existing tab must not be added again: %v", fake.calls)
		}
	}
}

func TestWriteLedgerRejectsEmptyTab(t *testing.T) {
	c := newTestClient(t, &fakeSheets{})
	if err := c.WriteLedger(context.Background(), "  ", nil); err == nil {
		t.Fatal("expected error for empty tab")
	}
}

func TestWriteLedgerUninitialized(t *testing.T) {
	c := &Client{spreadsheetID: "test"}
	if err := c.WriteLedger(context.Background(), "tab", nil); err == nil {
		t.Fatal("expected error with nil service")
	}
}

func TestNewWithOptionsMissingSpreadsheetID(t *testing.T) {
	_, err := NewWithOptions(context.Background(), " ", goption.WithoutAuthentication())
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("err = %v", err)
	}
}

func TestLoadCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	ctx := context.Background()

	got, err := loadCredentials(ctx, Credentials{JSON: `{"type":"service_account"}`, File: "/ignored"})
	if err != nil || string(got) != `{"type":"service_account"}` {
		t.Fatalf("inline JSON: got %q err %v", got, err)
	}

	path := filepath.Join(t.TempDir(), "sa.json")
	if err := os.WriteFile(path, []byte(`{"from":"file"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	got, err = loadCredentials(ctx, Credentials{File: path})
	if err != nil || string(got) != `{"from":"file"}` {
		t.Fatalf("file: got %q err %v", got, err)
	}

	if _, err := loadCredentials(ctx, Credentials{File: filepath.Join(t.TempDir(), "missing.json")}); err == nil {
		t.Fatal("expected error for missing file")
	}
	if _, err := loadCredentials(ctx, Credentials{}); err == nil {
		t.Fatal("expected error without credentials")
	}

	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", path)
	if got, err := loadCredentials(ctx, Credentials{}); err != nil || string(got) != `{"from":"file"}` {
		t.Fatalf("ADC fallback: got %q err %v", got, err)
	}
}

func TestQuoteTab(t *testing.T) {
	tests := map[string]string{
		"Financas u1":  "'Financas u1'",
		"Ana's ledger": "'Ana''s ledger'",
	}
	for in, want := range tests {
		if got := quoteTab(in); got != want {
			t.Errorf("quoteTab(%q) = %q, want %q", in, got, want)
		}
	}
}

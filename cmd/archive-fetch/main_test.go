// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// End-to-end tests: listing → filters → downloads through the CLI, against
// a mock archive.org serving both the search and download endpoints.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const demoSearchJSON = `{"response":{"docs":[` +
	`{"identifier":"item-1999-01-01"},{"identifier":"item-1900-01-01"},{"identifier":"item-2020-05-05"}]}}`

const fakePDFContent = "%PDF-1.4 fake"

type mockArchive struct {
	*httptest.Server

	mu        sync.Mutex
	searches  int
	downloads []string
}

func newMockArchive(t *testing.T) *mockArchive {
	t.Helper()
	m := &mockArchive{}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		defer m.mu.Unlock()
		switch {
		case r.URL.Path == "/advancedsearch.php":
			m.searches++
			if r.URL.Query().Get("q") != "collection:demo" {
				http.Error(w, "unknown collection", http.StatusBadRequest)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, demoSearchJSON)
		case strings.HasPrefix(r.URL.Path, "/download/"):
			m.downloads = append(m.downloads, r.URL.Path)
			w.Header().Set("Content-Type", "application/pdf")
			fmt.Fprint(w, fakePDFContent)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(m.Close)
	return m
}

func (m *mockArchive) counts() (int, []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.searches, append([]string(nil), m.downloads...)
}

// execute runs the CLI with args plus the mock endpoints and temp dirs.
func execute(t *testing.T, m *mockArchive, dir string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	base := []string{
		"--search-url", m.URL + "/advancedsearch.php",
		"--download-url", m.URL + "/download",
		"--output-dir", dir,
		"--cache-dir", dir,
		"--secrets-dir", filepath.Join(dir, ".secrets"),
		"--delay", "0",
		"--no-progress",
	}
	cmd.SetArgs(append(args, base...))
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestDemoScenario(t *testing.T) {
	m := newMockArchive(t)
	dir := t.TempDir()

	out, _, err := execute(t, m, dir, "demo")
	require.NoError(t, err)

	searches, downloads := m.counts()
	assert.Equal(t, 1, searches)
	assert.Equal(t, []string{
		"/download/item-1999-01-01/item-1999-01-01.pdf",
		"/download/item-2020-05-05/item-2020-05-05.pdf",
	}, downloads)

	cache, err := os.ReadFile(filepath.Join(dir, "demo.json"))
	require.NoError(t, err)
	assert.Equal(t, demoSearchJSON, string(cache))

	assert.FileExists(t, filepath.Join(dir, "item-1999-01-01.pdf"))
	assert.FileExists(t, filepath.Join(dir, "item-2020-05-05.pdf"))
	assert.NoFileExists(t, filepath.Join(dir, "item-1900-01-01.pdf"))
	assert.Contains(t, out, "item-1900-01-01.pdf: too old!")
	assert.Contains(t, out, "Summary: 2 downloaded, 1 skipped")
}

func TestDemoScenarioRerunSkipsExisting(t *testing.T) {
	m := newMockArchive(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "demo.json"), []byte(demoSearchJSON), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "item-1999-01-01.pdf"), []byte(fakePDFContent), 0o644))

	out, _, err := execute(t, m, dir, "demo")
	require.NoError(t, err)

	searches, downloads := m.counts()
	assert.Equal(t, 0, searches, "cached listing must not hit the network")
	assert.Equal(t, []string{"/download/item-2020-05-05/item-2020-05-05.pdf"}, downloads)
	assert.Contains(t, out, "item-1999-01-01.pdf: already exists!")
	assert.Contains(t, out, "Using cached index:")
}

func TestListingFailureEndsRunWithoutDownloads(t *testing.T) {
	m := newMockArchive(t)
	dir := t.TempDir()

	_, _, err := execute(t, m, dir, "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetching index for nope")

	_, downloads := m.counts()
	assert.Empty(t, downloads)
	assert.NoFileExists(t, filepath.Join(dir, "nope.json"))
}

func TestRequiresExactlyOneCollection(t *testing.T) {
	m := newMockArchive(t)
	dir := t.TempDir()

	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs([]string{})
	assert.Error(t, cmd.Execute())

	_, _, err := execute(t, m, dir, "a", "b")
	assert.Error(t, err)
}

func TestNegativeDelayRejected(t *testing.T) {
	m := newMockArchive(t)
	_, _, err := execute(t, m, t.TempDir(), "demo", "--delay", "-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--delay")
}

func TestLedgerMetricsAndHistory(t *testing.T) {
	m := newMockArchive(t)
	dir := t.TempDir()
	ledgerPath := filepath.Join(dir, "ledger.db")
	metricsPath := filepath.Join(dir, "archive_fetch.prom")

	_, _, err := execute(t, m, dir, "demo", "--ledger", ledgerPath, "--metrics-file", metricsPath)
	require.NoError(t, err)

	prom, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `archive_fetch_items_total{collection="demo",outcome="downloaded"} 2`)
	assert.Contains(t, string(prom), `archive_fetch_items_total{collection="demo",outcome="skipped-too-old"} 1`)

	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs([]string{"history", "--ledger", ledgerPath, "--format", "json",
		"--secrets-dir", filepath.Join(dir, ".secrets")})
	require.NoError(t, cmd.Execute())

	var items []map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &items))
	require.Len(t, items, 3)
	assert.Equal(t, "item-2020-05-05", items[0]["identifier"])
	assert.Equal(t, "skipped-too-old", items[1]["outcome"])

	out.Reset()
	cmd = newRootCmd(&out, &errOut)
	cmd.SetArgs([]string{"history", "--ledger", ledgerPath, "--collection", "demo",
		"--secrets-dir", filepath.Join(dir, ".secrets")})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "totals: 2 downloaded, 1 too old, 0 already existed, 0 failed")
}

func TestHistoryWithoutLedger(t *testing.T) {
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs([]string{"history", "--secrets-dir", filepath.Join(t.TempDir(), "none")})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no ledger configured")
}

func TestSecretsSendAuthorization(t *testing.T) {
	var mu sync.Mutex
	var auths []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		auths = append(auths, r.Header.Get("Authorization"))
		mu.Unlock()
		if r.URL.Path == "/advancedsearch.php" {
			fmt.Fprint(w, `{"response":{"docs":[{"identifier":"restricted-item"}]}}`)
			return
		}
		fmt.Fprint(w, fakePDFContent)
	}))
	defer ts.Close()

	dir := t.TempDir()
	secretsDir := filepath.Join(dir, "keys")
	require.NoError(t, os.MkdirAll(secretsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(secretsDir, "ia-access-key"), []byte("AK\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(secretsDir, "ia-secret-key"), []byte("SK\n"), 0o600))

	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs([]string{"restricted",
		"--search-url", ts.URL + "/advancedsearch.php",
		"--download-url", ts.URL + "/download",
		"--output-dir", dir, "--cache-dir", dir,
		"--secrets-dir", secretsDir,
		"--delay", "0", "--no-progress",
	})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, []string{"LOW AK:SK", "LOW AK:SK"}, auths)
	assert.Contains(t, errOut.String(), "Loaded secrets: [ia-access-key ia-secret-key]")
}

func TestConfigFile(t *testing.T) {
	m := newMockArchive(t)
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "archive-fetch.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("min-year: 2010\n"), 0o644))

	out, errOut, err := execute(t, m, dir, "demo", "--config", cfgPath)
	require.NoError(t, err)

	_, downloads := m.counts()
	assert.Equal(t, []string{"/download/item-2020-05-05/item-2020-05-05.pdf"}, downloads)
	assert.Contains(t, out, "item-1999-01-01.pdf: too old!")
	assert.Contains(t, errOut, "Using config file:")
}

func TestMissingConfigFileIsAnError(t *testing.T) {
	m := newMockArchive(t)
	dir := t.TempDir()
	_, _, err := execute(t, m, dir, "demo", "--config", filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "archive-fetch dev\n", out.String())
}

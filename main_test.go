package main

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"dataingest/config"
	"dataingest/utils"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func churnArchive(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create("internet_service_churn.csv")
	require.NoError(t, err)
	_, err = f.Write([]byte("id,is_tv_subscriber,churn\n15,1,0\n18,0,1\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestRunOnce(t *testing.T) {
	archive := churnArchive(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(archive)
	}))
	defer server.Close()

	base := t.TempDir()
	logFile := filepath.Join(t.TempDir(), "data_ingestion.log")

	code := run([]string{"-dir", base, "-url", server.URL, "-once", "-log-file", logFile})
	require.Equal(t, 0, code)

	dir := filepath.Join(base, config.DefaultDatasetName, config.DefaultDataType, time.Now().Format("2006-01-02"))
	assert.FileExists(t, filepath.Join(dir, "internet_service_churn.zip"))
	assert.FileExists(t, filepath.Join(dir, "internet_service_churn.csv"))

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Dataset loaded successfully")
	assert.Contains(t, string(content), "Data ingestion job finished")
}

func TestRunFatalParseError(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create("churn.csv")
	require.NoError(t, err)
	_, err = f.Write([]byte("id,churn\n1,0,7\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(buf.Bytes())
	}))
	defer server.Close()

	logFile := filepath.Join(t.TempDir(), "data_ingestion.log")
	code := run([]string{"-dir", t.TempDir(), "-url", server.URL, "-max-runs", "3", "-fatal-parse-errors",
		"-log-file", logFile})
	require.Equal(t, 1, code)
}

func TestRunInvalidConfiguration(t *testing.T) {
	require.Equal(t, 2, run([]string{"-url", "http://127.0.0.1:1/"}))
	require.Equal(t, 0, run([]string{"-h"}))
}

func TestNewPublishers(t *testing.T) {
	conf := config.Defaults()
	conf.BaseDir = "/data"

	publishers, err := newPublishers(context.Background(), afero.NewMemMapFs(), conf, utils.Nop())
	require.NoError(t, err)
	assert.Empty(t, publishers)

	conf.PostgresURL = "postgres://localhost:5432/warehouse"
	conf.PostgresTable = "raw.internet_service_churn"
	publishers, err = newPublishers(context.Background(), afero.NewMemMapFs(), conf, utils.Nop())
	require.NoError(t, err)
	require.Len(t, publishers, 1)
	assert.Equal(t, "postgres", publishers[0].Name())

	conf.PostgresTable = "a.b.c"
	_, err = newPublishers(context.Background(), afero.NewMemMapFs(), conf, utils.Nop())
	require.Error(t, err)
}

package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"mlstudio/core/models"
	"mlstudio/core/repository"

	"github.com/google/uuid"
)

// previewByteLimit bounds how much of a file is read for a preview.
const previewByteLimit = 1 << 20

// UploadManager stores uploaded dataset files on disk and serves
// bounded previews of their contents.
type UploadManager struct {
	dataDir     string
	datasetRepo *repository.DatasetRepository
}

// NewUploadManager creates an upload manager rooted at dataDir.
func NewUploadManager(dataDir string, datasetRepo *repository.DatasetRepository) (*UploadManager, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &UploadManager{dataDir: dataDir, datasetRepo: datasetRepo}, nil
}

// SaveDataset streams an uploaded file into the data directory and
// records the dataset row. The stored file is named by the dataset id
// so uploads cannot collide or escape the data dir.
func (m *UploadManager) SaveDataset(projectID, name, filename, contentType string, src io.Reader) (*models.Dataset, error) {
	id := uuid.New().String()
	path := filepath.Join(m.dataDir, id+normalizedExt(filename))

	out, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}
	n, err := io.Copy(out, src)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("write file: %w", err)
	}

	if name == "" {
		name = filename
	}
	ds := &models.Dataset{
		ID:          id,
		ProjectID:   projectID,
		Name:        name,
		Filename:    filename,
		SizeBytes:   n,
		ContentType: contentType,
	}
	if err := m.datasetRepo.CreateDataset(ds); err != nil {
		os.Remove(path)
		return nil, err
	}
	return ds, nil
}

// Path returns the on-disk location of a dataset's file.
func (m *UploadManager) Path(ds *models.Dataset) string {
	return filepath.Join(m.dataDir, ds.ID+normalizedExt(ds.Filename))
}

// Delete removes a dataset's row and its stored file.
func (m *UploadManager) Delete(ds *models.Dataset) error {
	if err := m.datasetRepo.DeleteDataset(ds.ID); err != nil {
		return err
	}
	if err := os.Remove(m.Path(ds)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Preview is a parsed head of a dataset file.
type Preview struct {
	Kind    string          `json:"kind"` // csv | json | text
	Columns []string        `json:"columns,omitempty"`
	Rows    [][]string      `json:"rows,omitempty"`
	Head    json.RawMessage `json:"head,omitempty"`
	Lines   []string        `json:"lines,omitempty"`
}

// Preview parses the head of a stored dataset file: the header plus up
// to maxRows records for CSV, the leading elements for a JSON array,
// or raw lines for anything else. Reads are bounded.
func (m *UploadManager) Preview(ds *models.Dataset, maxRows int) (*Preview, error) {
	if maxRows <= 0 {
		maxRows = 20
	}

	f, err := os.Open(m.Path(ds))
	if err != nil {
		return nil, fmt.Errorf("open dataset file: %w", err)
	}
	defer f.Close()

	switch normalizedExt(ds.Filename) {
	case ".csv":
		return previewCSV(f, maxRows)
	case ".json":
		return previewJSON(io.LimitReader(f, previewByteLimit), maxRows)
	default:
		return previewText(io.LimitReader(f, previewByteLimit), maxRows)
	}
}

func previewCSV(r io.Reader, maxRows int) (*Preview, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return &Preview{Kind: "csv"}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	rows := make([][]string, 0, maxRows)
	for len(rows) < maxRows {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
		rows = append(rows, record)
	}
	return &Preview{Kind: "csv", Columns: header, Rows: rows}, nil
}

func previewJSON(r io.Reader, maxRows int) (*Preview, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read json: %w", err)
	}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}

	if arr, ok := doc.([]interface{}); ok && len(arr) > maxRows {
		doc = arr[:maxRows]
	}
	head, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return &Preview{Kind: "json", Head: head}, nil
}

func previewText(r io.Reader, maxRows int) (*Preview, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	if len(lines) > maxRows {
		lines = lines[:maxRows]
	}
	return &Preview{Kind: "text", Lines: lines}, nil
}

func normalizedExt(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

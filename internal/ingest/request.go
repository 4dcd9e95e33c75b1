package ingest

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrBadRequest    = errors.New("batch_id and articles array required")
	ErrBatchTooLarge = errors.New("too many articles in one batch")
)

// Request is the envelope accepted by the ingestion endpoint.
type Request struct {
	BatchID  string `json:"batch_id"`
	Articles []any  `json:"articles"`
}

// Check enforces the envelope shape. maxBatch <= 0 disables the size bound.
func (r Request) Check(maxBatch int) error {
	if strings.TrimSpace(r.BatchID) == "" || len(r.Articles) == 0 {
		return ErrBadRequest
	}
	if maxBatch > 0 && len(r.Articles) > maxBatch {
		return fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, len(r.Articles), maxBatch)
	}
	return nil
}

// DecodeRequest reads and checks a JSON envelope.
func DecodeRequest(r io.Reader, maxBatch int) (Request, error) {
	var req Request
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return req, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return req, req.Check(maxBatch)
}

// ReadFile loads bundles for local ingestion. It accepts NDJSON (.ndjson,
// .jsonl), a JSON array of bundles, or a full {batch_id, articles} envelope.
// The returned batch ID is empty unless the file carried one.
func ReadFile(path string) (string, []any, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".ndjson", ".jsonl":
		bundles, err := readNDJSON(f)
		return "", bundles, err
	default:
		return readJSON(f)
	}
}

func readNDJSON(r io.Reader) ([]any, error) {
	var bundles []any
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)

	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var v any
		if err := json.Unmarshal([]byte(text), &v); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		bundles = append(bundles, v)
	}
	return bundles, sc.Err()
}

func readJSON(r io.Reader) (string, []any, error) {
	var v any
	if err := json.NewDecoder(r).Decode(&v); err != nil {
		return "", nil, err
	}

	switch t := v.(type) {
	case []any:
		return "", t, nil
	case map[string]any:
		articles, ok := t["articles"].([]any)
		if !ok {
			return "", nil, errors.New("json object must carry an articles array")
		}
		batchID, _ := t["batch_id"].(string)
		return batchID, articles, nil
	default:
		return "", nil, errors.New("expected a json array or an ingestion envelope")
	}
}

package mt

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"dubbin/internal/fileutil"
)

// InputRecord is one line of mt/input.jsonl, the exact request sent per
// utterance.
type InputRecord struct {
	UttID string `json:"utt_id"`
	Text  string `json:"text"`
}

// OutputRecord is one line of mt/output.jsonl.
type OutputRecord struct {
	UttID      string `json:"utt_id"`
	TextSource string `json:"text_source"`
	TextTarget string `json:"text_target"`
	Model      string `json:"model"`
}

// WriteInputs persists the translation inputs as JSONL.
func WriteInputs(path string, records []InputRecord) error {
	return writeJSONL(path, len(records), func(i int) any { return records[i] })
}

// WriteOutputs persists the translation outputs as JSONL.
func WriteOutputs(path string, records []OutputRecord) error {
	return writeJSONL(path, len(records), func(i int) any { return records[i] })
}

func writeJSONL(path string, n int, record func(int) any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := 0; i < n; i++ {
		if err := enc.Encode(record(i)); err != nil {
			return fmt.Errorf("encode record %d: %w", i, err)
		}
	}
	return fileutil.WriteAtomic(path, buf.Bytes(), 0o644)
}

// ReadOutputs loads mt/output.jsonl into a map keyed by utterance id.
func ReadOutputs(path string) (map[string]OutputRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open translations: %w", err)
	}
	defer f.Close()

	out := map[string]OutputRecord{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var rec OutputRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("parse %s line %d: %w", path, line, err)
		}
		if rec.UttID == "" {
			return nil, fmt.Errorf("%s line %d has no utt_id", path, line)
		}
		out[rec.UttID] = rec
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read translations: %w", err)
	}
	return out, nil
}

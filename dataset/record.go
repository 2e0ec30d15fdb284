// Package dataset supplies the (instruction, ground_truth, metadata)
// records consumed by the rollout driver, plus a generator for the toy
// math task. The on-disk format is one JSON record per line.
package dataset

import (
	"bufio"
	"encoding/json"
	"io"
	"os"

	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/traject"
)

// DefaultSystemPrompt is injected when a record's prompt carries no
// system message. It advertises the tool-call markup for plain-text
// policies; servers with native function calling simply ignore the
// format hint.
const DefaultSystemPrompt = "You are a helpful math assistant. Solve the given math problem step by step.\n" +
	"You can use the python_eval tool to evaluate mathematical expressions.\n" +
	"When you have the final answer, use the finish tool with your answer.\n" +
	"Format: <function=finish>\n<parameter=answer>Your answer here</parameter>\n</function>"

// Record is one dataset entry.
type Record struct {
	Prompt      []traject.Message `json:"prompt"`
	GroundTruth string            `json:"ground_truth"`
	DataSource  string            `json:"data_source"`
	ExtraInfo   map[string]any    `json:"extra_info,omitempty"`
}

// Instruction returns the initial conversation state for an episode,
// injecting DefaultSystemPrompt if the record has no system message.
func (r *Record) Instruction() []traject.Message {
	for _, msg := range r.Prompt {
		if msg.Role == traject.RoleSystem {
			return append([]traject.Message(nil), r.Prompt...)
		}
	}

	instruction := make([]traject.Message, 0, len(r.Prompt)+1)
	instruction = append(instruction, traject.SystemMessage(DefaultSystemPrompt))
	instruction = append(instruction, r.Prompt...)
	return instruction
}

// Write writes records as JSON lines.
func Write(w io.Writer, records []*Record) error {
	enc := json.NewEncoder(w)
	for _, record := range records {
		if err := enc.Encode(record); err != nil {
			return goerr.Wrap(err, "failed to encode dataset record")
		}
	}
	return nil
}

// Read reads JSON line records until EOF.
func Read(r io.Reader) ([]*Record, error) {
	var records []*Record

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var record Record
		if err := json.Unmarshal(line, &record); err != nil {
			return nil, goerr.Wrap(err, "failed to decode dataset record", goerr.V("line", string(line)))
		}
		records = append(records, &record)
	}
	if err := scanner.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to read dataset")
	}

	return records, nil
}

// Save writes records to a file.
func Save(path string, records []*Record) error {
	f, err := os.Create(path)
	if err != nil {
		return goerr.Wrap(err, "failed to create dataset file", goerr.V("path", path))
	}

	if err := Write(f, records); err != nil {
		_ = f.Close()
		return err
	}

	if err := f.Close(); err != nil {
		return goerr.Wrap(err, "failed to close dataset file", goerr.V("path", path))
	}
	return nil
}

// Load reads records from a file.
func Load(path string) ([]*Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open dataset file", goerr.V("path", path))
	}
	defer f.Close()

	return Read(f)
}
